package export

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, members map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "export.zip")
	file, err := os.Create(path)
	require.NoError(t, err)

	writer := zip.NewWriter(file)
	for name, content := range members {
		member, err := writer.Create(name)
		require.NoError(t, err)
		_, err = member.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	require.NoError(t, file.Close())
	return path
}

func TestOpenStreamsRawXMLDirectly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xml")
	require.NoError(t, os.WriteFile(path, []byte("<HealthData/>"), 0o644))

	stream, err := Open(path)
	require.NoError(t, err)
	defer stream.Close()

	content, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, "<HealthData/>", string(content))
}

func TestOpenResolvesNestedArchiveMember(t *testing.T) {
	path := writeZip(t, map[string]string{
		"apple_health_export/export_cda.xml": "<ClinicalDocument/>",
		"apple_health_export/export.xml":     "<HealthData/>",
	})

	stream, err := Open(path)
	require.NoError(t, err)

	content, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, "<HealthData/>", string(content))
	require.NoError(t, stream.Close())
}

func TestOpenScratchFileRemovedOnClose(t *testing.T) {
	path := writeZip(t, map[string]string{"export.xml": "<HealthData/>"})

	stream, err := Open(path)
	require.NoError(t, err)

	scratch, ok := stream.(*scratchFile)
	require.True(t, ok)
	scratchPath := scratch.Name()
	_, err = os.Stat(scratchPath)
	require.NoError(t, err)

	require.NoError(t, stream.Close())
	_, err = os.Stat(scratchPath)
	require.True(t, os.IsNotExist(err))
}

func TestOpenRejectsArchiveWithoutDocument(t *testing.T) {
	path := writeZip(t, map[string]string{"workout-routes/route.gpx": "<gpx/>"})

	_, err := Open(path)
	require.ErrorIs(t, err, ErrMissingDocument)
}

func TestOpenRejectsMissingSource(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.xml"))
	require.ErrorIs(t, err, ErrUnreadableStream)
}

func TestOpenRejectsCorruptArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := Open(path)
	require.ErrorIs(t, err, ErrUnreadableStream)
}
