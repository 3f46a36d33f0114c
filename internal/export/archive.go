// Package export reads Apple Health export documents: it resolves the
// document stream out of a raw XML file or a zip archive, tokenizes it into
// raw observations with bounded memory, and classifies observations into the
// canonical kinds the aggregation layer understands.
package export

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DocumentName is the canonical document filename inside a health export archive.
const DocumentName = "export.xml"

var (
	// ErrMissingDocument indicates an archive lacks the canonical export document.
	ErrMissingDocument = errors.New("no export.xml found in archive")
	// ErrUnreadableStream indicates the source could not be opened or read.
	ErrUnreadableStream = errors.New("unreadable export stream")
)

// Open resolves the export document stream for the given path. A .zip source
// must contain exactly one member whose name ends in export.xml; the member is
// materialized to a scratch file that is removed when the returned stream is
// closed. Any other source is streamed directly.
func Open(path string) (io.ReadCloser, error) {
	if strings.HasSuffix(strings.ToLower(path), ".zip") {
		return openArchive(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableStream, path, err)
	}
	return file, nil
}

func openArchive(path string) (io.ReadCloser, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableStream, path, err)
	}
	defer reader.Close()

	var member *zip.File
	for _, file := range reader.File {
		if strings.HasSuffix(file.Name, DocumentName) {
			member = file
			break
		}
	}
	if member == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingDocument, path)
	}

	source, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableStream, member.Name, err)
	}
	defer source.Close()

	scratch, err := os.CreateTemp("", "healthstats-export-*.xml")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableStream, err)
	}

	if _, err := io.Copy(scratch, source); err != nil {
		scratch.Close()
		os.Remove(scratch.Name())
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableStream, member.Name, err)
	}
	if _, err := scratch.Seek(0, io.SeekStart); err != nil {
		scratch.Close()
		os.Remove(scratch.Name())
		return nil, fmt.Errorf("%w: %v", ErrUnreadableStream, err)
	}

	return &scratchFile{File: scratch}, nil
}

// scratchFile removes the underlying temp file on Close so extracted archive
// members never outlive the stream that reads them.
type scratchFile struct {
	*os.File
}

func (s *scratchFile) Close() error {
	err := s.File.Close()
	if removeErr := os.Remove(s.File.Name()); err == nil {
		err = removeErr
	}
	return err
}
