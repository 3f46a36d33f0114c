package export

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ErrMalformedTimestamp indicates a Record timestamp attribute could not be
// parsed. The whole run aborts; there is no partial-document recovery.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// timestampLayout matches Apple Health export timestamps, e.g.
// "2024-01-15 23:41:07 -0800".
const timestampLayout = "2006-01-02 15:04:05 -0700"

// Observation is a single raw Record element from the export document. Value
// holds the raw value attribute: a category string for sleep analysis, a
// numeric string for quantity types.
type Observation struct {
	Type  string
	Start time.Time
	End   time.Time
	Value string
}

// Numeric returns the observation value as a float, defaulting to 0 when the
// attribute is absent or non-numeric.
func (o Observation) Numeric() float64 {
	value, err := strconv.ParseFloat(o.Value, 64)
	if err != nil {
		return 0
	}
	return value
}

// Extractor streams Record observations out of an export document in document
// order. It follows the bufio.Scanner shape: Next advances to the following
// observation, Observation returns it, and Err reports the terminal error
// after Next returns false. Memory stays bounded regardless of document size;
// only the current element's attributes are retained.
type Extractor struct {
	decoder *xml.Decoder
	current Observation
	err     error
}

// NewExtractor wraps the document stream in an Extractor.
func NewExtractor(r io.Reader) *Extractor {
	return &Extractor{decoder: xml.NewDecoder(r)}
}

// Next advances to the next Record observation. It returns false at end of
// document or on the first error.
func (e *Extractor) Next() bool {
	if e.err != nil {
		return false
	}
	for {
		token, err := e.decoder.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				e.err = fmt.Errorf("%w: %v", ErrUnreadableStream, err)
			}
			return false
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "Record" {
			continue
		}

		obs, err := recordFromElement(start)
		if err != nil {
			e.err = err
			return false
		}
		e.current = obs

		// Release the element before yielding so no subtree accumulates.
		if err := e.decoder.Skip(); err != nil {
			e.err = fmt.Errorf("%w: %v", ErrUnreadableStream, err)
			return false
		}
		return true
	}
}

// Observation returns the observation produced by the last successful Next.
func (e *Extractor) Observation() Observation {
	return e.current
}

// Err returns the error that terminated extraction, if any.
func (e *Extractor) Err() error {
	return e.err
}

func recordFromElement(elem xml.StartElement) (Observation, error) {
	var obs Observation
	var startRaw, endRaw string
	for _, attr := range elem.Attr {
		switch attr.Name.Local {
		case "type":
			obs.Type = attr.Value
		case "startDate":
			startRaw = attr.Value
		case "endDate":
			endRaw = attr.Value
		case "value":
			obs.Value = attr.Value
		}
	}

	start, err := parseTimestamp(startRaw)
	if err != nil {
		return Observation{}, err
	}
	end, err := parseTimestamp(endRaw)
	if err != nil {
		return Observation{}, err
	}
	obs.Start = start
	obs.End = end
	return obs, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	parsed, err := time.Parse(timestampLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, raw)
	}
	return parsed, nil
}
