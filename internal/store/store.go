// Package store persists per-device study records. Two styles are offered:
// overwrite-style single documents and append-only logs whose latest
// well-formed entry wins on read.
package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"
)

// Record names used by the study flow.
const (
	NameConsent   = "consent"
	NameSurvey    = "survey"
	NameProfile   = "profile"
	NameAgreement = "agreement"
)

// RunIDKey is stamped on every appended record that does not carry one.
const RunIDKey = "run_id"

// RunIDLayout is local time at second precision.
const RunIDLayout = "20060102-150405"

var (
	ErrInvalidName   = errors.New("invalid record name")
	ErrInvalidDevice = errors.New("invalid device id")
)

var validName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)
var validDevice = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// Document is one JSON object.
type Document map[string]any

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	out := make(Document, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	return out
}

// String returns the value at key when it is a string.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Store is implemented by the file and Postgres backends.
type Store interface {
	// SaveJSON overwrites the document name of deviceID.
	SaveJSON(ctx context.Context, deviceID, name string, doc Document) error
	// LoadJSON returns the document, or an empty Document when absent.
	LoadJSON(ctx context.Context, deviceID, name string) (Document, error)
	// AppendJSONL appends doc to the log and returns it as stored.
	AppendJSONL(ctx context.Context, deviceID, name string, doc Document) (Document, error)
	// LoadLatestJSONL returns the last well-formed entry, or an empty Document.
	LoadLatestJSONL(ctx context.Context, deviceID, name string) (Document, error)
	// LoadAllJSONL returns every well-formed entry in write order.
	LoadAllJSONL(ctx context.Context, deviceID, name string) ([]Document, error)
	// ExportJSONL returns the raw log, or an empty slice when absent.
	ExportJSONL(ctx context.Context, deviceID, name string) ([]byte, error)
}

// Stamp returns a copy of doc carrying a run_id derived from now.
func Stamp(doc Document, now time.Time) Document {
	out := doc.Clone()
	if _, ok := out[RunIDKey]; !ok {
		out[RunIDKey] = now.Local().Format(RunIDLayout)
	}
	return out
}

func checkKey(deviceID, name string) error {
	if !validDevice.MatchString(deviceID) {
		return fmt.Errorf("%w: %q", ErrInvalidDevice, deviceID)
	}
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// parseLine decodes one JSONL line; blank and malformed lines report false.
func parseLine(line []byte) (Document, bool) {
	var doc Document
	if err := json.Unmarshal(line, &doc); err != nil || doc == nil {
		return nil, false
	}
	return doc, true
}

// ReadLines calls fn with every non-blank line of r, trimmed. Lines have no
// length limit.
func ReadLines(r io.Reader, fn func(line []byte)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			fn(trimmed)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Bundle is the export document combining a device's records.
type Bundle struct {
	DeviceID string   `json:"device_id"`
	Consent  Document `json:"consent"`
	Survey   Document `json:"survey"`
	Profile  Document `json:"profile"`
}

// ExportBundle gathers the consent, survey and profile documents of deviceID
// into one indented JSON document. Logged records fall back to their latest
// entry when no overwrite-style copy exists. A device with none of the three
// records exports as empty bytes, like an unwritten log.
func ExportBundle(ctx context.Context, s Store, deviceID string) ([]byte, error) {
	b := Bundle{DeviceID: deviceID}
	var err error
	if b.Consent, err = loadEither(ctx, s, deviceID, NameConsent); err != nil {
		return nil, err
	}
	if b.Survey, err = loadEither(ctx, s, deviceID, NameSurvey); err != nil {
		return nil, err
	}
	if b.Profile, err = s.LoadJSON(ctx, deviceID, NameProfile); err != nil {
		return nil, err
	}
	if len(b.Consent) == 0 && len(b.Survey) == 0 && len(b.Profile) == 0 {
		return []byte{}, nil
	}
	return json.MarshalIndent(b, "", "  ")
}

func loadEither(ctx context.Context, s Store, deviceID, name string) (Document, error) {
	doc, err := s.LoadJSON(ctx, deviceID, name)
	if err != nil || len(doc) > 0 {
		return doc, err
	}
	return s.LoadLatestJSONL(ctx, deviceID, name)
}
