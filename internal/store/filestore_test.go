package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s := NewFileStore(t.TempDir(), nil)
	s.now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local) }
	return s
}

func TestAppendThenLoadLatest(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	_, err := s.AppendJSONL(ctx, "AB12CD", NameSurvey, Document{"gender": "Male", "surgery": "No"})
	require.NoError(t, err)
	stored, err := s.AppendJSONL(ctx, "AB12CD", NameSurvey, Document{"gender": "Female", "surgery": "Yes"})
	require.NoError(t, err)

	want := Document{"gender": "Female", "surgery": "Yes", RunIDKey: "20250314-092653"}
	assert.Empty(t, cmp.Diff(want, stored))

	got, err := s.LoadLatestJSONL(ctx, "AB12CD", NameSurvey)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, got))

	all, err := s.LoadAllJSONL(ctx, "AB12CD", NameSurvey)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAppendKeepsExistingRunID(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	stored, err := s.AppendJSONL(ctx, "dev1", NameConsent, Document{RunIDKey: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", stored.String(RunIDKey))
}

func TestAppendDoesNotMutateInput(t *testing.T) {
	s := newTestFileStore(t)
	in := Document{"a": "b"}
	_, err := s.AppendJSONL(context.Background(), "dev1", NameConsent, in)
	require.NoError(t, err)
	_, has := in[RunIDKey]
	assert.False(t, has)
}

func TestMalformedLinesAreSkipped(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	dir := filepath.Join(s.root, "dev1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := `{"n":"first"}` + "\n" +
		"not json\n" +
		"\n" +
		`{"n":"second"}` + "\n" +
		`{"n":"trunc`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "survey.jsonl"), []byte(content), 0o644))

	all, err := s.LoadAllJSONL(ctx, "dev1", NameSurvey)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0].String("n"))

	latest, err := s.LoadLatestJSONL(ctx, "dev1", NameSurvey)
	require.NoError(t, err)
	assert.Equal(t, "second", latest.String("n"))
}

func TestMissingRecordsAreEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	doc, err := s.LoadJSON(ctx, "nobody", NameProfile)
	require.NoError(t, err)
	assert.NotNil(t, doc)
	assert.Empty(t, doc)

	latest, err := s.LoadLatestJSONL(ctx, "nobody", NameSurvey)
	require.NoError(t, err)
	assert.NotNil(t, latest)
	assert.Empty(t, latest)

	raw, err := s.ExportJSONL(ctx, "nobody", NameSurvey)
	require.NoError(t, err)
	assert.NotNil(t, raw)
	assert.Empty(t, raw)
}

func TestSaveJSONOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	require.NoError(t, s.SaveJSON(ctx, "dev1", NameProfile, Document{"age": "30"}))
	require.NoError(t, s.SaveJSON(ctx, "dev1", NameProfile, Document{"age": "31", "mobility": "Good"}))

	doc, err := s.LoadJSON(ctx, "dev1", NameProfile)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(Document{"age": "31", "mobility": "Good"}, doc))

	_, err = os.Stat(filepath.Join(s.root, "dev1", "profile.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestExportJSONLReturnsRawLog(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	_, err := s.AppendJSONL(ctx, "dev1", NameConsent, Document{"agreed_info": true})
	require.NoError(t, err)

	raw, err := s.ExportJSONL(ctx, "dev1", NameConsent)
	require.NoError(t, err)
	assert.Equal(t, `{"agreed_info":true,"run_id":"20250314-092653"}`+"\n", string(raw))
}

func TestInvalidKeysAreRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	_, err := s.LoadJSON(ctx, "../etc", NameProfile)
	assert.ErrorIs(t, err, ErrInvalidDevice)

	err = s.SaveJSON(ctx, "dev1", "../passwd", Document{})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = s.AppendJSONL(ctx, "", NameSurvey, Document{})
	assert.ErrorIs(t, err, ErrInvalidDevice)
}

func TestExportBundle(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	_, err := s.AppendJSONL(ctx, "dev1", NameConsent, Document{"agreed_info": true, "agreed_data": true})
	require.NoError(t, err)
	require.NoError(t, s.SaveJSON(ctx, "dev1", NameSurvey, Document{"gender": "Male"}))
	_, err = s.AppendJSONL(ctx, "dev1", NameSurvey, Document{"gender": "Female"})
	require.NoError(t, err)

	data, err := ExportBundle(ctx, s, "dev1")
	require.NoError(t, err)

	var b Bundle
	require.NoError(t, json.Unmarshal(data, &b))
	assert.Equal(t, "dev1", b.DeviceID)
	assert.Equal(t, true, b.Consent["agreed_data"])
	assert.Equal(t, "Male", b.Survey.String("gender"), "overwrite copy wins over the log")
	assert.Empty(t, b.Profile)
}

func TestExportBundleWithoutRecordsIsEmpty(t *testing.T) {
	data, err := ExportBundle(context.Background(), newTestFileStore(t), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)
}

func TestLongLineDoesNotHideLaterRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	_, err := s.AppendJSONL(ctx, "dev1", NameSurvey, Document{"age": "30"})
	require.NoError(t, err)
	_, err = s.AppendJSONL(ctx, "dev1", NameSurvey, Document{"age": "99", "notes": strings.Repeat("x", 5<<20)})
	require.NoError(t, err)
	_, err = s.AppendJSONL(ctx, "dev1", NameSurvey, Document{"age": "31"})
	require.NoError(t, err)

	latest, err := s.LoadLatestJSONL(ctx, "dev1", NameSurvey)
	require.NoError(t, err)
	assert.Equal(t, "31", latest.String("age"))

	all, err := s.LoadAllJSONL(ctx, "dev1", NameSurvey)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Len(t, all[1].String("notes"), 5<<20)
}
