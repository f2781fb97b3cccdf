package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	l := New(filepath.Join(t.TempDir(), "data"), nil)
	l.now = func() time.Time { return time.Date(2025, 5, 2, 10, 4, 5, 0, time.UTC) }
	return l
}

func TestSaveWritesBothFiles(t *testing.T) {
	l := newTestLog(t)

	e, err := l.Save("How do I stretch?", "Slowly.", 1500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "2025-05-02T10:04:05Z", e.TS)
	require.NotNil(t, e.LatencyMS)
	assert.Equal(t, int64(1500), *e.LatencyMS)

	raw, err := l.Export()
	require.NoError(t, err)
	assert.Equal(t,
		`{"ts":"2025-05-02T10:04:05Z","prompt":"How do I stretch?","response":"Slowly.","latency_ms":1500}`+"\n",
		string(raw))

	text, err := os.ReadFile(l.textPath())
	require.NoError(t, err)
	assert.Equal(t, "[2025-05-02T10:04:05Z] Q: How do I stretch?\nA: Slowly.\nLatency: 1500 ms\n---\n", string(text))
}

func TestNegativeLatencyIsNull(t *testing.T) {
	l := newTestLog(t)
	_, err := l.Save("q", "a", -1)
	require.NoError(t, err)

	raw, err := l.Export()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"latency_ms":null`)
}

func TestLastReturnsTail(t *testing.T) {
	l := newTestLog(t)
	for _, q := range []string{"one", "two", "three"} {
		_, err := l.Save(q, "ok", time.Millisecond)
		require.NoError(t, err)
	}

	last, err := l.Last(2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "two", last[0].Prompt)
	assert.Equal(t, "three", last[1].Prompt)

	all, err := l.Last(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCorruptLinesAreIgnored(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, os.MkdirAll(l.dir, 0o755))
	require.NoError(t, os.WriteFile(l.jsonlPath(),
		[]byte("{broken\n"+`{"ts":"x","prompt":"p","response":"r","latency_ms":3}`+"\n"), 0o644))

	all, err := l.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "p", all[0].Prompt)
}

func TestLongEntryDoesNotHideLaterOnes(t *testing.T) {
	l := newTestLog(t)
	_, err := l.Save("long", strings.Repeat("a", 5<<20), time.Millisecond)
	require.NoError(t, err)
	_, err = l.Save("short", "ok", time.Millisecond)
	require.NoError(t, err)

	all, err := l.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Len(t, all[0].Response, 5<<20)
	assert.Equal(t, "short", all[1].Prompt)
}

func TestClearAndEmptyExport(t *testing.T) {
	l := newTestLog(t)

	// Clearing with nothing on disk is fine.
	l.Clear()

	_, err := l.Save("q", "a", 0)
	require.NoError(t, err)
	l.Clear()

	raw, err := l.Export()
	require.NoError(t, err)
	assert.NotNil(t, raw)
	assert.Empty(t, raw)

	last, err := l.Last(5)
	require.NoError(t, err)
	assert.Empty(t, last)

	_, err = os.Stat(l.textPath())
	assert.True(t, os.IsNotExist(err))
}
