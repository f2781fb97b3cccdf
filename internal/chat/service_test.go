package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentalytics/internal/agent"
	"mentalytics/internal/history"
	"mentalytics/internal/platform/web"
	"mentalytics/internal/store"
)

type fakeModel struct {
	preflight error
	answer    agent.Answer
	err       error
	prompts   []string
}

func (f *fakeModel) Preflight() error { return f.preflight }

func (f *fakeModel) Generate(_ context.Context, prompt string) (agent.Answer, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

type fakeMetrics struct{ outcomes []string }

func (f *fakeMetrics) ObserveInference(outcome string, _ time.Duration) {
	f.outcomes = append(f.outcomes, outcome)
}

type fixture struct {
	model   *fakeModel
	metrics *fakeMetrics
	store   *store.FileStore
	svc     Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		model:   &fakeModel{answer: agent.Answer{Text: "Walk daily.", Latency: 1500 * time.Millisecond, Stderr: "warn"}},
		metrics: &fakeMetrics{},
		store:   store.NewFileStore(dir, nil),
	}
	f.svc = NewService(f.model, f.store, history.New(dir, nil), f.metrics, nil)
	return f
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt(Context{Age: "34", Health: "Good"}, "Can I run?")
	assert.Equal(t, "Patient context (may be partial): Age=34, Gender=?, Health=Good, Mobility=?.\n\nQuestion: Can I run?\n\n", got)
}

func TestAskUsesLatestSurvey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.AppendJSONL(ctx, "AB12CD", store.NameSurvey, store.Document{"age": "20", "mobility": "Limited"})
	require.NoError(t, err)
	_, err = f.store.AppendJSONL(ctx, "AB12CD", store.NameSurvey, store.Document{
		"age": "21", "gender_bio": "Male", "overall_health": "Fair", "mobility": "Full",
	})
	require.NoError(t, err)

	reply, err := f.svc.Ask(ctx, "AB12CD", "  Is cycling OK?  ")
	require.NoError(t, err)
	assert.Equal(t, "Walk daily.", reply.Answer)
	assert.Equal(t, int64(1500), reply.LatencyMS)
	assert.Equal(t, "warn", reply.Stderr)
	assert.NotEmpty(t, reply.TS)

	require.Len(t, f.model.prompts, 1)
	assert.True(t, strings.HasPrefix(f.model.prompts[0], "Patient context (may be partial): Age=21, Gender=Male, Health=Fair, Mobility=Full."))
	assert.Contains(t, f.model.prompts[0], "Question: Is cycling OK?\n\n")

	entries, err := f.svc.History(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Is cycling OK?", entries[0].Prompt)
	assert.Equal(t, "Walk daily.", entries[0].Response)
	assert.Equal(t, []string{"ok"}, f.metrics.outcomes)
}

func TestAskWithoutDevice(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ask(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.Contains(t, f.model.prompts[0], "Age=?, Gender=?, Health=?, Mobility=?.")
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ask(context.Background(), "", "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Empty(t, f.model.prompts)
}

func TestAskPreflightFailure(t *testing.T) {
	f := newFixture(t)
	f.model.preflight = &agent.PreflightError{Problems: []string{"missing model: m.gguf"}}

	_, err := f.svc.Ask(context.Background(), "", "hello")
	var perr *agent.PreflightError
	require.ErrorAs(t, err, &perr)
	assert.Empty(t, f.model.prompts)

	entries, err := f.svc.History(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, []string{"unavailable"}, f.metrics.outcomes)
}

func TestAskGenerateFailure(t *testing.T) {
	f := newFixture(t)
	f.model.err = errors.New("exec format error")
	_, err := f.svc.Ask(context.Background(), "", "hello")
	assert.Error(t, err)
	assert.Equal(t, []string{"error"}, f.metrics.outcomes)
}

func TestClearAndExport(t *testing.T) {
	f := newFixture(t)
	data, err := f.svc.Export()
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)

	_, err = f.svc.Ask(context.Background(), "", "hello")
	require.NoError(t, err)
	data, err = f.svc.Export()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"prompt":"hello"`)

	f.svc.Clear()
	f.svc.Clear()
	entries, err := f.svc.History(5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandler(t *testing.T) {
	f := newFixture(t)
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(f.svc))

	do := func(method, target, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
		return rec
	}

	t.Run("ask", func(t *testing.T) {
		rec := do(http.MethodPost, "/chat", `{"device_id":"AB12CD","question":"hi"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var reply Reply
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
		assert.Equal(t, "Walk daily.", reply.Answer)
	})

	t.Run("empty question", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/chat", `{"question":" "}`).Code)
	})

	t.Run("long question", func(t *testing.T) {
		rec := do(http.MethodPost, "/chat", `{"question":"`+strings.Repeat("a", MaxQuestionRunes+1)+`"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "at most")
	})

	t.Run("oversized body", func(t *testing.T) {
		rec := do(http.MethodPost, "/chat", `{"question":"`+strings.Repeat("a", web.MaxBody)+`"}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("bad device", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/chat", `{"device_id":"../x","question":"hi"}`).Code)
	})

	t.Run("history", func(t *testing.T) {
		rec := do(http.MethodGet, "/chat/history?n=1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"prompt":"hi"`)
		assert.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/chat/history?n=x", "").Code)
	})

	t.Run("export and clear", func(t *testing.T) {
		rec := do(http.MethodGet, "/chat/export", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "conversations.jsonl")
		assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/chat/history", "").Code)
		rec = do(http.MethodGet, "/chat/history", "")
		assert.JSONEq(t, `{"entries":[]}`, rec.Body.String())
	})

	t.Run("model unavailable", func(t *testing.T) {
		f.model.preflight = &agent.PreflightError{Problems: []string{"missing binary: bin/llama-cli"}}
		rec := do(http.MethodPost, "/chat", `{"question":"hi"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing binary")
	})
}
