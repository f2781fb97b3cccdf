package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mentalytics/internal/config"
	"mentalytics/internal/platform/web"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Port:             "0",
		DataDir:          dir,
		AllowedOrigin:    "https://study.example",
		SessionCacheSize: 8,
		Store:            config.StoreConfig{Backend: config.BackendFile},
		Llama: config.LlamaConfig{
			BinPath:   filepath.Join(dir, "missing-llama-cli"),
			ModelPath: filepath.Join(dir, "missing.gguf"),
			MaxTokens: 16, Threads: 1, Batch: 8,
		},
	}
}

func TestRouter(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(t), zap.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Close()
	h := a.router()

	do := func(method, target, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
		return rec
	}

	t.Run("health", func(t *testing.T) {
		rec := do(http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("cors preflight", func(t *testing.T) {
		rec := do(http.MethodOptions, "/api/session", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://study.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, web.DeviceHeader, rec.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("session then guidance without survey", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/session", "")
		require.Equal(t, http.StatusOK, rec.Code)
		id := rec.Header().Get(web.DeviceHeader)
		require.Len(t, id, 6)

		rec = do(http.MethodGet, "/api/session/"+id+"/guidance", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		do(http.MethodPost, "/api/session/AB12CD/language", `{"lang":"de"}`)
		rec := do(http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "mentalytics_wizard_transitions_total")
	})

	t.Run("chat without model", func(t *testing.T) {
		rec := do(http.MethodPost, "/api/chat", `{"question":"hi"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing binary")
	})
}

func TestRootCommandHelp(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})
	require.NoError(t, root.Execute())
	for _, sub := range []string{"serve", "ask", "export", "migrate"} {
		assert.Contains(t, out.String(), sub)
	}
}

func TestMigrateNeedsPostgres(t *testing.T) {
	t.Setenv("MENTALYTICS_DATA_DIR", t.TempDir())
	root := newRootCmd()
	root.SetArgs([]string{"migrate", "--store", "file"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}
