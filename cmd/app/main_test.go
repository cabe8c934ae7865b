package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("CATALOG_SOURCE", "static")
	t.Setenv("HISTORY_STORE", "memory")
	t.Setenv("CUSTOMER_STORE", "memory")
}

func TestSeedCommand(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "catalog.db")
	t.Setenv("SQLITE_PATH", path)

	out, err := runCLI(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 8 products")
}

func TestAskFallsBackWithoutBackend(t *testing.T) {
	isolateEnv(t)

	out, err := runCLI(t, "ask", "--user", "224620000001", "je", "cherche", "un", "sac")
	require.NoError(t, err)
	assert.Contains(t, out, "95 000 GNF")
}

func TestAskUsesBackend(t *testing.T) {
	isolateEnv(t)

	var system string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && len(body.Messages) > 0 {
			system = body.Messages[0].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Nos robes sont superbes !"}}]}`))
	}))
	defer server.Close()

	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("GROQ_BASE_URL", server.URL)
	t.Setenv("CATALOG_SOURCE", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "catalog.db"))

	out, err := runCLI(t, "ask", "Vous avez des robes ?")
	require.NoError(t, err)
	assert.Equal(t, "Nos robes sont superbes !", strings.TrimSpace(out))
	assert.Contains(t, system, "Robe de Soirée")
}

func TestPingWithoutBackendFails(t *testing.T) {
	isolateEnv(t)

	_, err := runCLI(t, "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestUnknownCatalogSource(t *testing.T) {
	isolateEnv(t)
	t.Setenv("CATALOG_SOURCE", "ftp")

	_, err := runCLI(t, "ask", "bonjour")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATALOG_SOURCE")
}

func TestCommandErrorsDoNotPrintUsage(t *testing.T) {
	isolateEnv(t)

	out, err := runCLI(t, "ping")
	require.Error(t, err)
	assert.NotContains(t, out, "Usage:")
	assert.True(t, newRootCmd().SilenceUsage)
}
