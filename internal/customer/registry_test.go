package customer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supabase-community/supabase-go"
)

var t0 = time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

func testRegistry(t *testing.T, r Registry) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, r.Touch(ctx, "224620000001", "Fatoumata", t0))
	require.NoError(t, r.Touch(ctx, "224620000001", "", t0.Add(time.Hour)))

	c, ok, err := r.Get(ctx, "224620000001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Fatoumata", c.Name, "empty name keeps the known one")
	assert.Equal(t, ChannelWhatsApp, c.Channel)
	assert.True(t, c.FirstSeen.Equal(t0))
	assert.True(t, c.LastSeen.Equal(t0.Add(time.Hour)))

	_, ok, err = r.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryRegistry(t *testing.T) {
	testRegistry(t, NewMemoryRegistry())
}

func TestFileRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "customers.json")
	r, err := NewFileRegistry(path, nil)
	require.NoError(t, err)
	testRegistry(t, r)

	reloaded, err := NewFileRegistry(path, nil)
	require.NoError(t, err)
	c, ok, err := reloaded.Get(context.Background(), "224620000001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Fatoumata", c.Name)
}

func TestFileRegistryCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customers.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	r, err := NewFileRegistry(path, nil)
	require.NoError(t, err)
	_, ok, _ := r.Get(context.Background(), "x")
	assert.False(t, ok)
}

func TestFileRegistryFailedWriteKeepsMemoryInSync(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "registry")
	r, err := NewFileRegistry(filepath.Join(dir, "customers.json"), nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, r.Touch(ctx, "224620000001", "Fatoumata", t0))
	require.NoError(t, os.RemoveAll(dir))

	require.Error(t, r.Touch(ctx, "224620000001", "Fanta", t0.Add(time.Hour)))
	c, ok, err := r.Get(ctx, "224620000001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Fatoumata", c.Name)
	assert.True(t, c.LastSeen.Equal(t0))

	require.Error(t, r.Touch(ctx, "224620000009", "Binta", t0))
	_, ok, err = r.Get(ctx, "224620000009")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewFileRegistryRequiresPath(t *testing.T) {
	_, err := NewFileRegistry("", nil)
	assert.Error(t, err)
}

func TestSupabaseRegistryTouchUpserts(t *testing.T) {
	var (
		method, path, onConflict, prefer string
		row                              map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		onConflict = r.URL.Query().Get("on_conflict")
		prefer = r.Header.Get("Prefer")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &row)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)

	client, err := supabase.NewClient(server.URL, "service-key", nil)
	require.NoError(t, err)

	err = NewSupabaseRegistry(client, "").Touch(context.Background(), "224620000002", "Mariama", t0)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/rest/v1/customers", path)
	assert.Equal(t, "phone", onConflict)
	assert.Contains(t, prefer, "resolution=merge-duplicates")
	assert.Equal(t, "224620000002", row["phone"])
	assert.Equal(t, "Mariama", row["name"])
	assert.Equal(t, ChannelWhatsApp, row["channel"])
}

func TestSupabaseRegistryGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.224620000003", r.URL.Query().Get("phone"))
		_, _ = w.Write([]byte(`[{"phone":"224620000003","name":"Aminata","channel":"WhatsApp",
			"first_seen":"2025-05-10T12:00:00Z","last_seen":"2025-05-11T08:30:00Z"}]`))
	}))
	t.Cleanup(server.Close)

	client, err := supabase.NewClient(server.URL, "service-key", nil)
	require.NoError(t, err)

	c, ok, err := NewSupabaseRegistry(client, "customers").Get(context.Background(), "224620000003")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Aminata", c.Name)
	assert.True(t, c.FirstSeen.Equal(t0))
}

func TestSupabaseRegistryTouchHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	client, err := supabase.NewClient(server.URL, "service-key", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = NewSupabaseRegistry(client, "").Touch(ctx, "224620000004", "Hawa", t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)
}
