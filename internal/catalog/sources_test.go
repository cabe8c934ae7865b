package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supabase-community/supabase-go"
)

func TestProductUnmarshalAcceptsStringNumbers(t *testing.T) {
	var products []Product
	err := json.Unmarshal([]byte(`[
		{"name":" Robe de Soirée ","price":"350000","stock":3,"category":"Robes"},
		{"name":"Sac à Main Cuir","price":95000,"stock":"-2","category":"Sacs"},
		{"name":"Bijoux","price":null,"category":"Bijoux"}
	]`), &products)
	require.NoError(t, err)
	require.Len(t, products, 3)

	assert.Equal(t, Product{Name: "Robe de Soirée", Price: 350000, Stock: 3, Category: "Robes"}, products[0])
	assert.Equal(t, 0, products[1].Stock, "negative stock is clamped")
	assert.Equal(t, float64(0), products[2].Price)
}

func TestProductUnmarshalRejectsGarbagePrice(t *testing.T) {
	var p Product
	err := json.Unmarshal([]byte(`{"name":"x","price":"cheap"}`), &p)
	require.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"Chemise Femme","price":85000,"stock":15,"category":"Tops"}]`))
	}))
	t.Cleanup(server.Close)

	src := NewHTTPSource(server.URL, "secret", server.Client())
	products, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Product{{Name: "Chemise Femme", Price: 85000, Stock: 15, Category: "Tops"}}, products)
}

func TestHTTPSourceNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	t.Cleanup(server.Close)

	_, err := NewHTTPSource(server.URL, "", server.Client()).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSQLiteSourceSeedAndFetch(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	src := NewSQLiteSource(db)
	ctx := context.Background()

	inserted, err := src.Seed(ctx, DemoProducts())
	require.NoError(t, err)
	assert.Equal(t, 8, inserted)

	inserted, err = src.Seed(ctx, DemoProducts())
	require.NoError(t, err)
	assert.Zero(t, inserted, "seed must not duplicate rows")

	_, err = db.Exec("UPDATE products SET active = 0 WHERE name = ?", "Robe de Soirée")
	require.NoError(t, err)

	products, err := src.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, products, 7)
	assert.Equal(t, DemoProducts()[0], products[0])
	for _, p := range products {
		assert.NotEqual(t, "Robe de Soirée", p.Name)
	}
}

func TestSupabaseSource(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"Pantalon Élégant","price":140000,"stock":7,"category":"Pantalons"}]`))
	}))
	t.Cleanup(server.Close)

	client, err := supabase.NewClient(server.URL, "anon-key", nil)
	require.NoError(t, err)

	products, err := NewSupabaseSource(client, "").Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/rest/v1/products", gotPath)
	assert.Contains(t, gotQuery, "status=eq.active")
	assert.Equal(t, []Product{{Name: "Pantalon Élégant", Price: 140000, Stock: 7, Category: "Pantalons"}}, products)
}

func TestSupabaseSourceHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	client, err := supabase.NewClient(server.URL, "anon-key", nil)
	require.NoError(t, err)
	cache := NewCache(CacheConfig{Source: NewSupabaseSource(client, ""), TTL: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = cache.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)

	_, loaded := cache.Peek()
	assert.False(t, loaded)
}
