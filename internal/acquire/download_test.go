package acquire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchWritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(",age,y_no,y_yes\n0,30,1,0\n"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "sub", "bank_clean.csv")
	require.False(t, Cached(dest))
	n, err := Fetch(context.Background(), srv.Client(), srv.URL, dest)
	require.NoError(t, err)
	require.Equal(t, int64(25), n)
	require.True(t, Cached(dest))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFetchFailureKeepsPreviousCopy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "bank_clean.csv")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0o644))

	_, err := Fetch(context.Background(), srv.Client(), srv.URL, dest)
	require.Error(t, err)
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "old", string(b))
}

func TestFetchHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Fetch(ctx, nil, "http://127.0.0.1:1/never", filepath.Join(t.TempDir(), "x.csv"))
	require.Error(t, err)
}
