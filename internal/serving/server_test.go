package serving

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"xgbdeploy/internal/data"
)

type firstFeature struct{}

func (firstFeature) Fit(X [][]float64, y []int) error { return nil }
func (firstFeature) Name() string                     { return "FirstFeature" }
func (firstFeature) PredictProba(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, x := range X {
		if len(x) == 0 {
			return nil, errors.New("linha vazia")
		}
		out[i] = x[0]
	}
	return out, nil
}

func TestInvocations(t *testing.T) {
	h := New(firstFeature{}, zap.NewNop()).WithAPIKey("").Handler()

	req := httptest.NewRequest(http.MethodPost, "/invocations", bytes.NewReader(data.EncodeRows([][]float64{{0.2, 9}, {0.7, 1}})))
	req.Header.Set("Content-Type", data.ContentTypeCSV)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "0.2,0.7", rec.Body.String())
}

func TestInvocationsBadBody(t *testing.T) {
	h := New(firstFeature{}, zap.NewNop()).WithAPIKey("").Handler()
	req := httptest.NewRequest(http.MethodPost, "/invocations", bytes.NewReader([]byte("a,b\n")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPingAndAPIKey(t *testing.T) {
	h := New(firstFeature{}, zap.NewNop()).WithAPIKey("secret").Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invocations", bytes.NewReader([]byte("1\n"))))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/invocations", bytes.NewReader([]byte("1\n")))
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStartAndShutdown(t *testing.T) {
	s := New(firstFeature{}, zap.NewNop()).WithAPIKey("")
	base, err := s.Start("127.0.0.1:0")
	require.NoError(t, err)

	resp, err := http.Get(base + "/ping")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown(context.Background()))
}
