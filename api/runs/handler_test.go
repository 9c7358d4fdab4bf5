package runs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/loadshift/infra/store"
)

func seed(t *testing.T) store.RunStore {
	t.Helper()
	s, err := store.NewJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"), 0, 0, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, hh := range []string{"h1", "h2", "h1"} {
		require.NoError(t, s.Append(context.Background(), store.RunRecord{
			RunID:     hh + "-" + string(rune('a'+i)),
			Household: hh,
			Tariff:    "Night",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	return s
}

func get(h http.Handler, url, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerAuthAndFilters(t *testing.T) {
	h := NewHandler(seed(t), "tok")

	rr := get(h, "/api/runs?household=h1", "tok")
	require.Equal(t, http.StatusOK, rr.Code)
	var out []store.RunRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Len(t, out, 2)

	rr = get(h, "/api/runs?start=2024-03-01T12:30:00Z&end=2024-03-01T13:30:00Z", "tok")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "h2", out[0].Household)

	rr = get(h, "/api/runs", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = get(h, "/api/runs", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerEmptyAndBadRequest(t *testing.T) {
	h := NewHandler(seed(t), "")

	rr := get(h, "/api/runs?household=nobody", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	rr = get(h, "/api/runs?start=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/runs", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
