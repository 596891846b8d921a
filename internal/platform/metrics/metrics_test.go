package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ExposesRegisteredCollectors(t *testing.T) {
	reg := NewRegistry()
	promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "test_total",
		Help:      "test counter",
	}).Inc()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "salgsmotor_test_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestPush(t *testing.T) {
	t.Run("empty url is a no-op", func(t *testing.T) {
		require.NoError(t, Push(context.Background(), "", "job", "", NewRegistry()))
	})

	t.Run("pushes to job and run grouping", func(t *testing.T) {
		var gotPath, gotMethod string
		gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotMethod = r.Method
			w.WriteHeader(http.StatusOK)
		}))
		defer gw.Close()

		err := Push(context.Background(), gw.URL, "salgsmotor_sync", "run-1", NewRegistry())
		require.NoError(t, err)
		assert.Equal(t, http.MethodPut, gotMethod)
		assert.Equal(t, "/metrics/job/salgsmotor_sync/run_id/run-1", gotPath)
	})

	t.Run("gateway error is returned", func(t *testing.T) {
		gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer gw.Close()

		require.Error(t, Push(context.Background(), gw.URL, "salgsmotor_sync", "", NewRegistry()))
	})
}
