package httpserver_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"trustcore/internal/platform/httpserver"
	"trustcore/pkg/testutil"
)

func TestOpsRouter(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("healthz always answers", func(t *testing.T) {
		rr := testutil.DoRequest(httpserver.OpsRouter(nil, nil), testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, "ok", (*testutil.UnmarshalResponse[map[string]string](t, rr))["status"])
	})

	t.Run("readyz reports every check", func(t *testing.T) {
		router := httpserver.OpsRouter(nil, map[string]httpserver.Check{"postgres": healthy, "redis": down})
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/readyz"))
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)

		body := *testutil.UnmarshalResponse[map[string]string](t, rr)
		assert.Equal(t, "ok", body["postgres"])
		assert.Equal(t, "connection refused", body["redis"])
	})

	t.Run("readyz passes when all checks pass", func(t *testing.T) {
		router := httpserver.OpsRouter(nil, map[string]httpserver.Check{"postgres": healthy})
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/readyz"))
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("metrics handler is mounted", func(t *testing.T) {
		called := false
		metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})
		testutil.DoRequest(httpserver.OpsRouter(metrics, nil), testutil.NewRequest(t, http.MethodGet, "/metrics"))
		assert.True(t, called)
	})
}
