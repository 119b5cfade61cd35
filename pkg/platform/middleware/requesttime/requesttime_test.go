package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"trustcore/pkg/requestcontext"
)

func TestMiddleware(t *testing.T) {
	var gotID string
	var gotTime time.Time
	h := middleware.RequestID(Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotID = requestcontext.RequestID(r.Context())
		gotTime = requestcontext.Now(r.Context())
	})))

	before := time.Now()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "req-42", gotID)
	assert.False(t, gotTime.Before(before))
}
