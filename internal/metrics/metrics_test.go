package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	// Collectors are usable after repeated Init.
	AddIndexed(3)
	ObserveWindow("ok")
	ObserveWindow("failed")
	ObserveFetch("fetched")
	IncRawStored()
	SetPending(42)
	ObserveThrottleDelay(150 * time.Millisecond)
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	AddIndexed(1)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "scraper_identifiers_indexed_total")
}
