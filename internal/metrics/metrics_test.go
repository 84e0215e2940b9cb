package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBrowse(t *testing.T) {
	before := testutil.ToFloat64(browseRequestsTotal.WithLabelValues("unknown", "error"))
	RecordBrowse("", false)
	after := testutil.ToFloat64(browseRequestsTotal.WithLabelValues("unknown", "error"))
	assert.InDelta(t, 1, after-before, 0)
}

func TestRecordTransferFile_CountsBytes(t *testing.T) {
	before := testutil.ToFloat64(transferBytesTotal)
	RecordTransferFile("success", 42)
	RecordTransferFile("failed", 0)
	assert.InDelta(t, 42, testutil.ToFloat64(transferBytesTotal)-before, 0)
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordHTTPRequest(http.MethodGet, "/v1/browse", http.StatusOK, 10*time.Millisecond)
	RecordUpstreamError(UpstreamGraph, "not_found")
	RecordTransferBatch(time.Second)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "spbridge_http_requests_total")
	assert.Contains(t, body, `spbridge_upstream_errors_total{kind="not_found",upstream="graph"}`)
	assert.Contains(t, body, "spbridge_transfer_batch_duration_seconds_bucket")
}
