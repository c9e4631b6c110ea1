package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDownloadMetrics_Counters(t *testing.T) {
	m := New("downloader")

	m.Transition("completed")
	m.Transition("completed")
	m.Transition("failed")
	m.Sweep("expiry", 3, 2, 1)
	m.InFlight(1)
	m.InFlight(1)
	m.InFlight(-1)
	m.QueueDepth(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sweep.WithLabelValues("expiry", "matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweep.WithLabelValues("expiry", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.queueDepth))
}

func TestDownloadMetrics_Histograms(t *testing.T) {
	m := New("downloader")
	m.ExtractionDuration("audio", 3*time.Second)
	m.FileSize("audio", 2<<20)
	m.FileSize("audio", 0)

	assert.Equal(t, 1, testutil.CollectAndCount(m.extraction))
	assert.Equal(t, 1, testutil.CollectAndCount(m.fileSize))
}

func TestDownloadMetrics_Handler(t *testing.T) {
	m := New("downloader")
	m.Transition("expired")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `downloader_download_transitions_total{status="expired"} 1`)
}
