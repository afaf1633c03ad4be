package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersRenderInPrometheusFormat(t *testing.T) {
	before := Read()
	JobTriggered()
	ObserveBatch(2, 1, 1)

	after := Read()
	assert.Equal(t, before.JobsTriggered+1, after.JobsTriggered)
	assert.Equal(t, before.PostsNew+2, after.PostsNew)
	assert.Equal(t, before.BatchesIngested+1, after.BatchesIngested)

	rec := httptest.NewRecorder()
	Handler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "# TYPE salespulse_scrape_jobs_triggered_total counter")
	assert.Contains(t, body, "salespulse_ingest_posts_new_total ")
	assert.Equal(t, "text/plain; version=0.0.4", rec.Header().Get("Content-Type"))
}
