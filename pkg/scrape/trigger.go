package scrape

import (
	"context"
	"net/http"
	"time"

	"github.com/salespulse/platform/pkg/common/models"
	"github.com/salespulse/platform/pkg/gateway/httpclient"
)

// Trigger hands a job's targets to the external scraping workflow.
type Trigger interface {
	Trigger(ctx context.Context, req models.TriggerRequest) error
}

// HTTPTrigger posts the payload to a webhook. The call is made once; a
// failure fails the job rather than being retried.
type HTTPTrigger struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

func NewHTTPTrigger(url string, timeout time.Duration) *HTTPTrigger {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTrigger{url: url, timeout: timeout, client: httpclient.New(timeout)}
}

func (t *HTTPTrigger) Trigger(ctx context.Context, req models.TriggerRequest) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return httpclient.DoJSON(ctx, t.client, http.MethodPost, t.url, nil, req, nil)
}
