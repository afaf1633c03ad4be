package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/salespulse/platform/pkg/common/models"
	"github.com/salespulse/platform/pkg/gateway/httpclient"
)

const apiPrefix = "/api/v1"

var ErrNotLoggedIn = errors.New("no session token; call Login first")

// APIClient talks to the leaderboard API with an admin session token.
type APIClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.New(timeout),
	}
}

func (c *APIClient) Login(ctx context.Context, password string) error {
	var resp models.SessionResponse
	err := httpclient.DoJSON(ctx, c.http, http.MethodPost, c.baseURL+apiPrefix+"/admin/session", nil,
		models.SessionRequest{Password: password}, &resp)
	if err != nil {
		return fmt.Errorf("admin login: %w", err)
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return nil
}

// Trigger starts a scrape and returns the new job id. When the workflow call
// failed server-side the returned error carries the server's message.
func (c *APIClient) Trigger(ctx context.Context) (string, error) {
	headers, err := c.authHeaders()
	if err != nil {
		return "", err
	}

	var resp models.TriggerResponse
	err = httpclient.DoJSON(ctx, c.http, http.MethodPost, c.baseURL+apiPrefix+"/jobs/trigger", headers, nil, &resp)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			var failed models.TriggerResponse
			if json.Unmarshal([]byte(statusErr.Body), &failed) == nil && failed.Error != "" {
				return failed.JobID, fmt.Errorf("trigger scrape: %s", failed.Error)
			}
		}
		return "", fmt.Errorf("trigger scrape: %w", err)
	}
	if !resp.Success || resp.JobID == "" {
		return resp.JobID, fmt.Errorf("trigger scrape: %s", resp.Error)
	}
	return resp.JobID, nil
}

func (c *APIClient) JobStatus(ctx context.Context, jobID string) (*models.JobStatusResponse, error) {
	headers, err := c.authHeaders()
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + apiPrefix + "/jobs/status/" + url.PathEscape(jobID)
	var resp models.JobStatusResponse
	err = httpclient.Retry(ctx, 3, 200*time.Millisecond, func() error {
		return httpclient.DoJSON(ctx, c.http, http.MethodGet, endpoint, headers, nil, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("job status: %w", err)
	}
	return &resp, nil
}

func (c *APIClient) authHeaders() (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return nil, ErrNotLoggedIn
	}
	return map[string]string{"Authorization": "Bearer " + c.token}, nil
}
