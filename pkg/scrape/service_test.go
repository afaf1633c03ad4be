package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/salespulse/platform/pkg/common/database/dbtest"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/common/models"
	"github.com/salespulse/platform/pkg/events"
	"github.com/salespulse/platform/pkg/jobs"
	"github.com/salespulse/platform/pkg/targets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, _ string, _ map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	return nil
}

type env struct {
	targets *targets.Repository
	jobs    *jobs.Store
	pub     *recordingPublisher
}

func newEnv(t *testing.T) env {
	t.Helper()
	logger.Silence()
	db := dbtest.New(t)
	e := env{targets: targets.NewRepository(db), jobs: jobs.NewStore(db), pub: &recordingPublisher{}}
	require.NoError(t, e.targets.AutoMigrate())
	require.NoError(t, e.jobs.AutoMigrate())
	return e
}

func (e env) addTarget(t *testing.T, handle string, active bool) *targets.Target {
	t.Helper()
	tgt := &targets.Target{Name: handle, LinkedInURL: "https://linkedin.com/in/" + handle, Team: targets.TeamBDR, IsActive: active}
	require.NoError(t, e.targets.Create(context.Background(), tgt))
	return tgt
}

func webhook(t *testing.T, status int, seen chan<- models.TriggerRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.TriggerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && seen != nil {
			seen <- req
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTriggerWithoutActiveTargetsCreatesNoJob(t *testing.T) {
	e := newEnv(t)
	e.addTarget(t, "inactive", false)

	orch := NewOrchestrator(e.targets, e.jobs, NewHTTPTrigger("http://127.0.0.1:0", time.Second), e.pub)
	_, err := orch.TriggerScrape(context.Background())
	assert.ErrorIs(t, err, ErrNoEligibleTargets)

	list, err := e.jobs.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, e.pub.types)
}

func TestTriggerSuccessMovesJobToProcessing(t *testing.T) {
	e := newEnv(t)
	jane := e.addTarget(t, "jane", true)
	e.addTarget(t, "john", true)
	e.addTarget(t, "gone", false)

	seen := make(chan models.TriggerRequest, 1)
	srv := webhook(t, http.StatusOK, seen)

	orch := NewOrchestrator(e.targets, e.jobs, NewHTTPTrigger(srv.URL, time.Second), e.pub)
	jobID, err := orch.TriggerScrape(context.Background())
	require.NoError(t, err)

	req := <-seen
	assert.Equal(t, jobID.String(), req.JobID)
	require.Len(t, req.Users, 2)
	assert.Contains(t, req.Users, models.TriggerTarget{ID: jane.ID.String(), LinkedInURL: jane.LinkedInURL})

	job, err := e.jobs.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusProcessing, job.Status)
	assert.Equal(t, 2, job.TotalTargets)
	assert.Equal(t, jobs.TriggerDashboard, job.TriggeredBy)
	assert.Equal(t, []string{events.JobCreated, events.JobProcessing}, e.pub.types)
}

func TestTriggerFailureFailsJob(t *testing.T) {
	e := newEnv(t)
	e.addTarget(t, "jane", true)
	srv := webhook(t, http.StatusInternalServerError, nil)

	orch := NewOrchestrator(e.targets, e.jobs, NewHTTPTrigger(srv.URL, time.Second), e.pub)
	jobID, err := orch.TriggerScrape(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTriggerFailed)

	var failed *TriggerFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, jobID, failed.JobID)

	job, err := e.jobs.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "500")
	assert.Equal(t, []string{events.JobCreated, events.JobFailed}, e.pub.types)
}

func TestTriggerTimeoutFailsJob(t *testing.T) {
	e := newEnv(t)
	e.addTarget(t, "jane", true)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	orch := NewOrchestrator(e.targets, e.jobs, NewHTTPTrigger(srv.URL, 50*time.Millisecond), nil)
	jobID, err := orch.TriggerScrape(context.Background())
	assert.ErrorIs(t, err, ErrTriggerFailed)

	job, err := e.jobs.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, job.Status)
}

type racingTrigger struct {
	store *jobs.Store
}

// Trigger simulates an ingest that moves the job along before the webhook
// call returns.
func (r racingTrigger) Trigger(ctx context.Context, req models.TriggerRequest) error {
	id := uuid.MustParse(req.JobID)
	if err := r.store.MarkProcessing(ctx, id); err != nil {
		return err
	}
	return r.store.MarkCompleted(ctx, id, 0, 0, nil)
}

func TestTriggerToleratesJobAdvancedByIngest(t *testing.T) {
	e := newEnv(t)
	e.addTarget(t, "jane", true)

	orch := NewOrchestrator(e.targets, e.jobs, racingTrigger{store: e.jobs}, e.pub)
	jobID, err := orch.TriggerScrape(context.Background())
	require.NoError(t, err)

	job, err := e.jobs.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, job.Status)
}

func TestTriggerHandlerResponses(t *testing.T) {
	e := newEnv(t)
	router := mux.NewRouter()
	srv := webhook(t, http.StatusBadGateway, nil)
	NewHTTPHandler(NewOrchestrator(e.targets, e.jobs, NewHTTPTrigger(srv.URL, time.Second), nil)).Register(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/trigger", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"No active targets to scrape"}`, rec.Body.String())

	e.addTarget(t, "jane", true)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/trigger", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body models.TriggerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.NotEmpty(t, body.JobID)
}
