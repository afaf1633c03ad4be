package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	jobsTriggered   atomic.Int64
	triggerFailures atomic.Int64
	batchesIngested atomic.Int64
	batchesRejected atomic.Int64
	postsNew        atomic.Int64
	postsUpdated    atomic.Int64
	postsSkipped    atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64
)

func JobTriggered()    { jobsTriggered.Add(1) }
func TriggerFailed()   { triggerFailures.Add(1) }
func BatchRejected()   { batchesRejected.Add(1) }
func LeaderboardHit()  { cacheHits.Add(1) }
func LeaderboardMiss() { cacheMisses.Add(1) }

func ObserveBatch(newPosts, updatedPosts, skipped int) {
	batchesIngested.Add(1)
	postsNew.Add(int64(newPosts))
	postsUpdated.Add(int64(updatedPosts))
	postsSkipped.Add(int64(skipped))
}

type Snapshot struct {
	JobsTriggered   int64
	TriggerFailures int64
	BatchesIngested int64
	BatchesRejected int64
	PostsNew        int64
	PostsUpdated    int64
	PostsSkipped    int64
	CacheHits       int64
	CacheMisses     int64
}

func Read() Snapshot {
	return Snapshot{
		JobsTriggered:   jobsTriggered.Load(),
		TriggerFailures: triggerFailures.Load(),
		BatchesIngested: batchesIngested.Load(),
		BatchesRejected: batchesRejected.Load(),
		PostsNew:        postsNew.Load(),
		PostsUpdated:    postsUpdated.Load(),
		PostsSkipped:    postsSkipped.Load(),
		CacheHits:       cacheHits.Load(),
		CacheMisses:     cacheMisses.Load(),
	}
}

type counter struct {
	name string
	help string
	get  func() int64
}

var counters = []counter{
	{"salespulse_scrape_jobs_triggered_total", "Scrape jobs created by a trigger request.", jobsTriggered.Load},
	{"salespulse_scrape_trigger_failures_total", "Trigger calls to the scraping workflow that failed.", triggerFailures.Load},
	{"salespulse_ingest_batches_total", "Result batches accepted by the ingest webhook.", batchesIngested.Load},
	{"salespulse_ingest_batches_rejected_total", "Result batches rejected for auth, schema or job state.", batchesRejected.Load},
	{"salespulse_ingest_posts_new_total", "Posts inserted by ingest.", postsNew.Load},
	{"salespulse_ingest_posts_updated_total", "Existing posts whose engagement was refreshed.", postsUpdated.Load},
	{"salespulse_ingest_items_skipped_total", "Posts or targets skipped during ingest.", postsSkipped.Load},
	{"salespulse_leaderboard_cache_hits_total", "Leaderboard reads served from cache.", cacheHits.Load},
	{"salespulse_leaderboard_cache_misses_total", "Leaderboard reads computed from the database.", cacheMisses.Load},
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	for _, c := range counters {
		fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", c.name)
		fmt.Fprintf(w, "%s %d\n", c.name, c.get())
	}
}

func Handler(w http.ResponseWriter, _ *http.Request) {
	WritePrometheus(w)
}
