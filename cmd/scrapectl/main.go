// Command scrapectl triggers a scrape through the leaderboard API and follows
// the job until it completes or fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salespulse/platform/pkg/common/config"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/common/models"
	"github.com/salespulse/platform/pkg/poller"
)

func main() {
	logger.Init("scrapectl")
	cfg := config.Load()

	apiURL := flag.String("api", cfg.APIBaseURL, "leaderboard API base URL (API_BASE_URL)")
	jobID := flag.String("job", "", "follow an existing job instead of triggering a new one")
	interval := flag.Duration("interval", cfg.PollInterval, "status poll interval")
	timeout := flag.Duration("timeout", 30*time.Minute, "give up after this long")
	flag.Parse()

	cfg.APIBaseURL = *apiURL
	if err := cfg.Require(config.CLIRequired...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	os.Exit(run(ctx, poller.NewAPIClient(cfg.APIBaseURL, 15*time.Second), cfg.AdminPassword, *jobID, *interval))
}

func run(ctx context.Context, client *poller.APIClient, password, jobID string, interval time.Duration) int {
	if err := client.Login(ctx, password); err != nil {
		fmt.Fprintln(os.Stderr, "login failed:", err)
		return 1
	}

	exitCode := 0
	p := poller.New(client, interval, poller.Callbacks{
		OnProgress: func(progress models.JobProgress) {
			fmt.Printf("processing %d/%d targets\n", progress.Processed, progress.Total)
		},
		OnComplete: func(summary models.JobSummary) {
			fmt.Printf("completed: %d new posts, %d updated\n", summary.NewPosts, summary.UpdatedPosts)
			for _, warning := range summary.Warnings {
				fmt.Println("warning:", warning)
			}
		},
		OnError: func(message string) {
			fmt.Fprintln(os.Stderr, "failed:", message)
			exitCode = 1
		},
	})

	var err error
	if jobID == "" {
		jobID, err = p.TriggerAndPoll(ctx, client)
	} else {
		err = p.Start(ctx, jobID)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("job", jobID)

	if err := p.Wait(ctx); err != nil {
		p.Reset()
		fmt.Fprintln(os.Stderr, "stopped waiting:", err)
		return 1
	}
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "stopped waiting:", ctx.Err())
		return 1
	}
	return exitCode
}
