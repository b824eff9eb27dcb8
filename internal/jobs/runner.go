package jobs

import (
	"context"
	"log"
	"time"

	"github.com/kswpuk/portal-api/utils"
)

// Job is one piece of scheduled work. Every tick the runner takes the
// distributed lock before running, so only one instance of the service
// executes a sweep even when several are deployed.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Runner struct {
	jobs []Job
}

func NewRunner(jobs ...Job) *Runner {
	return &Runner{jobs: jobs}
}

// Start launches one goroutine per job and returns. Jobs stop when the
// context is cancelled.
func (r *Runner) Start(ctx context.Context) {
	for _, job := range r.jobs {
		go r.loop(ctx, job)
	}
	log.Printf("⏰ Started %d scheduled jobs", len(r.jobs))
}

func (r *Runner) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx, job)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, job Job) {
	// Lock TTL under the interval so a crashed holder frees the next tick
	won, err := utils.AcquireLock(ctx, "portal:jobs:"+job.Name, job.Interval-time.Minute)
	if err != nil {
		log.Printf("⚠️ Lock check for job %s failed: %v", job.Name, err)
		return
	}
	if !won {
		return
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		log.Printf("❌ Job %s failed after %s: %v", job.Name, time.Since(start).Round(time.Millisecond), err)
		return
	}
	log.Printf("✅ Job %s completed in %s", job.Name, time.Since(start).Round(time.Millisecond))
}
