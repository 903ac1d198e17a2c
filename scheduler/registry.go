package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/kmoganti/stock-trading-system-sub001/services/scanner"

	"github.com/go-co-op/gocron"
)

// JobState is the lifecycle state of one scheduled job. Triggered and
// Skipped are transient; a job observed from outside is Idle or Running.
type JobState string

const (
	JobStateIdle    JobState = "idle"
	JobStateRunning JobState = "running"
)

// ScanRunner runs one scan for a category set. Satisfied by
// scanner.UnifiedScanCoordinator.
type ScanRunner interface {
	Run(ctx context.Context, categories []scanner.Category) (*scanner.ScanResult, error)
}

// JobSpec declares one recurring trigger. At most one instance of a job id
// runs at a time; firings that arrive while an instance is running are
// coalesced into a single skip, and firings later than MisfireGrace past
// their scheduled time are dropped rather than executed.
type JobSpec struct {
	ID           string             `json:"id"`
	Cron         string             `json:"cron"` // standard 5-field cron, evaluated in the registry's timezone
	Categories   []scanner.Category `json:"categories"`
	Coalesce     bool               `json:"coalesce"`
	MisfireGrace time.Duration      `json:"misfire_grace"`
}

// JobStatus is a read-only view of one job's state machine.
type JobStatus struct {
	ID         string             `json:"id"`
	Cron       string             `json:"cron"`
	Categories []scanner.Category `json:"categories"`
	State      JobState           `json:"state"`
	Runs       int                `json:"runs"`
	Skips      int                `json:"skips"`
	Misfires   int                `json:"misfires"`
	LastRunAt  time.Time          `json:"last_run_at"`
	NextRunAt  time.Time          `json:"next_run_at"`
}

type jobEntry struct {
	spec JobSpec
	job  *gocron.Job

	mu         sync.Mutex
	state      JobState
	runs       int
	skips      int
	misfires   int
	lastRunAt  time.Time
	expectedAt time.Time // scheduled time of the next firing
}

// ScheduleRegistry owns the named recurring jobs that invoke the unified
// scan coordinator. gocron provides the timers; the registry itself
// enforces the no-overlap, coalesce, and misfire semantics per job.
type ScheduleRegistry struct {
	cron   *gocron.Scheduler
	runner ScanRunner

	mu      sync.RWMutex
	jobs    map[string]*jobEntry
	started bool
}

// NewScheduleRegistry creates a registry whose triggers fire in the given
// timezone.
func NewScheduleRegistry(tz *time.Location, runner ScanRunner) *ScheduleRegistry {
	if tz == nil {
		tz = time.UTC
	}
	return &ScheduleRegistry{
		cron:   gocron.NewScheduler(tz),
		runner: runner,
		jobs:   make(map[string]*jobEntry),
	}
}

// Register declares a job. A malformed trigger spec is a configuration
// error and fails here, at startup, not at fire time.
func (r *ScheduleRegistry) Register(spec JobSpec) error {
	if spec.ID == "" {
		return errors.New("scheduler: job id is required")
	}
	if len(spec.Categories) == 0 {
		return fmt.Errorf("scheduler: job %s declares no categories", spec.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[spec.ID]; exists {
		return fmt.Errorf("scheduler: job %s already registered", spec.ID)
	}

	entry := &jobEntry{spec: spec, state: JobStateIdle}
	job, err := r.cron.Cron(spec.Cron).Tag(spec.ID).Do(r.fire, entry)
	if err != nil {
		return fmt.Errorf("scheduler: job %s has invalid trigger %q: %w", spec.ID, spec.Cron, err)
	}
	entry.job = job
	r.jobs[spec.ID] = entry
	return nil
}

// Start begins firing triggers. Idempotent.
func (r *ScheduleRegistry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}
	r.cron.StartAsync()
	r.started = true

	for _, entry := range r.jobs {
		entry.mu.Lock()
		entry.expectedAt = entry.job.NextRun()
		entry.mu.Unlock()
	}
	log.Printf("scheduler: started with %d job(s)", len(r.jobs))
}

// Stop halts all triggers. Running scans finish under the coordinator's
// own timeout; the registry does not impose a second timeout layer.
func (r *ScheduleRegistry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return
	}
	r.cron.Stop()
	r.started = false
	log.Println("scheduler: stopped")
}

// Started reports whether triggers are currently firing.
func (r *ScheduleRegistry) Started() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.started
}

// Jobs returns a snapshot of every job's state, sorted by id.
func (r *ScheduleRegistry) Jobs() []JobStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]JobStatus, 0, len(r.jobs))
	for _, entry := range r.jobs {
		entry.mu.Lock()
		status := JobStatus{
			ID:         entry.spec.ID,
			Cron:       entry.spec.Cron,
			Categories: entry.spec.Categories,
			State:      entry.state,
			Runs:       entry.runs,
			Skips:      entry.skips,
			Misfires:   entry.misfires,
			LastRunAt:  entry.lastRunAt,
		}
		if entry.job != nil {
			status.NextRunAt = entry.job.NextRun()
		}
		entry.mu.Unlock()
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RunJobNow fires a job outside its schedule, subject to the same
// no-overlap guard.
func (r *ScheduleRegistry) RunJobNow(id string) error {
	r.mu.RLock()
	entry, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown job %q", id)
	}
	go r.fire(entry)
	return nil
}

// fire is the per-trigger entry point: Idle -> Triggered -> Running ->
// Idle, or Triggered -> Skipped when the overlap guard or misfire window
// rejects the firing.
func (r *ScheduleRegistry) fire(entry *jobEntry) {
	now := time.Now()

	entry.mu.Lock()
	expected := entry.expectedAt
	if entry.job != nil {
		entry.expectedAt = entry.job.NextRun()
	}

	if entry.spec.MisfireGrace > 0 && !expected.IsZero() && now.Sub(expected) > entry.spec.MisfireGrace {
		entry.misfires++
		entry.skips++
		entry.mu.Unlock()
		log.Printf("scheduler: job %s misfired, %s past its scheduled time, dropped", entry.spec.ID, now.Sub(expected).Round(time.Second))
		return
	}

	if entry.state == JobStateRunning {
		entry.skips++
		entry.mu.Unlock()
		if entry.spec.Coalesce {
			log.Printf("scheduler: job %s still running, firing coalesced into skip", entry.spec.ID)
		} else {
			log.Printf("scheduler: job %s still running, firing skipped", entry.spec.ID)
		}
		return
	}

	entry.state = JobStateRunning
	entry.mu.Unlock()

	defer func() {
		entry.mu.Lock()
		entry.state = JobStateIdle
		entry.runs++
		entry.lastRunAt = time.Now()
		if entry.job != nil {
			entry.expectedAt = entry.job.NextRun()
		}
		entry.mu.Unlock()
	}()

	if _, err := r.runner.Run(context.Background(), entry.spec.Categories); err != nil {
		if errors.Is(err, scanner.ErrScanInProgress) {
			log.Printf("scheduler: job %s yielded to an in-progress scan", entry.spec.ID)
			return
		}
		log.Printf("scheduler: job %s failed: %v", entry.spec.ID, err)
	}
}
