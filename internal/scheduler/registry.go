// Package scheduler owns the in-process cron job registry and its durable
// mirror of desired job configuration.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/caseloft/store-service/internal/pkg/ident"
)

// JobFunc is the zero-argument callable a job kind dispatches to.
type JobFunc func(ctx context.Context)

// JobInfo is the management view of one scheduled job.
type JobInfo struct {
	ID       string `json:"id"`
	CronExpr string `json:"cronExpr"`
	Kind     string `json:"kind"`
	Running  bool   `json:"running"`
}

// job pairs a cron runner with its schedule and running state. Each job owns
// its own cron.Cron so start/stop on one job never disturbs another.
type job struct {
	cronExpr string
	kind     string
	runner   *cron.Cron
	running  bool
}

// Registry holds the live scheduled jobs. It is an owned, lifecycle-scoped
// object, constructed at process start and shut down with it; all map
// mutations are serialized by one mutex.
type Registry struct {
	mu     sync.Mutex
	jobs   map[string]*job
	kinds  map[string]JobFunc
	logger zerolog.Logger
}

// NewRegistry creates an empty job registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		jobs:   make(map[string]*job),
		kinds:  make(map[string]JobFunc),
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterKind wires a job kind to its callable. Kinds are registered once at
// wiring time, before any Register call.
func (r *Registry) RegisterKind(kind string, fn JobFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = fn
}

// Kinds returns the registered job kinds.
func (r *Registry) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// RunKind dispatches one immediate run of the given kind's callable on the
// calling goroutine. Returns false for an unknown kind.
func (r *Registry) RunKind(ctx context.Context, kind string) bool {
	r.mu.Lock()
	fn, ok := r.kinds[kind]
	r.mu.Unlock()
	if !ok {
		return false
	}
	fn(ctx)
	return true
}

// Register validates the cron expression and schedules a new job, started
// immediately. When id is empty a random one is generated; when a job already
// exists under the id its runner is stopped and discarded first, so two live
// tasks never share an id.
func (r *Registry) Register(cronExpr, kind, id string) (string, error) {
	cronExpr = strings.TrimSpace(cronExpr)
	if cronExpr == "" {
		return "", fmt.Errorf("cron expression is required")
	}
	// Five-field cron: minute hour day-of-month month day-of-week.
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return "", fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fn, ok := r.kinds[kind]
	if !ok {
		return "", fmt.Errorf("unknown job kind %q", kind)
	}

	if id == "" {
		id = ident.NewRandom(ident.PrefixJob)
	}

	if prev, exists := r.jobs[id]; exists {
		prev.runner.Stop()
		delete(r.jobs, id)
		r.logger.Info().Str("job_id", id).Msg("Replaced existing job under id")
	}

	runner := cron.New()
	if _, err := runner.AddFunc(cronExpr, func() { fn(context.Background()) }); err != nil {
		return "", fmt.Errorf("failed to schedule job: %w", err)
	}
	runner.Start()

	r.jobs[id] = &job{cronExpr: cronExpr, kind: kind, runner: runner, running: true}
	r.logger.Info().
		Str("job_id", id).
		Str("cron", cronExpr).
		Str("kind", kind).
		Msg("Job registered")
	return id, nil
}

// List returns the registered jobs, sorted by id for stable output.
func (r *Registry) List() []JobInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]JobInfo, 0, len(r.jobs))
	for id, j := range r.jobs {
		infos = append(infos, JobInfo{ID: id, CronExpr: j.cronExpr, Kind: j.kind, Running: j.running})
	}
	sort.Slice(infos, func(i, k int) bool { return infos[i].ID < infos[k].ID })
	return infos
}

// Start resumes a stopped job's timer. Returns false for an unknown id.
func (r *Registry) Start(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return false
	}
	if !j.running {
		j.runner.Start()
		j.running = true
		r.logger.Info().Str("job_id", id).Msg("Job started")
	}
	return true
}

// Stop pauses a job's timer without losing its schedule or identity. The stop
// takes effect for the next firing; an in-flight run is not interrupted.
// Returns false for an unknown id.
func (r *Registry) Stop(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return false
	}
	if j.running {
		j.runner.Stop()
		j.running = false
		r.logger.Info().Str("job_id", id).Msg("Job stopped")
	}
	return true
}

// Cancel stops a job and removes it from the registry. Returns false for an
// unknown id.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return false
	}
	j.runner.Stop()
	delete(r.jobs, id)
	r.logger.Info().Str("job_id", id).Msg("Job cancelled")
	return true
}

// Shutdown stops every runner. Called once at process teardown.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, j := range r.jobs {
		j.runner.Stop()
		j.running = false
		r.logger.Debug().Str("job_id", id).Msg("Job runner stopped on shutdown")
	}
}
