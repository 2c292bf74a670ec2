// Package scheduler drives an experiment: it enumerates trials, runs them
// in two passes (every trial once, then one retry pass over transport
// failures), and keeps the persisted status current so an interrupted run
// resumes where it stopped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shuffleval/shuffleval/internal/models"
	"github.com/shuffleval/shuffleval/internal/permute"
	"github.com/shuffleval/shuffleval/internal/providers"
	"github.com/shuffleval/shuffleval/internal/store"
)

// TrialExecutor runs one attempt of one trial.
type TrialExecutor interface {
	Execute(ctx context.Context, trial *models.Trial, attempt int) (*models.TrialResult, error)
}

// ProgressListener receives progress updates.
type ProgressListener func(event ProgressEvent)

// EventType identifies a progress event.
type EventType string

const (
	EventExperimentStart    EventType = "experiment_start"
	EventExperimentComplete EventType = "experiment_complete"
	EventTrialStart         EventType = "trial_start"
	EventTrialComplete      EventType = "trial_complete"
	EventTrialSkipped       EventType = "trial_skipped"
	EventTrialFailed        EventType = "trial_failed"
	EventTrialAbandoned     EventType = "trial_abandoned"
	EventCooldown           EventType = "cooldown"
	EventRetryPassStart     EventType = "retry_pass_start"
)

// ProgressEvent is one progress update.
type ProgressEvent struct {
	EventType    EventType
	ExperimentID string
	Task         string
	TrialNum     int
	TotalTrials  int
	Attempt      int
	Correct      bool
	DurationMs   int64
	Details      map[string]any
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSleep replaces the cooldown sleep.
func WithSleep(fn SleepFunc) Option {
	return func(s *Scheduler) {
		s.sleep = fn
	}
}

// WithCallDelay overrides the spec's inter-call pacing. Zero disables it.
func WithCallDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		s.setLimiter(d)
	}
}

// Scheduler runs one experiment to completion.
type Scheduler struct {
	spec      *models.ExperimentSpec
	questions []models.Question
	perms     []permute.Permutation
	exec      TrialExecutor
	st        *store.Store
	limiter   *rate.Limiter
	sleep     SleepFunc
	log       *slog.Logger

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// New builds a scheduler for a validated spec. The questions must already
// be the spec's [start, start+count) window.
func New(spec *models.ExperimentSpec, questions []models.Question, exec TrialExecutor, st *store.Store, opts ...Option) (*Scheduler, error) {
	mode, err := permute.ParseMode(spec.PermutationMode)
	if err != nil {
		return nil, err
	}
	perms, err := permute.Generate(mode, spec.PermutationCount)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		spec:      spec,
		questions: questions,
		perms:     perms,
		exec:      exec,
		st:        st,
		sleep:     defaultSleep,
		log:       slog.Default().With("experiment", spec.ID()),
	}
	s.setLimiter(spec.CallDelay)
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Scheduler) setLimiter(d time.Duration) {
	if d <= 0 {
		s.limiter = nil
		return
	}
	s.limiter = rate.NewLimiter(rate.Every(d), 1)
}

// OnProgress registers a progress listener.
func (s *Scheduler) OnProgress(listener ProgressListener) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *Scheduler) notifyProgress(event ProgressEvent) {
	s.progressMu.Lock()
	listeners := make([]ProgressListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.progressMu.Unlock()

	event.ExperimentID = s.spec.ID()
	for _, listener := range listeners {
		listener(event)
	}
}

// Enumerate lists every trial of the experiment in execution order:
// question-major, permutations in canonical order within each question.
func (s *Scheduler) Enumerate() []*models.Trial {
	trials := make([]*models.Trial, 0, len(s.questions)*len(s.perms))
	for qIdx, q := range s.questions {
		for pIdx, perm := range s.perms {
			trials = append(trials, &models.Trial{
				Question:         q,
				Permutation:      perm.Indices(),
				PermutationLabel: perm.Label(),
				Language:         s.spec.Language,
				InputFormat:      s.spec.InputFormat,
				OutputFormat:     s.spec.OutputFormat,
				Model:            s.spec.Model,
				QuestionIdx:      s.spec.StartQuestion + qIdx,
				PermIdx:          pIdx,
			})
		}
	}
	return trials
}

// RunSummary describes a finished (or finished-with-failures) run.
type RunSummary struct {
	ExperimentID string
	State        models.State
	Total        int
	Completed    int
	Skipped      int
	Retried      int
	Abandoned    int
	Correct      int
	Accuracy     float64
	Duration     time.Duration
}

// Run executes the experiment. Already-processed trials are skipped, so
// calling Run on a partially finished experiment resumes it. The context
// aborts the run between trials; persisted state stays consistent either
// way.
func (s *Scheduler) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	trials := s.Enumerate()

	status, err := s.st.LoadStatus()
	if err != nil {
		return nil, err
	}
	if status == nil {
		status = models.NewExperimentStatus(s.spec, len(trials))
	}
	status.State = models.StateRunning
	if err := s.st.WriteStatus(status); err != nil {
		return nil, err
	}

	summary := &RunSummary{ExperimentID: s.spec.ID(), Total: len(trials)}
	s.notifyProgress(ProgressEvent{EventType: EventExperimentStart, TotalTrials: len(trials)})
	s.log.Info("experiment start", "trials", len(trials), "questions", len(s.questions), "permutations", len(s.perms))

	// Pass 1: every trial once.
	for i, trial := range trials {
		id := trial.ID()
		if status.Processed(id) {
			summary.Skipped++
			s.notifyProgress(ProgressEvent{EventType: EventTrialSkipped, Task: trial.Task(), TrialNum: i + 1, TotalTrials: len(trials)})
			continue
		}
		if err := s.runTrial(ctx, trial, 1, i+1, len(trials), status, summary); err != nil {
			return nil, err
		}
	}

	if len(status.RetryQueue) > 0 {
		s.notifyProgress(ProgressEvent{
			EventType: EventCooldown,
			Details:   map[string]any{"seconds": s.spec.RetryCooldown.Seconds(), "queued": len(status.RetryQueue)},
		})
		s.log.Info("cooldown before retry pass", "queued", len(status.RetryQueue), "cooldown", s.spec.RetryCooldown)
		if err := s.sleep(ctx, s.spec.RetryCooldown); err != nil {
			return nil, s.persistInterrupt(status, err)
		}
	}

	if err := s.retryPass(ctx, trials, status, summary); err != nil {
		return nil, err
	}

	return s.finish(status, summary, start)
}

// RetryOnly re-runs only the persisted retry queue of an existing
// experiment. It fails if the experiment has no saved status.
func (s *Scheduler) RetryOnly(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	status, err := s.st.LoadStatus()
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, models.NewConfigError("experiment %s has no saved state to retry", s.spec.ID())
	}

	status.State = models.StateRunning
	if err := s.st.WriteStatus(status); err != nil {
		return nil, err
	}

	trials := s.Enumerate()
	summary := &RunSummary{ExperimentID: s.spec.ID(), Total: status.TotalExpected}
	if err := s.retryPass(ctx, trials, status, summary); err != nil {
		return nil, err
	}
	return s.finish(status, summary, start)
}

func (s *Scheduler) retryPass(ctx context.Context, trials []*models.Trial, status *models.ExperimentStatus, summary *RunSummary) error {
	queued := append([]string(nil), status.RetryQueue...)
	if len(queued) == 0 {
		return nil
	}

	s.notifyProgress(ProgressEvent{EventType: EventRetryPassStart, Details: map[string]any{"queued": len(queued)}})

	byID := make(map[string]*models.Trial, len(trials))
	for _, trial := range trials {
		byID[trial.ID()] = trial
	}

	for i, id := range queued {
		trial, ok := byID[id]
		if !ok {
			// Queue entry from an older enumeration; drop it.
			s.log.Warn("retry queue references unknown trial", "trial_id", id)
			status.MarkAbandoned(id, "trial no longer enumerated")
			if err := s.st.WriteStatus(status); err != nil {
				return err
			}
			continue
		}
		summary.Retried++
		if err := s.runTrial(ctx, trial, 2, i+1, len(queued), status, summary); err != nil {
			return err
		}
	}
	return nil
}

// runTrial executes one attempt and persists its outcome. Transport
// failures are terminal for the attempt, not the run: attempt 1 queues the
// trial for retry, attempt 2 abandons it.
func (s *Scheduler) runTrial(ctx context.Context, trial *models.Trial, attempt, num, total int, status *models.ExperimentStatus, summary *RunSummary) error {
	if err := ctx.Err(); err != nil {
		return s.persistInterrupt(status, err)
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return s.persistInterrupt(status, err)
		}
	}

	s.notifyProgress(ProgressEvent{EventType: EventTrialStart, Task: trial.Task(), TrialNum: num, TotalTrials: total, Attempt: attempt})

	id := trial.ID()
	result, err := s.exec.Execute(ctx, trial, attempt)
	if err != nil {
		var terr *providers.TransportError
		if !errors.As(err, &terr) {
			// Anything other than a transport failure is fatal.
			return s.persistInterrupt(status, err)
		}
		if result != nil {
			if aerr := s.st.Append(result); aerr != nil {
				return aerr
			}
		}
		if attempt == 1 {
			status.EnqueueRetry(id)
			s.notifyProgress(ProgressEvent{EventType: EventTrialFailed, Task: trial.Task(), TrialNum: num, TotalTrials: total, Attempt: attempt, Details: map[string]any{"error": err.Error()}})
			s.log.Warn("trial failed, queued for retry", "task", trial.Task(), "error", err)
		} else {
			if aerr := s.st.Append(models.AbandonedRecord{
				TrialID:     id,
				Task:        trial.Task(),
				Subtask:     trial.Question.Subtask,
				Model:       trial.Model,
				Attempts:    attempt,
				FinalError:  err.Error(),
				Abandoned:   true,
				AbandonedAt: time.Now().UTC(),
			}); aerr != nil {
				return aerr
			}
			status.MarkAbandoned(id, err.Error())
			summary.Abandoned++
			s.notifyProgress(ProgressEvent{EventType: EventTrialAbandoned, Task: trial.Task(), TrialNum: num, TotalTrials: total, Attempt: attempt, Details: map[string]any{"error": err.Error()}})
			s.log.Warn("trial abandoned", "task", trial.Task(), "error", err)
		}
		return s.st.WriteStatus(status)
	}

	if err := s.st.Append(result); err != nil {
		return err
	}
	status.MarkCompleted(id)
	summary.Completed++
	if result.Correct {
		summary.Correct++
	}
	s.notifyProgress(ProgressEvent{
		EventType:   EventTrialComplete,
		Task:        trial.Task(),
		TrialNum:    num,
		TotalTrials: total,
		Attempt:     attempt,
		Correct:     result.Correct,
		DurationMs:  result.LatencyMS,
	})
	return s.st.WriteStatus(status)
}

// persistInterrupt saves progress before surfacing an abort, so the next
// run resumes instead of restarting.
func (s *Scheduler) persistInterrupt(status *models.ExperimentStatus, cause error) error {
	if err := s.st.WriteStatus(status); err != nil {
		return fmt.Errorf("%w (and persisting status failed: %v)", cause, err)
	}
	return cause
}

func (s *Scheduler) finish(status *models.ExperimentStatus, summary *RunSummary, start time.Time) (*RunSummary, error) {
	status.Finish()
	if err := s.st.WriteStatus(status); err != nil {
		return nil, err
	}

	report, err := s.st.Finalize()
	if err != nil {
		return nil, err
	}

	summary.State = status.State
	summary.Completed = report.Completed
	summary.Abandoned = report.Abandoned
	summary.Correct = report.Correct
	summary.Accuracy = report.Accuracy
	summary.Duration = time.Since(start)

	s.notifyProgress(ProgressEvent{
		EventType: EventExperimentComplete,
		Details: map[string]any{
			"state":     string(status.State),
			"completed": report.Completed,
			"abandoned": report.Abandoned,
			"accuracy":  report.Accuracy,
		},
	})
	s.log.Info("experiment finished",
		"state", status.State,
		"completed", report.Completed,
		"abandoned", report.Abandoned,
		"accuracy", report.Accuracy,
		"duration", summary.Duration)
	return summary, nil
}
