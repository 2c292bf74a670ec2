package models

import "time"

// State is the coarse lifecycle of one experiment run.
type State string

const (
	StateNotStarted            State = "not_started"
	StateRunning               State = "running"
	StateCompleted             State = "completed"
	StateCompletedWithFailures State = "completed_with_failures"
)

// Terminal reports whether the state is final for a run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCompletedWithFailures
}

// ExperimentStatus is the mutable aggregate for one experiment run. The
// scheduler owns it exclusively and persists it after every trial state
// transition, making it the single source of truth for resumability.
type ExperimentStatus struct {
	ExperimentID string `json:"experiment_id"`
	Subtask      string `json:"subtask"`
	Model        string `json:"model"`
	Language     string `json:"language"`
	InputFormat  string `json:"input_format"`
	OutputFormat string `json:"output_format"`
	Permutation  string `json:"permutation_mode"`

	State         State `json:"status"`
	TotalExpected int   `json:"total_expected"`
	Completed     int   `json:"completed"`
	Abandoned     int   `json:"abandoned"`

	// CompletedTrials and AbandonedTrials hold trial identifiers already in
	// a terminal state; resume skips any trial found in either set.
	// AbandonedTrials maps the identifier to its final error.
	CompletedTrials map[string]bool   `json:"completed_trials"`
	AbandonedTrials map[string]string `json:"abandoned_trials"`

	// RetryQueue holds identifiers that failed transport in the initial pass
	// and are awaiting their single retry, in enumeration order.
	RetryQueue []string `json:"retry_queue"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewExperimentStatus creates a fresh status for an experiment.
func NewExperimentStatus(spec *ExperimentSpec, totalExpected int) *ExperimentStatus {
	now := time.Now().UTC()
	return &ExperimentStatus{
		ExperimentID:    spec.ID(),
		Subtask:         spec.Subtask,
		Model:           spec.Model,
		Language:        spec.Language,
		InputFormat:     spec.InputFormat,
		OutputFormat:    spec.OutputFormat,
		Permutation:     spec.PermutationMode,
		State:           StateNotStarted,
		TotalExpected:   totalExpected,
		CompletedTrials: make(map[string]bool),
		AbandonedTrials: make(map[string]string),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Processed reports whether the trial already reached a terminal state in a
// previous (or the current) run.
func (s *ExperimentStatus) Processed(trialID string) bool {
	return s.CompletedTrials[trialID] || s.isAbandoned(trialID)
}

func (s *ExperimentStatus) isAbandoned(trialID string) bool {
	_, ok := s.AbandonedTrials[trialID]
	return ok
}

// MarkCompleted records a trial's terminal success. A completed trial is
// also removed from the retry queue in case it succeeded on its retry.
func (s *ExperimentStatus) MarkCompleted(trialID string) {
	if s.CompletedTrials == nil {
		s.CompletedTrials = make(map[string]bool)
	}
	s.CompletedTrials[trialID] = true
	s.removeFromRetryQueue(trialID)
	s.Completed = len(s.CompletedTrials)
	s.UpdatedAt = time.Now().UTC()
}

// EnqueueRetry records a transport failure from the initial pass. Enqueueing
// is idempotent: a trial appears in the queue at most once.
func (s *ExperimentStatus) EnqueueRetry(trialID string) {
	for _, id := range s.RetryQueue {
		if id == trialID {
			return
		}
	}
	s.RetryQueue = append(s.RetryQueue, trialID)
	s.UpdatedAt = time.Now().UTC()
}

// MarkAbandoned records a trial's terminal failure after its single retry.
func (s *ExperimentStatus) MarkAbandoned(trialID, finalError string) {
	if s.AbandonedTrials == nil {
		s.AbandonedTrials = make(map[string]string)
	}
	s.AbandonedTrials[trialID] = finalError
	s.removeFromRetryQueue(trialID)
	s.Abandoned = len(s.AbandonedTrials)
	s.UpdatedAt = time.Now().UTC()
}

func (s *ExperimentStatus) removeFromRetryQueue(trialID string) {
	for i, id := range s.RetryQueue {
		if id == trialID {
			s.RetryQueue = append(s.RetryQueue[:i], s.RetryQueue[i+1:]...)
			return
		}
	}
}

// Finish stamps the terminal state: completed_with_failures when anything
// was abandoned, completed otherwise.
func (s *ExperimentStatus) Finish() {
	if s.Abandoned > 0 {
		s.State = StateCompletedWithFailures
	} else {
		s.State = StateCompleted
	}
	s.UpdatedAt = time.Now().UTC()
}

// Pending returns the number of trials that have not reached a terminal
// state yet.
func (s *ExperimentStatus) Pending() int {
	return s.TotalExpected - s.Completed - s.Abandoned
}
