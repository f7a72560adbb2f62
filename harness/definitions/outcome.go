package definitions

// RunState tracks a scenario run through its lifecycle. Succeeded and Failed
// are terminal.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateSucceeded RunState = "succeeded"
	StateFailed    RunState = "failed"
)

// OutcomeKind classifies one screen comparison.
type OutcomeKind string

const (
	OutcomeMatch            OutcomeKind = "match"
	OutcomeMismatch         OutcomeKind = "mismatch"
	OutcomeReferenceMissing OutcomeKind = "reference_missing"
	OutcomeTimedOut         OutcomeKind = "timed_out"
)

// Outcome is the result of comparing a capture against its reference image.
// RMS is the root-mean-square pixel difference of the last frame inspected.
// DiagnosticPath is set when a timeout produced a fail_ capture.
type Outcome struct {
	Kind           OutcomeKind `json:"kind"`
	RMS            float64     `json:"rms"`
	DiagnosticPath string      `json:"diagnostic_path,omitempty"`
}

// Result is the terminal, immutable outcome of one run.
type Result struct {
	Model  string `json:"model"`
	Test   string `json:"test"`
	RunID  string `json:"run_id"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}
