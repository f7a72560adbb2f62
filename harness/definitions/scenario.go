package definitions

import "strings"

const waitPrefix = "wait "

// InputStep is one element of a scenario: a symbolic key name plus an
// optional extended-wait flag for slow menu transitions.
type InputStep struct {
	Key          string `json:"key"`
	ExtendedWait bool   `json:"extended_wait,omitempty"`
}

// ParseSequence converts the raw key-sequence strings from a scenario table
// into InputSteps. Prefixing a key with "wait " marks the step as needing the
// long settle delay, e.g. "wait l" for cams where live view takes several
// seconds to activate.
func ParseSequence(keys []string) []InputStep {
	steps := make([]InputStep, 0, len(keys))
	for _, k := range keys {
		step := InputStep{Key: k}
		if strings.HasPrefix(k, waitPrefix) {
			step.Key = strings.TrimSpace(strings.TrimPrefix(k, waitPrefix))
			step.ExtendedWait = true
		}
		steps = append(steps, step)
	}
	return steps
}
