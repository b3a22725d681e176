package models

// Outcome reports whether a workflow call changed anything, and if not, why.
// Callers treating the workflow as "silent" can ignore it; tests and logs should not.
type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeInvalidState Outcome = "invalid_state"
	OutcomeDuplicate    Outcome = "duplicate"
)

// Applied reports whether the call had an effect.
func (o Outcome) Applied() bool {
	return o == OutcomeApplied
}
