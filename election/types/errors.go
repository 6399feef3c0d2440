package types

import "fmt"

// Precondition is a business rule that is already known to be violated from
// the latest local or remote read. It can only be cleared by the world
// changing, for instance an administrator opening the voting window.
type Precondition string

// The preconditions checked by the pipelines before any billable call.
const (
	NotRegistered     Precondition = "voter is not registered"
	AlreadyVoted      Precondition = "voter has already voted"
	ProposalInactive  Precondition = "proposal is not active"
	VotingClosed      Precondition = "voting period is not open"
	AlreadyRegistered Precondition = "voter is already registered"
	NotAdministrator  Precondition = "session does not hold the administrator role"
)

// ValidationError indicates input that is rejected locally, without any
// ledger round trip. It is always recoverable by correcting the input.
type ValidationError struct {
	Reason string
}

// Error implements error.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// PreconditionError indicates a business rule violation detected before
// submission.
type PreconditionError struct {
	Check Precondition
}

// Error implements error.
func (e PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s", e.Check)
}

// SimulationRejected indicates that the dry run reported the call would fail.
// Reason carries the human-readable rejection extracted from the ledger
// runtime, or a generic message when none could be found.
type SimulationRejected struct {
	Reason string
	Raw    string
}

// Error implements error.
func (e SimulationRejected) Error() string {
	return fmt.Sprintf("simulation rejected: %s", e.Reason)
}

// SubmissionRejected indicates that the ledger refused the actual write after
// the simulation passed, typically because of a race with another session.
// The operation must not be resent as-is; the caller has to re-validate from
// scratch.
type SubmissionRejected struct {
	Reason string
	Raw    string
}

// Error implements error.
func (e SubmissionRejected) Error() string {
	return fmt.Sprintf("submission rejected: %s", e.Reason)
}

// LedgerUnavailable indicates a transport or connectivity failure on a read
// or a write. The same operation can be retried as-is.
type LedgerUnavailable struct {
	Err error
}

// Error implements error.
func (e LedgerUnavailable) Error() string {
	return fmt.Sprintf("ledger unavailable: %v", e.Err)
}

// Unwrap returns the underlying transport error.
func (e LedgerUnavailable) Unwrap() error {
	return e.Err
}

// NotFound indicates that a referenced entity does not exist on the ledger.
type NotFound struct {
	Kind string
	Key  string
}

// Error implements error.
func (e NotFound) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.Key)
}
