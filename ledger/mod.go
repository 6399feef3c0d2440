// Package ledger defines the contract the orchestration layer consumes to
// read and mutate the authoritative election state. The implementation is
// free to choose the transport and the account selection mechanism; the only
// assumption made here is one authoritative ledger and one active identity
// per session.
package ledger

import (
	"context"
	"time"

	"go.dedis.ch/dvote/election/types"
)

// Client provides the primitives to read the election state and to submit
// mutations to the ledger. Every write costs resources even when it fails,
// which is why the contract exposes a dry run and a cost estimation next to
// the submission itself.
type Client interface {
	// ProposalCount returns the number of proposals recorded so far.
	ProposalCount(ctx context.Context) (uint64, error)

	// Proposal returns the proposal stored at the given index. It returns a
	// types.NotFound error when the index is out of range.
	Proposal(ctx context.Context, index uint64) (types.Proposal, error)

	// Voter returns the voter record for the address. An address the ledger
	// has never seen yields a zero record, not an error.
	Voter(ctx context.Context, addr string) (types.Voter, error)

	// VotingStatus returns the voting window and whether it is currently
	// open.
	VotingStatus(ctx context.Context) (types.VotingPeriod, error)

	// SimulateVote evaluates a vote call without committing it. It returns
	// an error carrying the rejection reason when the call would fail.
	SimulateVote(ctx context.Context, addr string, index uint64) error

	// EstimateCost returns the predicted resource cost of the call.
	EstimateCost(ctx context.Context, call Call, addr string) (uint64, error)

	// Submit sends the call with the given cost limit. This is the only
	// primitive with an externally observable side effect.
	Submit(ctx context.Context, call Call, addr string, costLimit uint64) (Receipt, error)
}

// Call describes a mutation to submit to the ledger.
type Call interface {
	// Method returns the name of the ledger entry point the call targets.
	Method() string
}

// VoteCall casts a vote for the proposal at the given index.
//
// - implements ledger.Call
type VoteCall struct {
	Proposal uint64
}

// Method implements ledger.Call.
func (VoteCall) Method() string {
	return "vote"
}

// RegisterCall registers a new voter under the given address.
//
// - implements ledger.Call
type RegisterCall struct {
	Address string
	Name    string
}

// Method implements ledger.Call.
func (RegisterCall) Method() string {
	return "addVoter"
}

// ProposalCall appends a new proposal to the election.
//
// - implements ledger.Call
type ProposalCall struct {
	Name        string
	Description string
}

// Method implements ledger.Call.
func (ProposalCall) Method() string {
	return "addProposal"
}

// PeriodCall sets the voting window. The ledger applies a last-write-wins
// policy when the window is reset.
//
// - implements ledger.Call
type PeriodCall struct {
	Start time.Time
	End   time.Time
}

// Method implements ledger.Call.
func (PeriodCall) Method() string {
	return "setVotingPeriod"
}

// Receipt is the acknowledgement returned by the ledger for an accepted
// submission.
type Receipt struct {
	ID   string
	Cost uint64
}
