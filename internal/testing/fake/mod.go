// Package fake provides fake implementations for interfaces commonly used in
// the repository.
// The implementations offer configuration to return errors when it is needed
// by the unit test and it is also possible to record the call of functions of
// an object in some cases.
package fake

import (
	"context"
	"fmt"

	"go.dedis.ch/dvote/election/types"
	"go.dedis.ch/dvote/ledger"
	"golang.org/x/xerrors"
)

var fakeErr = xerrors.New("fake error")

// GetError returns the error of a failing fake.
func GetError() error {
	return fakeErr
}

// Err returns the expected message of a fake error wrapped with the given
// prefix.
func Err(msg string) string {
	return msg + ": fake error"
}

// Call is a tool to keep track of a function calls.
type Call struct {
	calls [][]interface{}
}

// Get returns the nth call ith parameter.
func (c *Call) Get(n, i int) interface{} {
	return c.calls[n][i]
}

// Len returns the number of calls.
func (c *Call) Len() int {
	return len(c.calls)
}

// Add adds a call to the list.
func (c *Call) Add(args ...interface{}) {
	c.calls = append(c.calls, args)
}

// Ledger is a fake implementation of the ledger client. Errors can be
// injected per primitive and every call is recorded.
//
// - implements ledger.Client
type Ledger struct {
	Proposals   []types.Proposal
	VoterRecord types.Voter
	Status      types.VotingPeriod
	Estimate    uint64
	Receipt     ledger.Receipt

	ErrCount    error
	ErrProposal error
	// ErrProposalAt restricts ErrProposal to the read of one index; a
	// negative value fails every read.
	ErrProposalAt int
	ErrVoter      error
	ErrStatus     error
	ErrSimulate   error
	ErrEstimate   error
	ErrSubmit     error

	Calls *Call
}

// NewLedger creates a fake ledger that answers every call successfully.
func NewLedger() *Ledger {
	return &Ledger{
		ErrProposalAt: -1,
		Receipt:       ledger.Receipt{ID: "deadbeef"},
		Calls:         &Call{},
	}
}

// ProposalCount implements ledger.Client.
func (l *Ledger) ProposalCount(ctx context.Context) (uint64, error) {
	l.Calls.Add("proposalCount")

	return uint64(len(l.Proposals)), l.ErrCount
}

// Proposal implements ledger.Client.
func (l *Ledger) Proposal(ctx context.Context, index uint64) (types.Proposal, error) {
	l.Calls.Add("proposal", index)

	if l.ErrProposal != nil {
		if l.ErrProposalAt < 0 || uint64(l.ErrProposalAt) == index {
			return types.Proposal{}, l.ErrProposal
		}
	}

	if index >= uint64(len(l.Proposals)) {
		return types.Proposal{}, types.NotFound{
			Kind: "proposal",
			Key:  fmt.Sprint(index),
		}
	}

	return l.Proposals[index], nil
}

// Voter implements ledger.Client.
func (l *Ledger) Voter(ctx context.Context, addr string) (types.Voter, error) {
	l.Calls.Add("voter", addr)

	return l.VoterRecord, l.ErrVoter
}

// VotingStatus implements ledger.Client.
func (l *Ledger) VotingStatus(ctx context.Context) (types.VotingPeriod, error) {
	l.Calls.Add("votingStatus")

	return l.Status, l.ErrStatus
}

// SimulateVote implements ledger.Client.
func (l *Ledger) SimulateVote(ctx context.Context, addr string, index uint64) error {
	l.Calls.Add("simulateVote", addr, index)

	return l.ErrSimulate
}

// EstimateCost implements ledger.Client.
func (l *Ledger) EstimateCost(ctx context.Context, call ledger.Call,
	addr string) (uint64, error) {

	l.Calls.Add("estimateCost", call, addr)

	return l.Estimate, l.ErrEstimate
}

// Submit implements ledger.Client.
func (l *Ledger) Submit(ctx context.Context, call ledger.Call, addr string,
	costLimit uint64) (ledger.Receipt, error) {

	l.Calls.Add("submit", call, addr, costLimit)

	if l.ErrSubmit != nil {
		return ledger.Receipt{}, l.ErrSubmit
	}

	return l.Receipt, nil
}

// CountCalls returns how many recorded calls target the given primitive.
func (l *Ledger) CountCalls(name string) int {
	count := 0
	for n := 0; n < l.Calls.Len(); n++ {
		if l.Calls.Get(n, 0) == name {
			count++
		}
	}

	return count
}
