// Package mem implements a ledger based on in-memory components. It enforces
// the election rules at write time the way the authoritative runtime does,
// including revert-style rejection messages, which makes it suitable both for
// the demo command line tool and as a realistic fixture in tests.
package mem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.dedis.ch/dvote/election/types"
	"go.dedis.ch/dvote/ledger"
	"golang.org/x/xerrors"
)

// Base resource cost charged per call kind. The estimation is deterministic
// so that tests can assert exact margined limits.
var baseCosts = map[string]uint64{
	"vote":            50,
	"addVoter":        40,
	"addProposal":     60,
	"setVotingPeriod": 30,
}

// Ledger is an in-memory implementation of the client contract backed by a
// mutex-protected state. All reads return copies.
//
// - implements ledger.Client
type Ledger struct {
	sync.Mutex

	proposals []types.Proposal
	voters    map[string]types.Voter
	period    types.VotingPeriod
	hasPeriod bool
	clock     func() time.Time
}

// NewLedger creates a new empty ledger using the wall clock.
func NewLedger() *Ledger {
	return &Ledger{
		voters: make(map[string]types.Voter),
		clock:  time.Now,
	}
}

// SetClock replaces the time source, which allows tests to drive the voting
// window deterministically.
func (l *Ledger) SetClock(clock func() time.Time) {
	l.Lock()
	l.clock = clock
	l.Unlock()
}

// ProposalCount implements ledger.Client.
func (l *Ledger) ProposalCount(ctx context.Context) (uint64, error) {
	l.Lock()
	defer l.Unlock()

	return uint64(len(l.proposals)), nil
}

// Proposal implements ledger.Client. It returns types.NotFound for an index
// outside the proposal set.
func (l *Ledger) Proposal(ctx context.Context, index uint64) (types.Proposal, error) {
	l.Lock()
	defer l.Unlock()

	if index >= uint64(len(l.proposals)) {
		return types.Proposal{}, types.NotFound{
			Kind: "proposal",
			Key:  fmt.Sprint(index),
		}
	}

	return l.proposals[index], nil
}

// Voter implements ledger.Client. An unknown address yields a zero record.
func (l *Ledger) Voter(ctx context.Context, addr string) (types.Voter, error) {
	l.Lock()
	defer l.Unlock()

	voter, ok := l.voters[addr]
	if !ok {
		return types.Voter{Address: addr}, nil
	}

	return voter, nil
}

// VotingStatus implements ledger.Client.
func (l *Ledger) VotingStatus(ctx context.Context) (types.VotingPeriod, error) {
	l.Lock()
	defer l.Unlock()

	return l.status(), nil
}

// SimulateVote implements ledger.Client. It evaluates the vote against the
// current state without committing anything.
func (l *Ledger) SimulateVote(ctx context.Context, addr string, index uint64) error {
	l.Lock()
	defer l.Unlock()

	return l.checkVote(addr, index)
}

// EstimateCost implements ledger.Client.
func (l *Ledger) EstimateCost(ctx context.Context, call ledger.Call, addr string) (uint64, error) {
	cost, ok := baseCosts[call.Method()]
	if !ok {
		return 0, xerrors.Errorf("unknown method '%s'", call.Method())
	}

	return cost, nil
}

// Submit implements ledger.Client. It re-evaluates the rules at commit time
// and applies the mutation atomically.
func (l *Ledger) Submit(ctx context.Context, call ledger.Call, addr string,
	costLimit uint64) (ledger.Receipt, error) {

	l.Lock()
	defer l.Unlock()

	cost, ok := baseCosts[call.Method()]
	if !ok {
		return ledger.Receipt{}, xerrors.Errorf("unknown method '%s'", call.Method())
	}

	if costLimit < cost {
		return ledger.Receipt{}, xerrors.Errorf(
			"execution reverted: cost limit %d below required %d", costLimit, cost)
	}

	var err error
	switch c := call.(type) {
	case ledger.VoteCall:
		err = l.applyVote(addr, c.Proposal)
	case ledger.RegisterCall:
		err = l.applyRegister(c)
	case ledger.ProposalCall:
		err = l.applyProposal(c)
	case ledger.PeriodCall:
		err = l.applyPeriod(c)
	default:
		err = xerrors.Errorf("unsupported call type '%T'", call)
	}

	if err != nil {
		return ledger.Receipt{}, err
	}

	receipt := ledger.Receipt{
		ID:   xid.New().String(),
		Cost: cost,
	}

	return receipt, nil
}

func (l *Ledger) status() types.VotingPeriod {
	period := l.period
	period.IsOpen = l.hasPeriod && period.Contains(l.clock())

	return period
}

func (l *Ledger) checkVote(addr string, index uint64) error {
	voter := l.voters[addr]

	if !voter.Registered {
		return xerrors.New("execution reverted: voter is not registered")
	}

	if voter.HasVoted {
		return xerrors.New("execution reverted: voter has already voted")
	}

	if !l.status().IsOpen {
		return xerrors.New("execution reverted: voting is not open")
	}

	if index >= uint64(len(l.proposals)) {
		return xerrors.New("execution reverted: invalid proposal")
	}

	if !l.proposals[index].IsActive {
		return xerrors.New("execution reverted: proposal is not active")
	}

	return nil
}

func (l *Ledger) applyVote(addr string, index uint64) error {
	err := l.checkVote(addr, index)
	if err != nil {
		return err
	}

	voter := l.voters[addr]
	voter.HasVoted = true
	voter.VotedProposal = index
	l.voters[addr] = voter

	l.proposals[index].VoteCount++

	return nil
}

func (l *Ledger) applyRegister(call ledger.RegisterCall) error {
	if call.Address == "" || call.Name == "" {
		return xerrors.New("execution reverted: empty voter field")
	}

	if l.voters[call.Address].Registered {
		return xerrors.New("execution reverted: voter is already registered")
	}

	l.voters[call.Address] = types.Voter{
		Address:     call.Address,
		Registered:  true,
		DisplayName: call.Name,
	}

	return nil
}

func (l *Ledger) applyProposal(call ledger.ProposalCall) error {
	if call.Name == "" || call.Description == "" {
		return xerrors.New("execution reverted: empty proposal field")
	}

	l.proposals = append(l.proposals, types.Proposal{
		Index:       uint64(len(l.proposals)),
		Name:        call.Name,
		Description: call.Description,
		IsActive:    true,
	})

	return nil
}

func (l *Ledger) applyPeriod(call ledger.PeriodCall) error {
	if !call.Start.Before(call.End) {
		return xerrors.New("execution reverted: end must be after start")
	}

	l.period = types.VotingPeriod{Start: call.Start, End: call.End}
	l.hasPeriod = true

	return nil
}
