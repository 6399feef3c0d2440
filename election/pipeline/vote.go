package pipeline

import (
	"context"

	"go.dedis.ch/dvote"
	"go.dedis.ch/dvote/election/cache"
	"go.dedis.ch/dvote/election/types"
	"go.dedis.ch/dvote/ledger"
	"go.dedis.ch/dvote/session"
	"golang.org/x/xerrors"
)

// VoteOutcome reports an accepted vote. The vote is committed on the ledger
// even when the subsequent cache refresh failed; RefreshErr carries that
// failure separately so the caller can retry the refresh without resubmitting
// anything.
type VoteOutcome struct {
	Receipt    ledger.Receipt
	RefreshErr error
}

// VotePipeline casts exactly one vote for the calling identity. Each stage is
// a hard gate: a failure aborts the remaining stages, and only the submission
// stage has an externally observable side effect.
type VotePipeline struct {
	client ledger.Client
	cache  *cache.Cache
	alerts *Notifier
}

// NewVotePipeline creates a pipeline reading through the cache for the local
// checks and through the client for everything authoritative.
func NewVotePipeline(client ledger.Client, c *cache.Cache, alerts *Notifier) *VotePipeline {
	registerMetrics()

	return &VotePipeline{
		client: client,
		cache:  c,
		alerts: alerts,
	}
}

// Cast runs the full submission sequence for the proposal at the given
// index: local precondition check, remote re-validation, dry run, cost
// estimation with margin, submission, and cache refresh.
func (p *VotePipeline) Cast(ctx context.Context, sess session.Session,
	index uint64) (VoteOutcome, error) {

	outcome, err := p.cast(ctx, sess, index)
	if err != nil {
		p.alert(Alert{Kind: AlertError, Message: err.Error()})
		return outcome, err
	}

	p.alert(Alert{Kind: AlertSuccess, Message: "vote submitted successfully"})

	return outcome, nil
}

func (p *VotePipeline) cast(ctx context.Context, sess session.Session,
	index uint64) (VoteOutcome, error) {

	if sess.Address == "" {
		return VoteOutcome{}, types.ValidationError{
			Reason: "session has no ledger identity",
		}
	}

	// Stage 1: rule out locally what the latest snapshot can already rule
	// out, before any billable round trip. A snapshot refreshed for another
	// identity is worthless here, so it counts as no snapshot at all.
	snap, ok := p.cache.CurrentFor(sess.Address)
	if !ok {
		return VoteOutcome{}, types.ValidationError{
			Reason: "no local snapshot, refresh first",
		}
	}

	err := checkVote(snap, index)
	if err != nil {
		return VoteOutcome{}, err
	}

	// Stage 2: re-validate against fresh reads to rule out a race with
	// another session since the last refresh.
	fresh, err := p.revalidate(ctx, sess.Address, index)
	if err != nil {
		return VoteOutcome{}, err
	}

	err = checkVote(fresh, index)
	if err != nil {
		return VoteOutcome{}, err
	}

	// Stage 3: dry run, the primary defense against paying for a doomed
	// submission.
	err = p.client.SimulateVote(ctx, sess.Address, index)
	if err != nil {
		return VoteOutcome{}, ledger.ClassifySimulation(err)
	}

	call := ledger.VoteCall{Proposal: index}

	// Stage 4: provision the estimate with the safety margin.
	estimate, err := p.client.EstimateCost(ctx, call, sess.Address)
	if err != nil {
		return VoteOutcome{}, types.LedgerUnavailable{
			Err: xerrors.Errorf("failed to estimate cost: %v", err),
		}
	}

	limit := withMargin(estimate)

	// Stage 5: the only stage with a side effect.
	receipt, err := p.client.Submit(ctx, call, sess.Address, limit)
	countSubmission(call.Method(), err)
	if err != nil {
		return VoteOutcome{}, ledger.ClassifySubmission(err)
	}

	dvote.Logger.Info().
		Str("identity", sess.Address).
		Uint64("proposal", index).
		Str("receipt", receipt.ID).
		Msg("vote accepted")

	// Stage 6: the vote is committed at this point; a refresh failure is
	// reported separately and retryable on its own.
	_, refreshErr := p.cache.Refresh(ctx, sess.Address)

	return VoteOutcome{Receipt: receipt, RefreshErr: refreshErr}, nil
}

// revalidate fetches the voter record, the chosen proposal and the voting
// status directly from the ledger and assembles them into a throwaway
// snapshot so the same checks apply to both stages.
func (p *VotePipeline) revalidate(ctx context.Context, addr string,
	index uint64) (types.Snapshot, error) {

	voter, err := p.client.Voter(ctx, addr)
	if err != nil {
		return types.Snapshot{}, types.LedgerUnavailable{
			Err: xerrors.Errorf("failed to read voter record: %v", err),
		}
	}

	proposal, err := p.client.Proposal(ctx, index)
	if err != nil {
		var notFound types.NotFound
		if xerrors.As(err, &notFound) {
			return types.Snapshot{}, notFound
		}

		return types.Snapshot{}, types.LedgerUnavailable{
			Err: xerrors.Errorf("failed to read proposal: %v", err),
		}
	}

	period, err := p.client.VotingStatus(ctx)
	if err != nil {
		return types.Snapshot{}, types.LedgerUnavailable{
			Err: xerrors.Errorf("failed to read voting status: %v", err),
		}
	}

	proposals := make([]types.Proposal, index+1)
	proposals[index] = proposal

	return types.Snapshot{
		Proposals: proposals,
		Voter:     &voter,
		Period:    period,
	}, nil
}

// checkVote applies the four precondition checks against a snapshot. An
// out-of-range index is a validation error; the others are preconditions
// that only the world changing can clear.
func checkVote(snap types.Snapshot, index uint64) error {
	proposal, ok := snap.Proposal(index)
	if !ok {
		return types.ValidationError{
			Reason: "proposal index out of range",
		}
	}

	if snap.Voter == nil || !snap.Voter.Registered {
		return types.PreconditionError{Check: types.NotRegistered}
	}

	if snap.Voter.HasVoted {
		return types.PreconditionError{Check: types.AlreadyVoted}
	}

	if !proposal.IsActive {
		return types.PreconditionError{Check: types.ProposalInactive}
	}

	if !snap.Period.IsOpen {
		return types.PreconditionError{Check: types.VotingClosed}
	}

	return nil
}

func (p *VotePipeline) alert(alert Alert) {
	if p.alerts != nil {
		p.alerts.Show(alert)
	}
}
