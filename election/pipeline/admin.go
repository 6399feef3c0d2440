package pipeline

import (
	"context"

	"go.dedis.ch/dvote"
	"go.dedis.ch/dvote/election/types"
	"go.dedis.ch/dvote/ledger"
	"go.dedis.ch/dvote/session"
	"golang.org/x/xerrors"
)

// VoterForm holds the inputs of a voter registration. The pipeline clears it
// on success, which is the caller-visible equivalent of resetting the form.
type VoterForm struct {
	Address string
	Name    string
}

// ProposalForm holds the inputs of a proposal creation.
type ProposalForm struct {
	Name        string
	Description string
}

// PeriodOutcome reports an accepted voting window update. Status is re-read
// from the ledger purely for display; StatusErr carries a failure of that
// read separately since the window itself is already set.
type PeriodOutcome struct {
	Receipt   ledger.Receipt
	Status    types.VotingPeriod
	StatusErr error
}

// AdminPipeline drives the administrative mutations: voter registration,
// proposal creation and voting window updates. All operations require an
// administrator session and follow a lighter variant of the vote submission
// discipline.
type AdminPipeline struct {
	client ledger.Client
	alerts *Notifier
}

// NewAdminPipeline creates a pipeline submitting through the given client.
func NewAdminPipeline(client ledger.Client, alerts *Notifier) *AdminPipeline {
	registerMetrics()

	return &AdminPipeline{
		client: client,
		alerts: alerts,
	}
}

// RegisterVoter registers the address under the given display name. The
// address is pre-checked for a duplicate registration because the ledger's
// own rejection is both more expensive and less informative. A refresh of the
// shared cache is left to the caller.
func (p *AdminPipeline) RegisterVoter(ctx context.Context, sess session.Session,
	form *VoterForm) (ledger.Receipt, error) {

	receipt, err := p.registerVoter(ctx, sess, form)
	if err != nil {
		p.alert(Alert{Kind: AlertError, Message: err.Error()})
		return receipt, err
	}

	p.alert(Alert{Kind: AlertSuccess, Message: "voter added successfully"})

	return receipt, nil
}

func (p *AdminPipeline) registerVoter(ctx context.Context, sess session.Session,
	form *VoterForm) (ledger.Receipt, error) {

	err := p.gate(sess)
	if err != nil {
		return ledger.Receipt{}, err
	}

	if form.Address == "" || form.Name == "" {
		return ledger.Receipt{}, types.ValidationError{
			Reason: "please fill in all voter fields",
		}
	}

	voter, err := p.client.Voter(ctx, form.Address)
	if err != nil {
		return ledger.Receipt{}, types.LedgerUnavailable{
			Err: xerrors.Errorf("failed to read voter record: %v", err),
		}
	}

	if voter.Registered {
		return ledger.Receipt{}, types.PreconditionError{
			Check: types.AlreadyRegistered,
		}
	}

	call := ledger.RegisterCall{Address: form.Address, Name: form.Name}

	receipt, err := p.submit(ctx, sess, call)
	if err != nil {
		return ledger.Receipt{}, err
	}

	*form = VoterForm{}

	return receipt, nil
}

// AddProposal appends a new proposal. There is no duplicate pre-check: two
// proposals may legitimately share a name, so only the field presence is
// validated locally.
func (p *AdminPipeline) AddProposal(ctx context.Context, sess session.Session,
	form *ProposalForm) (ledger.Receipt, error) {

	receipt, err := p.addProposal(ctx, sess, form)
	if err != nil {
		p.alert(Alert{Kind: AlertError, Message: err.Error()})
		return receipt, err
	}

	p.alert(Alert{Kind: AlertSuccess, Message: "proposal added successfully"})

	return receipt, nil
}

func (p *AdminPipeline) addProposal(ctx context.Context, sess session.Session,
	form *ProposalForm) (ledger.Receipt, error) {

	err := p.gate(sess)
	if err != nil {
		return ledger.Receipt{}, err
	}

	if form.Name == "" || form.Description == "" {
		return ledger.Receipt{}, types.ValidationError{
			Reason: "please fill in all proposal fields",
		}
	}

	call := ledger.ProposalCall{Name: form.Name, Description: form.Description}

	receipt, err := p.submit(ctx, sess, call)
	if err != nil {
		return ledger.Receipt{}, err
	}

	*form = ProposalForm{}

	return receipt, nil
}

// SetVotingPeriod sets the voting window after checking locally that the end
// strictly follows the start. On success the status is re-read from the
// ledger for the administrator's display, independently of the shared cache.
func (p *AdminPipeline) SetVotingPeriod(ctx context.Context, sess session.Session,
	call ledger.PeriodCall) (PeriodOutcome, error) {

	outcome, err := p.setVotingPeriod(ctx, sess, call)
	if err != nil {
		p.alert(Alert{Kind: AlertError, Message: err.Error()})
		return outcome, err
	}

	p.alert(Alert{Kind: AlertSuccess, Message: "voting period set successfully"})

	return outcome, nil
}

func (p *AdminPipeline) setVotingPeriod(ctx context.Context, sess session.Session,
	call ledger.PeriodCall) (PeriodOutcome, error) {

	err := p.gate(sess)
	if err != nil {
		return PeriodOutcome{}, err
	}

	if !call.Start.Before(call.End) {
		return PeriodOutcome{}, types.ValidationError{
			Reason: "end time must be after start time",
		}
	}

	receipt, err := p.submit(ctx, sess, call)
	if err != nil {
		return PeriodOutcome{}, err
	}

	status, statusErr := p.client.VotingStatus(ctx)
	if statusErr != nil {
		statusErr = types.LedgerUnavailable{
			Err: xerrors.Errorf("failed to read voting status: %v", statusErr),
		}
	}

	return PeriodOutcome{
		Receipt:   receipt,
		Status:    status,
		StatusErr: statusErr,
	}, nil
}

// submit estimates the call, applies the safety margin and sends it.
func (p *AdminPipeline) submit(ctx context.Context, sess session.Session,
	call ledger.Call) (ledger.Receipt, error) {

	estimate, err := p.client.EstimateCost(ctx, call, sess.Address)
	if err != nil {
		return ledger.Receipt{}, types.LedgerUnavailable{
			Err: xerrors.Errorf("failed to estimate cost: %v", err),
		}
	}

	receipt, err := p.client.Submit(ctx, call, sess.Address, withMargin(estimate))
	countSubmission(call.Method(), err)
	if err != nil {
		return ledger.Receipt{}, ledger.ClassifySubmission(err)
	}

	dvote.Logger.Info().
		Str("identity", sess.Address).
		Str("method", call.Method()).
		Str("receipt", receipt.ID).
		Msg("mutation accepted")

	return receipt, nil
}

func (p *AdminPipeline) gate(sess session.Session) error {
	if !sess.IsAdmin() {
		return types.PreconditionError{Check: types.NotAdministrator}
	}

	return nil
}

func (p *AdminPipeline) alert(alert Alert) {
	if p.alerts != nil {
		p.alerts.Show(alert)
	}
}
