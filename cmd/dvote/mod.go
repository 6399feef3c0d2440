// Package main implements a command line front-end to the election
// orchestration layer, backed by an in-memory ledger. It exists to exercise
// the pipelines end-to-end: every command runs the same sequence a graphical
// client would.
package main

import (
	"fmt"
	"os"
	"time"

	ucli "github.com/urfave/cli/v2"
	"go.dedis.ch/dvote"
	"go.dedis.ch/dvote/auth"
	"go.dedis.ch/dvote/election/cache"
	"go.dedis.ch/dvote/election/pipeline"
	"go.dedis.ch/dvote/election/results"
	"go.dedis.ch/dvote/ledger"
	"go.dedis.ch/dvote/ledger/mem"
	"go.dedis.ch/dvote/session"
	"golang.org/x/xerrors"
)

func main() {
	err := makeApp().Run(os.Args)
	if err != nil {
		dvote.Logger.Fatal().Err(err).Msg("command failed")
	}
}

func makeApp() *ucli.App {
	return &ucli.App{
		Name:  "dvote",
		Usage: "interact with the demo election",
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:  "config",
				Usage: "path to the scenario file seeding the election",
			},
			&ucli.StringFlag{
				Name:  "username",
				Value: "user",
				Usage: "username to log in with",
			},
			&ucli.StringFlag{
				Name:  "password",
				Value: "user123",
				Usage: "password to log in with",
			},
		},
		Commands: []*ucli.Command{
			{
				Name:   "status",
				Usage:  "refresh and display the election state",
				Action: statusAction,
			},
			{
				Name:  "vote",
				Usage: "cast a vote",
				Flags: []ucli.Flag{
					&ucli.Uint64Flag{Name: "proposal", Usage: "proposal index"},
				},
				Action: voteAction,
			},
			{
				Name:  "register",
				Usage: "register a voter (admin)",
				Flags: []ucli.Flag{
					&ucli.StringFlag{Name: "address", Usage: "voter address"},
					&ucli.StringFlag{Name: "name", Usage: "voter display name"},
				},
				Action: registerAction,
			},
			{
				Name:  "proposal",
				Usage: "add a proposal (admin)",
				Flags: []ucli.Flag{
					&ucli.StringFlag{Name: "name", Usage: "proposal name"},
					&ucli.StringFlag{Name: "description", Usage: "proposal description"},
				},
				Action: proposalAction,
			},
			{
				Name:  "period",
				Usage: "set the voting period (admin)",
				Flags: []ucli.Flag{
					&ucli.StringFlag{Name: "start", Usage: "window start (RFC 3339)"},
					&ucli.StringFlag{Name: "end", Usage: "window end (RFC 3339)"},
				},
				Action: periodAction,
			},
			{
				Name:   "results",
				Usage:  "display the ranked tally",
				Action: resultsAction,
			},
		},
	}
}

// env bundles the components a command needs. It is rebuilt for every
// invocation, which mirrors a session starting from scratch.
type env struct {
	sess  session.Session
	cache *cache.Cache
	votes *pipeline.VotePipeline
	admin *pipeline.AdminPipeline
	tally results.Aggregator
}

func setup(c *ucli.Context) (*env, error) {
	scn, err := loadScenario(c.String("config"))
	if err != nil {
		return nil, err
	}

	gate := auth.NewGate()
	for _, acc := range scn.Accounts {
		gate.Register(acc.Username, acc.Password, session.Role(acc.Role), acc.Address)
	}

	ld := mem.NewLedger()

	err = seed(c, ld, scn)
	if err != nil {
		return nil, xerrors.Errorf("failed to seed the ledger: %v", err)
	}

	sess, err := gate.Login(c.String("username"), c.String("password"))
	if err != nil {
		return nil, err
	}

	snapCache := cache.NewCache(ld)

	return &env{
		sess:  sess,
		cache: snapCache,
		votes: pipeline.NewVotePipeline(ld, snapCache, nil),
		admin: pipeline.NewAdminPipeline(ld, nil),
		tally: results.NewAggregator(ld),
	}, nil
}

// seed replays the scenario against the fresh ledger with an administrator
// session, going through the same pipeline as interactive mutations.
func seed(c *ucli.Context, ld ledger.Client, scn scenario) error {
	admin := pipeline.NewAdminPipeline(ld, nil)
	sess := session.New("seed", session.RoleAdmin, "0xseed")

	for _, p := range scn.Proposals {
		form := pipeline.ProposalForm{Name: p.Name, Description: p.Description}

		_, err := admin.AddProposal(c.Context, sess, &form)
		if err != nil {
			return xerrors.Errorf("proposal '%s': %v", p.Name, err)
		}
	}

	for _, v := range scn.Voters {
		form := pipeline.VoterForm{Address: v.Address, Name: v.Name}

		_, err := admin.RegisterVoter(c.Context, sess, &form)
		if err != nil {
			return xerrors.Errorf("voter '%s': %v", v.Address, err)
		}
	}

	if !scn.Period.Start.IsZero() || !scn.Period.End.IsZero() {
		call := ledger.PeriodCall{Start: scn.Period.Start, End: scn.Period.End}

		_, err := admin.SetVotingPeriod(c.Context, sess, call)
		if err != nil {
			return xerrors.Errorf("period: %v", err)
		}
	}

	return nil
}

func statusAction(c *ucli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}

	snap, err := env.cache.Refresh(c.Context, env.sess.Address)
	if err != nil {
		return xerrors.Errorf("failed to refresh: %v", err)
	}

	fmt.Fprintf(c.App.Writer, "voting open: %v\n", snap.Period.IsOpen)
	fmt.Fprintf(c.App.Writer, "registered: %v, voted: %v\n",
		snap.Voter.Registered, snap.Voter.HasVoted)

	for _, proposal := range snap.Proposals {
		fmt.Fprintf(c.App.Writer, "[%d] %s - %s (%d votes)\n",
			proposal.Index, proposal.Name, proposal.Description, proposal.VoteCount)
	}

	return nil
}

func voteAction(c *ucli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}

	_, err = env.cache.Refresh(c.Context, env.sess.Address)
	if err != nil {
		return xerrors.Errorf("failed to refresh: %v", err)
	}

	outcome, err := env.votes.Cast(c.Context, env.sess, c.Uint64("proposal"))
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "vote accepted: receipt %s (cost %d)\n",
		outcome.Receipt.ID, outcome.Receipt.Cost)

	if outcome.RefreshErr != nil {
		fmt.Fprintf(c.App.Writer, "warning: refresh failed: %v\n", outcome.RefreshErr)
	}

	return nil
}

func registerAction(c *ucli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}

	form := pipeline.VoterForm{
		Address: c.String("address"),
		Name:    c.String("name"),
	}

	receipt, err := env.admin.RegisterVoter(c.Context, env.sess, &form)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "voter registered: receipt %s\n", receipt.ID)

	return nil
}

func proposalAction(c *ucli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}

	form := pipeline.ProposalForm{
		Name:        c.String("name"),
		Description: c.String("description"),
	}

	receipt, err := env.admin.AddProposal(c.Context, env.sess, &form)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "proposal added: receipt %s\n", receipt.ID)

	return nil
}

func periodAction(c *ucli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}

	start, err := time.Parse(time.RFC3339, c.String("start"))
	if err != nil {
		return xerrors.Errorf("failed to parse start time: %v", err)
	}

	end, err := time.Parse(time.RFC3339, c.String("end"))
	if err != nil {
		return xerrors.Errorf("failed to parse end time: %v", err)
	}

	call := ledger.PeriodCall{Start: start, End: end}

	outcome, err := env.admin.SetVotingPeriod(c.Context, env.sess, call)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "voting period set: open %v\n", outcome.Status.IsOpen)

	return nil
}

func resultsAction(c *ucli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}

	tally, err := env.tally.Compute(c.Context)
	if err != nil {
		return err
	}

	for rank, result := range tally {
		fmt.Fprintf(c.App.Writer, "%d. %s - %d votes (%.1f%%)\n",
			rank+1, result.Name, result.VoteCount, result.Percentage)
	}

	return nil
}
