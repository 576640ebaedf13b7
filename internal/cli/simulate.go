package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/rollout"
	"github.com/yungbote/neurobridge-tutor/internal/policy/fixed"
)

func newSimulateCommand(o *options) *cobra.Command {
	var (
		episodes int
		workers  int
		seed     int64
		horizon  int
		noBar    bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run simulated learner episodes against the configured policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := o.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			rc := rollout.Config{
				Episodes:  a.Cfg.Rollout.Episodes,
				Workers:   a.Cfg.Rollout.Workers,
				Seed:      a.Cfg.Rollout.Seed,
				Simulator: a.Cfg.Simulator,
			}
			if cmd.Flags().Changed("episodes") {
				rc.Episodes = episodes
			}
			if cmd.Flags().Changed("workers") {
				rc.Workers = workers
			}
			if cmd.Flags().Changed("seed") {
				rc.Seed = seed
			}
			if cmd.Flags().Changed("horizon") {
				rc.Simulator.Horizon = horizon
			}

			p := a.Policy
			if p == nil {
				// Without a policy every decision is the default plan; simulate that baseline.
				p = fixed.New(domain.DefaultAction(), 0)
			}

			opts := []rollout.Option{rollout.WithLogger(a.Log), rollout.WithMetrics(a.Metrics)}
			if !noBar && !o.jsonOut {
				bar := progressbar.NewOptions(rc.Episodes,
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("episodes"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
				defer bar.Finish()
				opts = append(opts, rollout.WithProgress(func(done, _ int) { _ = bar.Set(done) }))
			}

			runner, err := rollout.New(a.Graph, p, rc, opts...)
			if err != nil {
				return err
			}
			rep, err := runner.Run(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if o.jsonOut {
				return writeJSON(w, rep)
			}
			table := tablewriter.NewWriter(w)
			table.SetHeader([]string{"Episode", "Seed", "Return", "Mastery gain", "Overrides", "Fallbacks", "Misconceptions +/-"})
			for _, ep := range rep.Episodes {
				table.Append([]string{
					fmt.Sprint(ep.Episode),
					fmt.Sprint(ep.Seed),
					fmt.Sprintf("%.3f", ep.Return),
					fmt.Sprintf("%+.3f", ep.MasteryGain()),
					fmt.Sprint(ep.Overrides),
					fmt.Sprint(ep.Fallbacks),
					fmt.Sprintf("%d/%d", ep.MisconceptionsFormed, ep.MisconceptionsCleared),
				})
			}
			table.SetFooter([]string{"", "mean", fmt.Sprintf("%.3f", rep.MeanReturn), fmt.Sprintf("%+.3f", rep.MeanGain), "", "", ""})
			table.Render()
			fmt.Fprintf(w, "policy %s, horizon %d, %d steps, return %.3f ± %.3f\n",
				rep.PolicyName, rep.HorizonUsed, rep.TotalSteps, rep.MeanReturn, rep.StdReturn)
			return nil
		},
	}
	cmd.Flags().IntVar(&episodes, "episodes", 16, "number of episodes")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent episodes")
	cmd.Flags().Int64Var(&seed, "seed", 1, "base seed")
	cmd.Flags().IntVar(&horizon, "horizon", 100, "steps per episode")
	cmd.Flags().BoolVar(&noBar, "no-progress", false, "hide the progress bar")
	return cmd
}
