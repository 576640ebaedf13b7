package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
)

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id %q: %w", raw, err)
	}
	return id, nil
}

func newSessionCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create, inspect and delete learner sessions",
	}

	var seed int64
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Start a session and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var sp *int64
			if cmd.Flags().Changed("seed") {
				sp = &seed
			}
			sess, err := a.NewSession(cmd.Context(), sp)
			if err != nil {
				return err
			}
			if o.jsonOut {
				return writeJSON(cmd.OutOrStdout(), sess)
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.ID.String())
			return nil
		},
	}
	newCmd.Flags().Int64Var(&seed, "seed", 0, "sample a learner profile from this seed instead of the average profile")

	showCmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session's learner state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.LoadSession(cmd.Context(), id)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if o.jsonOut {
				return writeJSON(w, sess)
			}
			st := sess.State
			fmt.Fprintf(w, "session %s (catalog %s, updated %s)\n", sess.ID, sess.CatalogVersion, sess.UpdatedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "engagement %.2f  attention %.2f  load %.2f  motivation %.2f  recent %.2f\n",
				st.Engagement, st.Attention, st.CognitiveLoad, st.Motivation, st.RecentPerformance)

			table := tablewriter.NewWriter(w)
			table.SetHeader([]string{"Topic", "Mastery", "Misconception", "Attempts", "Idle steps"})
			for _, k := range a.Graph.Keys() {
				table.Append([]string{
					k,
					fmt.Sprintf("%.3f", st.Mastery[k]),
					fmt.Sprintf("%.2f", st.Misconceptions[k]),
					fmt.Sprint(st.TopicAttempts[k]),
					fmt.Sprint(st.TimeSincePracticed[k]),
				})
			}
			table.Render()
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Store.Delete(cmd.Context(), id)
		},
	}

	cmd.AddCommand(newCmd, showCmd, deleteCmd)
	return cmd
}

func newDecideCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "decide <session-id> [topic]",
		Short: "Pick the next instructional plan for a session",
		Long: `decide asks the policy for the next plan. A topic request is matched
fuzzily against the catalog ("multiplication", "math multiplication") and
overrides the policy's topic choice when it matches.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			plan, err := a.Decide(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil && plan.Topic == "" {
				return err
			}
			if err != nil {
				a.Log.Warn("plan not persisted", "session_id", id.String(), "error", err)
			}
			w := cmd.OutOrStdout()
			if o.jsonOut {
				return writeJSON(w, plan)
			}
			printPlan(w, plan)
			return nil
		},
	}
}

func printPlan(w io.Writer, plan domain.InstructionalPlan) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	rows := [][]string{
		{"topic", plan.Topic},
		{"strategy", plan.Strategy.String()},
		{"difficulty", fmt.Sprintf("%s (%.2f)", plan.Difficulty, plan.EffectiveDifficulty)},
		{"scaffolding", plan.Scaffolding.String()},
		{"feedback", plan.Feedback.String()},
		{"length", plan.Length.String()},
		{"prerequisites", fmt.Sprintf("%.2f", plan.PrerequisiteSatisfaction)},
		{"source", string(plan.Source)},
	}
	if plan.FallbackReason != "" {
		rows = append(rows, []string{"fallback", plan.FallbackReason})
	}
	if plan.UserTopicMatch {
		rows = append(rows, []string{"requested topic", "yes"})
	}
	if plan.Degraded {
		rows = append(rows, []string{"observation", "degraded"})
	}
	table.AppendBulk(rows)
	table.Render()
}

func newOutcomeCommand(o *options) *cobra.Command {
	var rating float64
	cmd := &cobra.Command{
		Use:   "outcome <session-id> <topic> <score>",
		Short: "Report how a learner did on a topic",
		Long: `outcome folds an observed result into the session. Score is in [0,1]
or a 0-100 completion percentage.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			score, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid score %q: %w", args[2], err)
			}
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := domain.Outcome{Topic: args[1], Score: score}
			if cmd.Flags().Changed("rating") {
				out.Rating = &rating
			}
			res, err := a.ReportOutcome(cmd.Context(), id, out)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if o.jsonOut {
				return writeJSON(w, res)
			}
			fmt.Fprintf(w, "%s: mastery %.3f (%+.3f), next review in %.1f days\n",
				res.Topic, res.Mastery, res.MasteryDelta, res.NextReviewDays)
			if res.MisconceptionCleared {
				fmt.Fprintln(w, "misconception cleared")
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&rating, "rating", 0, "1-5 helpfulness rating")
	return cmd
}

func newScheduleCommand(o *options) *cobra.Command {
	var dueOnly bool
	cmd := &cobra.Command{
		Use:   "schedule <session-id>",
		Short: "Show when each topic is next due for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			due, err := a.Schedule(cmd.Context(), id)
			if err != nil {
				return err
			}
			if dueOnly {
				now := time.Now()
				kept := due[:0]
				for _, d := range due {
					if !d.DueAt.After(now) {
						kept = append(kept, d)
					}
				}
				due = kept
			}
			w := cmd.OutOrStdout()
			if o.jsonOut {
				return writeJSON(w, due)
			}
			table := tablewriter.NewWriter(w)
			table.SetHeader([]string{"Topic", "Due", "Interval (days)", "Mastery"})
			for _, d := range due {
				when := "now"
				if d.Practiced {
					when = d.DueAt.Local().Format("2006-01-02 15:04")
				}
				table.Append([]string{d.Topic, when, fmt.Sprintf("%.1f", d.IntervalDays), fmt.Sprintf("%.3f", d.Mastery)})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&dueOnly, "due", false, "only topics due now")
	return cmd
}
