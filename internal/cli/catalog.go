package cli

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-tutor/internal/app"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/curriculum"
	"github.com/yungbote/neurobridge-tutor/internal/platform/logger"
)

type catalogTopic struct {
	curriculum.Topic
	Prerequisites map[string]float64 `json:"prerequisites,omitempty"`
}

func newCatalogCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the curriculum topics and their prerequisites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			g, err := app.LoadGraph(cfg, logger.Nop())
			if err != nil {
				return err
			}

			topics := make([]catalogTopic, g.Len())
			for i := range topics {
				row := g.PrerequisiteRow(i)
				ct := catalogTopic{Topic: g.Topic(i)}
				for _, j := range g.Prerequisites(i) {
					if ct.Prerequisites == nil {
						ct.Prerequisites = map[string]float64{}
					}
					ct.Prerequisites[g.Topic(j).Key] = row[j]
				}
				topics[i] = ct
			}

			w := cmd.OutOrStdout()
			if o.jsonOut {
				return writeJSON(w, map[string]any{"version": g.Version(), "topics": topics})
			}
			fmt.Fprintf(w, "catalog %s, %d topics\n", g.Version(), g.Len())
			table := tablewriter.NewWriter(w)
			table.SetHeader([]string{"#", "Key", "Rating", "Difficulty", "Requires"})
			for i, t := range topics {
				var req []string
				for _, j := range g.Prerequisites(i) {
					req = append(req, fmt.Sprintf("%s (%.1f)", g.Topic(j).Key, t.Prerequisites[g.Topic(j).Key]))
				}
				table.Append([]string{
					fmt.Sprint(i),
					t.Key,
					fmt.Sprint(t.Rating),
					fmt.Sprintf("%.2f", t.BaseDifficulty),
					strings.Join(req, ", "),
				})
			}
			table.Render()
			return nil
		},
	}
}
