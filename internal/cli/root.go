// Package cli is the tutor command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-tutor/internal/app"
	"github.com/yungbote/neurobridge-tutor/internal/config"
	"github.com/yungbote/neurobridge-tutor/internal/platform/logger"
)

type options struct {
	configPath string
	policyType string
	storeType  string
	jsonOut    bool
	quiet      bool
	appOpts    []app.Option
}

// NewRootCommand builds the tutor command tree. App options are applied to every
// command that needs a running tutor.
func NewRootCommand(appOpts ...app.Option) *cobra.Command {
	o := &options{appOpts: appOpts}
	root := &cobra.Command{
		Use:   "tutor",
		Short: "Adaptive tutoring decision core",
		Long: `tutor picks the next instructional action for a learner, tracks their
session state and schedules reviews. It also runs the learner simulator for
offline policy evaluation.

  tutor catalog                          # list topics and prerequisites
  tutor simulate --episodes 32           # evaluate the configured policy
  tutor session new                      # start a session, prints its id
  tutor decide <session-id> [topic]      # next instructional plan
  tutor outcome <session-id> <topic> <score>
  tutor schedule <session-id>`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.configPath, "config", "", "config file (default $TUTOR_CONFIG_PATH or ./config/tutor.yaml)")
	root.PersistentFlags().StringVar(&o.policyType, "policy", "", "policy type override: none, linear, remote, fixed, random")
	root.PersistentFlags().StringVar(&o.storeType, "store", "", "session store override: memory, redis, sqlite, postgres")
	root.PersistentFlags().BoolVar(&o.jsonOut, "json", false, "JSON output")
	root.PersistentFlags().BoolVarP(&o.quiet, "quiet", "q", false, "only log errors")

	root.AddCommand(
		newCatalogCommand(o),
		newSimulateCommand(o),
		newSessionCommand(o),
		newDecideCommand(o),
		newOutcomeCommand(o),
		newScheduleCommand(o),
	)
	return root
}

// Execute runs the root command against ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (o *options) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.policyType != "" {
		cfg.Policy.Type = o.policyType
	}
	if o.storeType != "" {
		cfg.Store.Backend = o.storeType
	}
	return cfg, nil
}

func (o *options) open(ctx context.Context) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	opts := o.appOpts
	if o.quiet {
		opts = append([]app.Option{app.WithLogger(logger.Nop())}, opts...)
	}
	return app.New(ctx, cfg, opts...)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
