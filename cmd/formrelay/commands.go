package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/formrelay/internal/app"
	"github.com/vovakirdan/formrelay/internal/config"
	"github.com/vovakirdan/formrelay/internal/log"
	"github.com/vovakirdan/formrelay/internal/store/sqlite"
)

// options holds persistent flags and the values derived from them.
type options struct {
	configPath string
	logLevel   string

	cfg      config.Config
	resolved string
	logger   *zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "formrelay",
		Short:         "Serve a message form and relay submissions to a document store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSupervisor(cmd, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default: ./config.yaml or $FORMRELAY_CONFIG_DEFAULT_PATH/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Start the web and relay components as child processes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSupervisor(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "web",
			Short: "Serve static pages and relay form posts as datagrams",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				logger := log.Component(opts.logger, "web")
				web, err := app.NewWeb(opts.cfg, logger)
				if err != nil {
					return err
				}
				if err := web.Run(cmd.Context()); err != nil {
					return fmt.Errorf("web: %w", err)
				}
				logger.Info().Msg("web stopped")
				return nil
			},
		},
		&cobra.Command{
			Use:   "relay",
			Short: "Receive datagrams and insert them into the store",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				logger := log.Component(opts.logger, "relay")
				relay, err := app.NewRelay(opts.cfg, logger)
				if err != nil {
					return err
				}
				if err := relay.Run(cmd.Context()); err != nil {
					return fmt.Errorf("relay: %w", err)
				}
				logger.Info().Msg("relay stopped")
				return nil
			},
		},
		newMessagesCmd(opts),
	)

	return root
}

func newMessagesCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Print the newest stored messages (sqlite driver only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.cfg.Store.Driver != "sqlite" {
				return errors.New("messages requires store.driver: sqlite")
			}
			st, err := sqlite.New(opts.cfg.Store.SQLitePath)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, rec := range records {
				if err := enc.Encode(rec.Message); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of messages to print")

	return cmd
}

// load reads the config file and builds the process logger.
func (o *options) load() error {
	bootstrap := log.New("info", "console")

	cfg, resolved, err := config.Load(bootstrap, o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	o.cfg = cfg
	o.resolved = resolved
	o.logger = log.New(cfg.Log.Level, cfg.Log.Format)
	return nil
}

func runSupervisor(cmd *cobra.Command, opts *options) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	args := []string{"--config", opts.resolved}
	if opts.logLevel != "" {
		args = append(args, "--log-level", opts.logLevel)
	}

	logger := log.Component(opts.logger, "supervisor")
	logger.Info().Str("config", opts.resolved).Msg("starting components")

	sup := app.NewSupervisor(exe, args, logger)
	if err := sup.Run(cmd.Context()); err != nil {
		return err
	}
	logger.Info().Msg("all components stopped")
	return nil
}
