// Package cli implements the placeshare command-line tool: offline link
// resolution, database migrations, development tokens and avatar uploads.
package cli

import (
	"github.com/dmitrijs2005/placeshare/internal/logging"
	"github.com/dmitrijs2005/placeshare/internal/server/config"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	// Config is loaded before any subcommand runs.
	Config *config.Config
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "placeshare",
		Short: "placeshare development tool",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to server JSON config")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewUploadAvatarCommand(opts))

	return cmd
}

func (o *RootOptions) load() error {
	c := &config.Config{}
	c.LoadDefaults()
	if o.ConfigPath != "" {
		if err := config.LoadFile(o.ConfigPath, c); err != nil {
			return err
		}
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	o.Config = c
	return nil
}

func (o *RootOptions) logger(cmd *cobra.Command) logging.Logger {
	return logging.New(cmd.ErrOrStderr(), o.Config.LogLevel)
}
