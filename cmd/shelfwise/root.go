package main

import (
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/di"
)

// commandContext carries the global flags and lazily builds the service
// container. Only the services a command invokes are started; the HTTP
// server never is. Callers close it once the command returns.
type commandContext struct {
	dataPath   string
	configFile string
	envFile    string
	logLevel   string

	injector *do.RootScope
}

func (c *commandContext) args() []string {
	args := []string{"--env-file", c.envFile, "--log-level", c.logLevel}
	if c.dataPath != "" {
		args = append(args, "--data-path", c.dataPath)
	}
	if c.configFile != "" {
		args = append(args, "--config", c.configFile)
	}
	return args
}

func (c *commandContext) container() *do.RootScope {
	if c.injector == nil {
		c.injector = di.NewContainer(c.args())
	}
	return c.injector
}

func (c *commandContext) close() {
	if c.injector != nil {
		_ = c.injector.Shutdown()
		c.injector = nil
	}
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "shelfwise",
		Short:         "Shelfwise catalogue administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.dataPath, "data-path", "", "Data directory (default ~/Shelfwise/data)")
	flags.StringVarP(&ctx.configFile, "config", "c", "", "TOML configuration file")
	flags.StringVar(&ctx.envFile, "env-file", ".env", "Path to .env file")
	flags.StringVar(&ctx.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newTaxonomyCommand(ctx))
	rootCmd.AddCommand(newPublisherCommand(ctx))
	rootCmd.AddCommand(newAuthorCommand(ctx))
	rootCmd.AddCommand(newContractCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))

	return rootCmd
}
