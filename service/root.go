// Package service holds the postroom command line: the web server and the
// administration commands around its database and cache.
package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"postroom/app/logger"
	"postroom/config"
)

const appName = "postroom"

// Version and BuildTime are overridden at link time.
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

// cli carries the state shared by every subcommand.
type cli struct {
	configPath string
	envFile    string
	logLevel   string

	cfg *config.Config
	log *logrus.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "A small blogging platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}
	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file path (YAML, default "+config.DefaultFile+" when present)")
	cmd.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file with POSTROOM_* variables")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(
		c.serveCommand(),
		c.initCommand(),
		c.cleanCommand(),
		c.backupCommand(),
		c.restoreCommand(),
		c.groupCommand(),
		c.userCommand(),
		c.cacheCommand(),
		versionCommand(),
	)
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath, c.envFile)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	log, err := logger.NewWithOutput(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	c.cfg, c.log = cfg, log
	return nil
}

func (c *cli) maintenance(cmd *cobra.Command, yes bool) *maintenance {
	return &maintenance{
		dbPath: c.cfg.Storage.Path,
		in:     cmd.InOrStdin(),
		out:    cmd.OutOrStdout(),
		yes:    yes,
		logger: logger.NewBadger(c.log),
	}
}

func (c *cli) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			ctx, stop := withSignals(cmd.Context())
			defer stop()

			app, err := NewApp(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					c.log.WithError(err).Warn("close")
				}
			}()

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)
			go app.FlushCacheOn(ctx, hup)

			return app.Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address override")
	return cmd
}

func (c *cli) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.maintenance(cmd, false).initDB()
		},
	}
}

func (c *cli) cleanCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.maintenance(cmd, yes).clean()
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (c *cli) backupCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a backup of the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = filepath.Join(filepath.Dir(c.cfg.Storage.Path), "backups")
			}
			_, err := c.maintenance(cmd, false).backup(dir)
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Backup directory (default: backups next to the database)")
	return cmd
}

func (c *cli) restoreCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore the database from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.maintenance(cmd, yes).restore(args[0])
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Replace an existing database without asking")
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

// withSignals returns a context cancelled on interrupt.
func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
