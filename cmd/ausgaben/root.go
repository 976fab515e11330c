package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ausgaben/internal/backend"
	"ausgaben/internal/cli"
	"ausgaben/internal/config"
	"ausgaben/internal/log"
)

var (
	flagConfig   string
	flagBackend  string
	flagDB       string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:           "ausgaben",
	Short:         "Quick-entry expense tracker with budget projections",
	Long:          "Record expenses as one-liners like \"12,50 Brot gestern\" and see how the month's spending tracks against each category budget.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.Fatal(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "TOML config file (default $AUSGABEN_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Data backend: sqlite or memory")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
}

// session is what every command works with.
type session struct {
	cfg     *config.Config
	backend *backend.Backend
	logger  *log.Logger
	loc     *time.Location
}

func (s *session) now() time.Time {
	return time.Now().In(s.loc)
}

func (s *session) Close() {
	if err := s.backend.Cleanup(); err != nil {
		s.logger.Warn("Closing backend failed", log.FieldError, err)
	}
}

// openSession loads configuration and opens the backend for a one-shot
// command. Logs go to stderr at warn level so they never mix with output.
func openSession(ctx context.Context) (*session, error) {
	return newSession(ctx, "warn", os.Stderr)
}

// openServerSession logs to stdout at the configured level.
func openServerSession(ctx context.Context) (*session, error) {
	return newSession(ctx, "", os.Stdout)
}

func newSession(ctx context.Context, level string, out io.Writer) (*session, error) {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig(flagConfig, applyFlags)
	if err != nil {
		return nil, err
	}
	if level == "" || flagLogLevel != "" {
		level = cfg.LogLevel
	}
	logger := cli.SetupLogger(level, log.ComponentCLI, out)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	b, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, backend: b, logger: logger, loc: loc}, nil
}

func applyFlags(c *config.Config) {
	if flagBackend != "" {
		c.DataBackend = flagBackend
	}
	if flagDB != "" {
		c.SQLiteDBPath = flagDB
	}
	if flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}
}
