package main

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/db"
)

const defaultDBPath = "izposoja.sqlite3"

// validFormats are the output formats of the reporting commands.
var validFormats = []string{"text", "json"}

// rootOptions holds global flags for all commands.
type rootOptions struct {
	DBPath     string
	ConfigPath string
	LogPath    string
	Verbose    bool
	Format     string

	policy   config.Policy
	closeLog func()
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "izposoja",
		Short: "Library lending service",
		Long: `Lend physical copies of books to borrowers.

Copies are claimed without double-lending under concurrent requests,
loans can be renewed a limited number of times, and borrowers are
reminded about loans that are due soon or overdue.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}

			closeLog, err := setupLogger(opts.LogPath, opts.Verbose)
			if err != nil {
				return err
			}
			opts.closeLog = closeLog

			policy, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.policy = policy
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.closeLog != nil {
				opts.closeLog()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.DBPath, "db", "d", defaultDBPath, "SQLite database path")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "lending policy file (YAML); defaults apply when empty")
	flags.StringVarP(&opts.LogPath, "log", "l", "", "log file path (default: no file, stdout/stderr only)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log debug messages")
	flags.StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newLoansCommand(opts))
	cmd.AddCommand(newNoticesCommand(opts))

	return cmd
}

// openExisting opens a database that must already exist and brings its
// schema up to date.
func (o *rootOptions) openExisting() (*sqlx.DB, error) {
	if _, err := os.Stat(o.DBPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("database %s does not exist, run izposoja init first", o.DBPath)
	}

	database, err := db.Open(o.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return database, nil
}
