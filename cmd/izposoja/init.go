package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

type initOptions struct {
	*rootOptions
	AdminUser string
}

func newInitCommand(root *rootOptions) *cobra.Command {
	opts := &initOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and the first admin account",
		Long: `Create a new database with the full schema and an admin account.

The generated admin password is printed once and cannot be recovered.

Examples:
  izposoja init --db ./izposoja.sqlite3
  izposoja init --db ./izposoja.sqlite3 --user librarian`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.DBPath); err == nil {
				return fmt.Errorf("database %s already exists", opts.DBPath)
			}

			database, password, err := initDatabase(opts.DBPath, opts.AdminUser)
			if err != nil {
				return err
			}
			defer database.Close()

			printInitResult(cmd.OutOrStdout(), opts.DBPath, opts.AdminUser, password)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.AdminUser, "user", "u", "Admin", "admin username")

	return cmd
}

// initDatabase creates a new database, ensures the schema, and creates the admin user.
func initDatabase(path, adminUsername string) (*sqlx.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(err error) (*sqlx.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.Migrate(database); err != nil {
		return fail(fmt.Errorf("ensuring schema: %w", err))
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fail(fmt.Errorf("hashing password: %w", err))
	}

	_, err = store.CreateUser(context.Background(), database, adminUsername, string(hash), model.RoleAdmin)
	if errors.Is(err, store.ErrDuplicate) {
		return fail(fmt.Errorf("admin user %q already exists", adminUsername))
	}
	if err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	return database, password, nil
}

// printInitResult prints the database initialization result.
func printInitResult(w io.Writer, dbPath, username, password string) {
	fmt.Fprintf(w, "Database created: %s\n", dbPath)
	fmt.Fprintln(w, "Schema initialized.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Admin account created:")
	fmt.Fprintf(w, "  Username: %s\n", username)
	fmt.Fprintf(w, "  Password: %s\n", password)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Save this password, it cannot be recovered.")
	fmt.Fprintln(w, "The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
