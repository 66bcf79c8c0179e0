// Package main is the entry point for the blog API.
//
// The binary has three commands:
//
//	server serve    run the HTTP API (the default when no command is given)
//	server migrate  create the schema and exit
//	server seed     insert the demo accounts and articles
//
// Configuration comes from the environment (a .env file in the working
// directory is loaded first) and can be overridden with flags. See
// internal/config for the full list of keys.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sakif/blog-backend/internal/config"
)

func main() {
	if err := newRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// app is what every command shares once PersistentPreRunE has run.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: config.New(), out: out}

	root := &cobra.Command{
		Use:           "server",
		Short:         "Blog API: articles, role requests and a follow feed",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is normal in production.
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("loading .env: %w", err)
			}

			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg

			logger, err := newLogger(out, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			a.logger = logger
			slog.SetDefault(logger)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.Int("port", 8080, "HTTP port (PORT)")
	flags.String("database-url", "sqlite:data/blog.db", "database URL, sqlite:<path> or postgres://... (DATABASE_URL)")
	// Flags only win over the environment when they were actually passed.
	a.v.BindPFlag("port", flags.Lookup("port"))
	a.v.BindPFlag("database_url", flags.Lookup("database-url"))

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create the database schema and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.migrate()
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Insert demo accounts and articles",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.seed(cmd.Context())
			},
		},
	)

	return root
}

// newLogger builds the process logger. Text is easier to read in a terminal;
// JSON is what log collectors want.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
