package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthreport/reportd/internal/config"
	"github.com/healthreport/reportd/internal/extract"
	"github.com/healthreport/reportd/internal/platform/db"
	"github.com/healthreport/reportd/internal/render"
	"github.com/healthreport/reportd/internal/report"
	"github.com/healthreport/reportd/migrations"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "report-server",
		Short:        "Health assessment report server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(extractCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the report API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// migrationSource returns the embedded migrations, or dir when set.
func migrationSource(dir string) fs.FS {
	if dir == "" {
		return migrations.Files
	}
	return os.DirFS(dir)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrationSource(dir)).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to a migrations directory (default: embedded migrations)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationSource(dir)).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to a migrations directory (default: embedded migrations)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo accounts and sample assessments into the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.UsesPostgres() {
				return errors.New("seed needs STORE_BACKEND=postgres; the memory backend seeds itself on start")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer a.close()
			return a.seed(ctx, file)
		},
	}
	cmd.Flags().String("file", "", "JSON file of sample assessments (default: built-in samples)")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the assessment configuration",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an assessment configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			return validateConfig(cmd.OutOrStdout(), file)
		},
	}
	validateCmd.Flags().String("file", "", "YAML configuration file (default: built-in configuration)")
	cmd.AddCommand(validateCmd)
	return cmd
}

// validateConfig loads the configuration at path and prints a summary of it,
// or every problem found.
func validateConfig(w io.Writer, path string) error {
	ok := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)

	name := path
	if name == "" {
		name = "built-in configuration"
	}

	catalog, err := loadCatalog(path)
	if err != nil {
		bad.Fprintf(w, "✗ %s is invalid\n", name)
		for _, p := range configProblems(err) {
			fmt.Fprintf(w, "  - %s\n", p)
		}
		return err
	}

	ok.Fprintf(w, "✓ %s is valid (version %s)\n", name, catalog.Version())
	for _, at := range catalog.Types() {
		fmt.Fprintf(w, "  %-16s %-40s %d sections, %d fields\n", at.ID, at.Name, len(at.Sections), at.FieldCount())
	}
	return nil
}

// configProblems flattens an aggregated configuration error into one line
// per problem.
func configProblems(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, configProblems(e)...)
		}
		return out
	}
	if inner := errors.Unwrap(err); inner != nil {
		if _, ok := inner.(interface{ Unwrap() []error }); ok {
			return configProblems(inner)
		}
	}
	return []string{err.Error()}
}

type extractOptions struct {
	recordPath string
	configPath string
	format     string
	out        string
}

func extractCmd() *cobra.Command {
	var opts extractOptions
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Render a report for a JSON assessment record without a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger()
			path, err := runExtract(cmd.Context(), opts, logger, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.recordPath, "record", "", "JSON file holding one assessment record")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML assessment configuration (default: built-in configuration)")
	cmd.Flags().StringVar(&opts.format, "format", "", "Output format: pdf, html or json (default: first that succeeds)")
	cmd.Flags().StringVar(&opts.out, "out", "", "Output file or directory (default: current directory)")
	_ = cmd.MarkFlagRequired("record")
	return cmd
}

// runExtract renders the record at opts.recordPath and returns the path of
// the written report.
func runExtract(ctx context.Context, opts extractOptions, logger zerolog.Logger, now time.Time) (string, error) {
	catalog, err := loadCatalog(opts.configPath)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(opts.recordPath)
	if err != nil {
		return "", fmt.Errorf("read record: %w", err)
	}
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return "", fmt.Errorf("parse record: %w", err)
	}
	assessmentID, _ := record["assessment_id"].(string)
	sessionID, _ := record["session_id"].(string)
	if assessmentID == "" {
		return "", errors.New("record has no assessment_id")
	}
	if sessionID == "" {
		sessionID = "offline"
	}

	processor := extract.NewProcessor(extract.NewTransformer(catalog.Names(), logger), logger)
	data, err := report.NewAssembler(catalog, processor).AssembleRecord(record, assessmentID, sessionID, now)
	if err != nil {
		return "", err
	}

	chain := render.DefaultChain(logger)
	if opts.format != "" {
		f, err := render.ParseFormat(opts.format)
		if err != nil {
			return "", err
		}
		r, err := render.ForFormat(f)
		if err != nil {
			return "", err
		}
		chain = render.NewChain(logger, r)
	}
	artifact, err := chain.Render(ctx, data)
	if err != nil {
		return "", err
	}

	target := opts.out
	fileName := render.FileName(sessionID, now, artifact.Format)
	if target == "" {
		target = fileName
	} else if info, err := os.Stat(target); err == nil && info.IsDir() {
		target = filepath.Join(target, fileName)
	}
	if err := os.WriteFile(target, artifact.Data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return target, nil
}
