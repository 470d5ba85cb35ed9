package main

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const defaultSanitizeTables = "volunteers,events,uploads,blog_posts,donations,refresh_tokens,users,roles"

var tableNameRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func newSanitizeCmd(envFile *string) *cobra.Command {
	var (
		dryRun bool
		yes    bool
		reseed bool
		tables string
	)
	cmd := &cobra.Command{
		Use:   "sanitize",
		Short: "Truncate application tables (dev and staging only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, log, err := bootstrap(cmd.Context(), *envFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			existing, err := presentTables(cmd.Context(), db, splitTableNames(tables, out))
			if err != nil {
				return err
			}
			if len(existing) == 0 {
				fmt.Fprintln(out, "no requested tables present in the database; nothing to do")
				return nil
			}
			fmt.Fprintln(out, "Tables considered for truncation:")
			for _, t := range existing {
				fmt.Fprintf(out, " - %s\n", t)
			}
			if dryRun {
				fmt.Fprintln(out, "dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
				return nil
			}
			if !yes {
				fmt.Fprintln(out, "Destructive operation. Pass --yes to confirm execution. Aborting.")
				return nil
			}
			if err := truncateTables(cmd.Context(), db, existing); err != nil {
				return err
			}
			fmt.Fprintln(out, "Truncate completed.")
			if reseed {
				return seed(cmd.Context(), db, cfg, log)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "show what would be truncated without changing anything")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the destructive action")
	cmd.Flags().BoolVar(&reseed, "reseed", false, "recreate roles and the admin user afterwards")
	cmd.Flags().StringVar(&tables, "tables", defaultSanitizeTables, "comma-separated tables to truncate")
	return cmd
}

// splitTableNames keeps only plain identifiers; anything else is reported and skipped.
func splitTableNames(csv string, warn io.Writer) []string {
	var names []string
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !tableNameRE.MatchString(p) {
			fmt.Fprintf(warn, "warning: skipping invalid table name %q\n", p)
			continue
		}
		names = append(names, p)
	}
	return names
}

func presentTables(ctx context.Context, db *gorm.DB, wanted []string) ([]string, error) {
	var existing []string
	for _, t := range wanted {
		var n int64
		err := db.WithContext(ctx).
			Raw("SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?", t).
			Scan(&n).Error
		if err != nil {
			return nil, fmt.Errorf("look up table %s: %w", t, err)
		}
		if n > 0 {
			existing = append(existing, t)
		}
	}
	return existing, nil
}

func truncateTables(ctx context.Context, db *gorm.DB, tables []string) error {
	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, `"`+t+`"`)
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
	if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	return nil
}
