package cli

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/airbridge-project/airbridge/internal/audit"
)

// RegisterAuditCommands adds audit log inspection commands.
func RegisterAuditCommands(root *cobra.Command) {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the invocation audit log",
	}

	auditCmd.AddCommand(newAuditVerifyCmd())
	auditCmd.AddCommand(newAuditTailCmd())

	root.AddCommand(auditCmd)
}

func newAuditVerifyCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the audit hash chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sql.Open("sqlite3", dbPath)
			if err != nil {
				return fmt.Errorf("opening audit db: %w", err)
			}
			defer db.Close()

			valid, count, err := audit.Verify(db)
			if err != nil {
				return err
			}
			if !valid {
				return fmt.Errorf("audit chain invalid after %d records", count)
			}
			fmt.Printf("Audit chain valid: %d records\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "airbridge-audit.db", "Path to the audit database")
	return cmd
}

func newAuditTailCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the most recent audit records",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sql.Open("sqlite3", dbPath)
			if err != nil {
				return fmt.Errorf("opening audit db: %w", err)
			}
			defer db.Close()

			rows, err := db.Query(
				`SELECT timestamp, tool, environment, event_type, detail
				 FROM invocation_log ORDER BY id DESC LIMIT ?`, limit)
			if err != nil {
				return fmt.Errorf("querying audit log: %w", err)
			}
			defer rows.Close()

			for rows.Next() {
				var ts, tool, environment, eventType, detail string
				if err := rows.Scan(&ts, &tool, &environment, &eventType, &detail); err != nil {
					return fmt.Errorf("scanning audit row: %w", err)
				}
				if environment != "" {
					fmt.Printf("%s  %-14s %-24s [%s] %s\n", ts, eventType, tool, environment, detail)
				} else {
					fmt.Printf("%s  %-14s %-24s %s\n", ts, eventType, tool, detail)
				}
			}
			return rows.Err()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "airbridge-audit.db", "Path to the audit database")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of records to show")
	return cmd
}
