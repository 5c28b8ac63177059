package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/airbridge-project/airbridge/internal/audit"
	"github.com/airbridge-project/airbridge/internal/config"
	"github.com/airbridge-project/airbridge/internal/guard"
	"github.com/airbridge-project/airbridge/internal/logging"
	"github.com/airbridge-project/airbridge/internal/mwaa"
	"github.com/airbridge-project/airbridge/internal/server"
)

// RegisterServeCommand adds the MCP serve command.
func RegisterServeCommand(root *cobra.Command) {
	var (
		configPath string
		region     string
		profile    string
		writable   bool
		logLevel   string
		auditDB    string
		sse        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP protocol on stdin/stdout",
		Long: `Start the MCP server. All logging goes to stderr; stdout carries the
protocol stream.

Examples:
  airbridge serve
  airbridge serve --region eu-west-1 --profile data-platform
  airbridge serve --writable --audit-db ./airbridge-audit.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("region") {
				cfg.Region = region
			}
			if cmd.Flags().Changed("profile") {
				cfg.Profile = profile
			}
			if cmd.Flags().Changed("writable") {
				cfg.ReadOnly = !writable
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("audit-db") {
				cfg.AuditDB = auditDB
			}

			logger := logging.NewLogger(cfg.LogLevel)
			if sse {
				logger.Warn().Msg("SSE transport is not supported; serving stdio")
			}

			var recorder *audit.Recorder
			if cfg.AuditDB != "" {
				recorder, err = audit.Open(cfg.AuditDB)
				if err != nil {
					return fmt.Errorf("opening audit log: %w", err)
				}
			}

			cp, err := mwaa.NewControlPlane(context.Background(), cfg.Region, cfg.Profile)
			if err != nil {
				return err
			}

			svc := mwaa.NewService(cp, guard.NewGate(cfg.ReadOnly), logger)
			srv := server.New(svc, recorder, logger)
			defer srv.Close()

			logger.Info().
				Str("region", cfg.Region).
				Bool("read_only", cfg.ReadOnly).
				Msg("starting MCP server")

			return srv.ServeStdio()
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.Flags().StringVar(&region, "region", "", "AWS region")
	cmd.Flags().StringVar(&profile, "profile", "", "AWS shared config profile")
	cmd.Flags().BoolVar(&writable, "writable", false, "Allow create, update, delete and DAG triggering")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	cmd.Flags().StringVar(&auditDB, "audit-db", "", "Path to the invocation audit database")
	cmd.Flags().BoolVar(&sse, "sse", false, "Ignored; kept for client compatibility")
	cmd.Flags().MarkHidden("sse")

	root.AddCommand(cmd)
}
