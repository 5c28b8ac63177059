// airbridge — MCP server for Amazon Managed Workflows for Apache Airflow.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/airbridge-project/airbridge/cmd/airbridge/cli"
)

var version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "airbridge",
		Short: "MCP server for Amazon Managed Workflows for Apache Airflow",
		Long: `airbridge exposes MWAA environment management and Airflow workflow
operations to MCP clients. Environment tools use the AWS control plane;
DAG, task and variable tools reach each environment's Airflow REST API
through short-lived CLI tokens minted on demand.

The server starts in read-only mode unless explicitly made writable.`,
		Version:      version,
		SilenceUsage: true,
	}

	cli.RegisterServeCommand(rootCmd)
	cli.RegisterAuditCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
