// Package main provides the exam_agent command: the HTTP API server for
// exam registration automation plus its operational subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "exam_agent",
	Short:        "Exam Registration Automation API Server",
	Long:         "exam_agent manages exam portal configurations and the lifecycle of automated registration applications via REST API.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
