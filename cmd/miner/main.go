/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Main command-line interface for the Thrift Miner. Provides comprehensive
command-line options, configuration management, and beautiful user interface for
recovering Thrift IDL definitions from decompiled sources.
*/

package main

import (
	"fmt"
	"os"

	"github.com/kleascm/thrift-miner/cmd/miner/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Configuration
	configFile string
	logLevel   string
	jsonLogs   bool

	// Recovery configuration
	sourcesDir string
	outputFile string
	namespace  string

	// Logging configuration
	logDir      string
	logFormat   string
	logMaxFiles int

	// Metrics configuration
	metricsDir     string
	archiveMetrics bool
)

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:   "thrift-miner",
		Short: "Thrift Miner - Thrift IDL recovery engine for decompiled sources",
		Long: `Thrift Miner is a static analysis engine that reconstructs Thrift IDL
definitions from decompiled, obfuscated Java sources. It recognizes enums, data
structures, exceptions, and RPC services through layered heuristics and emits a
single self-consistent .thrift artifact together with a capture report.`,
		Version: "1.0.0",
	}

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Use JSON log format")

	// Add logging-specific flags
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Log output directory (empty = stdout only)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "custom", "Log format (text, json, custom)")
	rootCmd.PersistentFlags().IntVar(&logMaxFiles, "log-max-files", 10, "Maximum number of log files to keep")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("json_logs", rootCmd.PersistentFlags().Lookup("json-logs"))
	viper.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log_max_files", rootCmd.PersistentFlags().Lookup("log-max-files"))

	// Add recover command
	recoverCmd := &cobra.Command{
		Use:   "recover",
		Short: "Recover Thrift IDL from a decompiled source tree",
		Long: `Scan a decompiled Java source tree, recover enums, structs, exceptions,
and RPC services through heuristic recognizers, and write a self-consistent
.thrift document plus JSON and text capture reports.`,
		RunE: commands.RunRecover,
	}

	// Add recover command flags
	recoverCmd.Flags().StringVar(&sourcesDir, "sources", "", "Root directory of decompiled Java sources (required)")
	recoverCmd.Flags().StringVar(&outputFile, "output", "", "Path of the .thrift artifact to write (required)")
	recoverCmd.Flags().StringVar(&namespace, "namespace", "line.thrift", "Java namespace for the generated IDL")
	recoverCmd.Flags().StringVar(&metricsDir, "metrics-dir", "./metrics", "Directory for archived run metrics")
	recoverCmd.Flags().BoolVar(&archiveMetrics, "archive-metrics", false, "Archive the run report under the metrics directory")

	// Mark required flags
	recoverCmd.MarkFlagRequired("sources")
	recoverCmd.MarkFlagRequired("output")

	// Bind flags to viper
	viper.BindPFlag("sources", recoverCmd.Flags().Lookup("sources"))
	viper.BindPFlag("output_file", recoverCmd.Flags().Lookup("output"))
	viper.BindPFlag("namespace", recoverCmd.Flags().Lookup("namespace"))
	viper.BindPFlag("metrics_dir", recoverCmd.Flags().Lookup("metrics-dir"))
	viper.BindPFlag("archive_metrics", recoverCmd.Flags().Lookup("archive-metrics"))

	rootCmd.AddCommand(recoverCmd)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
