/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: recover.go
Description: Recover command implementation for the Thrift Miner. Loads the source
corpus, runs the recovery pipeline, emits the .thrift artifact and capture reports,
and prints a run summary.
*/

package commands

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kleascm/thrift-miner/pkg/corpus"
	"github.com/kleascm/thrift-miner/pkg/emit"
	"github.com/kleascm/thrift-miner/pkg/recovery"
	"github.com/kleascm/thrift-miner/pkg/utils"
)

// RunRecover executes the full recovery pipeline
func RunRecover(cmd *cobra.Command, args []string) error {
	fmt.Println("⛏️  Thrift Miner - Starting Recovery Run")
	fmt.Println("========================================")
	fmt.Println()

	// Load configuration first
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logging
	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.GetLogger()

	sources := viper.GetString("sources")
	output := viper.GetString("output_file")
	namespace := viper.GetString("namespace")

	fs := afero.NewOsFs()

	// Load the source corpus
	c := corpus.New(fs, sources)
	if err := c.Load(); err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	// Run the recovery pipeline
	engine := recovery.NewEngine(log)
	if err := engine.Run(c); err != nil {
		return fmt.Errorf("recovery failed: %w", err)
	}
	ctx := engine.Context()

	// Emit the IDL artifact
	emitter := emit.NewEmitter(ctx, namespace, log)
	if err := emitter.WriteThrift(fs, output); err != nil {
		return err
	}

	// Write the capture report next to the artifact (best-effort)
	report := emit.NewReport(ctx, sources, output)
	report.Write(fs, log)

	// Archive run metrics if requested
	if viper.GetBool("archive_metrics") {
		path, err := utils.WriteMetricsResult(fs, viper.GetString("metrics_dir"), "recover", cmd.Root().Version, report)
		if err != nil {
			log.WithError(err).Warn("Failed to archive run metrics")
		} else {
			log.WithField("file", path).Info("Run metrics archived")
		}
	}

	printSummary(ctx, output)
	return nil
}

// printSummary prints the final recovery statistics
func printSummary(ctx *recovery.Context, output string) {
	fmt.Println()
	fmt.Println("✨ Recovery Complete!")
	fmt.Println("----------------------------------------")
	fmt.Printf("  Enums:     %d\n", len(ctx.Enums))
	fmt.Printf("  Structs:   %d\n", len(ctx.Structs))
	fmt.Printf("  Services:  %d\n", len(ctx.Services))
	fmt.Printf("  Methods:   %d\n", ctx.MethodCount())
	fmt.Printf("  Aliases:   %d\n", len(ctx.AliasMap))
	fmt.Println()
	fmt.Printf("📄 Output:   %s\n", output)
}
