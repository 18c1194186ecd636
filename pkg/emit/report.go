/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report.go
Description: Recovery run report. Summarizes what a run recovered (definition counts
plus the methods still carrying default signatures) and writes JSON and text renderings
next to the IDL artifact. Report writing is best-effort and never fails a run.
*/

package emit

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/kleascm/thrift-miner/pkg/recovery"
)

// ReportCounts summarizes how many definitions a run recovered.
type ReportCounts struct {
	Enums      int `json:"enums"`
	Structs    int `json:"structs"`
	Services   int `json:"services"`
	Methods    int `json:"methods"`
	Aliases    int `json:"aliases"`
	Exceptions int `json:"exceptions"`
}

// IncompleteMethod is a recovered method still carrying a default
// argument or return type, flagged for manual follow-up.
type IncompleteMethod struct {
	Service string `json:"service"`
	Name    string `json:"name"`
	ArgType string `json:"arg_type"`
	RetType string `json:"ret_type"`
}

// Report is the machine-readable run summary.
type Report struct {
	RunID             string             `json:"run_id"`
	Timestamp         string             `json:"timestamp"`
	SourceRoot        string             `json:"source_root"`
	OutputFile        string             `json:"output_file"`
	Counts            ReportCounts       `json:"counts"`
	IncompleteMethods []IncompleteMethod `json:"incomplete_methods"`
}

// NewReport builds a report from a finished recovery context.
func NewReport(ctx *recovery.Context, sourceRoot, outputFile string) *Report {
	r := &Report{
		RunID:      uuid.New().String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		SourceRoot: sourceRoot,
		OutputFile: outputFile,
		Counts: ReportCounts{
			Enums:      len(ctx.Enums),
			Structs:    len(ctx.Structs),
			Services:   len(ctx.Services),
			Methods:    ctx.MethodCount(),
			Aliases:    len(ctx.AliasMap),
			Exceptions: len(ctx.ExceptionStructs),
		},
	}
	for _, key := range sortedServiceKeys(ctx.Services) {
		svc := ctx.Services[key]
		for _, m := range svc.Methods {
			if m.ArgType == "binary" || m.RetType == "void" || m.RetType == "binary" {
				r.IncompleteMethods = append(r.IncompleteMethods, IncompleteMethod{
					Service: svc.Name,
					Name:    m.Name,
					ArgType: m.ArgType,
					RetType: m.RetType,
				})
			}
		}
	}
	return r
}

// Text renders the human-readable summary.
func (r *Report) Text() string {
	lines := []string{
		fmt.Sprintf("Report generated: %s", r.Timestamp),
		fmt.Sprintf("Run ID: %s", r.RunID),
		fmt.Sprintf("Source root: %s", r.SourceRoot),
		fmt.Sprintf("Output: %s", r.OutputFile),
		fmt.Sprintf("enums: %d", r.Counts.Enums),
		fmt.Sprintf("structs: %d", r.Counts.Structs),
		fmt.Sprintf("services: %d", r.Counts.Services),
		fmt.Sprintf("methods: %d", r.Counts.Methods),
		fmt.Sprintf("aliases: %d", r.Counts.Aliases),
		fmt.Sprintf("exceptions: %d", r.Counts.Exceptions),
	}
	if len(r.IncompleteMethods) > 0 {
		lines = append(lines, "", "Incomplete methods (arg is binary or ret is void/binary):")
		for _, m := range r.IncompleteMethods {
			lines = append(lines, fmt.Sprintf("- %s.%s(%s) -> %s", m.Service, m.Name, m.ArgType, m.RetType))
		}
	}
	return strings.Join(lines, "\n")
}

// JSONPath returns the JSON report path derived from the IDL artifact
// path by swapping its extension.
func (r *Report) JSONPath() string {
	return swapExt(r.OutputFile, ".report.json")
}

// TextPath returns the text report path.
func (r *Report) TextPath() string {
	return swapExt(r.OutputFile, ".report.txt")
}

// Write emits both renderings next to the IDL artifact. Failures are
// logged and swallowed so report problems never fail the run.
func (r *Report) Write(fs afero.Fs, log *logrus.Logger) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err == nil {
		if werr := afero.WriteFile(fs, r.JSONPath(), data, 0644); werr != nil {
			log.WithError(werr).Warn("Failed to write JSON report")
		}
	} else {
		log.WithError(err).Warn("Failed to encode JSON report")
	}
	if werr := afero.WriteFile(fs, r.TextPath(), []byte(r.Text()), 0644); werr != nil {
		log.WithError(werr).Warn("Failed to write text report")
	}
}

// swapExt replaces path's extension with the given suffix.
func swapExt(path, suffix string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + suffix
}
