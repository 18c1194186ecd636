/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report_test.go
Description: Tests for the recovery run report. Covers count aggregation,
incomplete-method detection, report path derivation, and the dual JSON/text
write-out.
*/

package emit

import (
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/thrift-miner/pkg/idl"
	"github.com/kleascm/thrift-miner/pkg/recovery"
)

func reportContext() *recovery.Context {
	ctx := recovery.NewContext()
	ctx.Enums["ContentType"] = &idl.Enum{Name: "ContentType"}
	ctx.Structs["Message"] = &idl.Struct{Name: "Message"}
	ctx.Structs["TalkException"] = &idl.Struct{Name: "TalkException"}
	ctx.ExceptionStructs["TalkException"] = struct{}{}
	ctx.AliasMap["ka2"] = "SendMessageRequest"

	svc := &idl.Service{Name: "TalkService"}
	svc.AddMethod("sendMessage", "MessageRequest", "SendMessageResponse", nil)
	svc.AddMethod("ping", "binary", "void", nil)
	ctx.Services["TalkService"] = svc
	return ctx
}

func TestNewReportCounts(t *testing.T) {
	r := NewReport(reportContext(), "/decompiled", "/out/line.thrift")

	assert.NotEmpty(t, r.RunID)
	assert.NotEmpty(t, r.Timestamp)
	assert.Equal(t, "/decompiled", r.SourceRoot)
	assert.Equal(t, "/out/line.thrift", r.OutputFile)

	assert.Equal(t, 1, r.Counts.Enums)
	assert.Equal(t, 2, r.Counts.Structs)
	assert.Equal(t, 1, r.Counts.Services)
	assert.Equal(t, 2, r.Counts.Methods)
	assert.Equal(t, 1, r.Counts.Aliases)
	assert.Equal(t, 1, r.Counts.Exceptions)
}

func TestReportIncompleteMethods(t *testing.T) {
	r := NewReport(reportContext(), "/decompiled", "/out/line.thrift")

	// Only ping still carries default types
	require.Len(t, r.IncompleteMethods, 1)
	m := r.IncompleteMethods[0]
	assert.Equal(t, "TalkService", m.Service)
	assert.Equal(t, "ping", m.Name)
	assert.Equal(t, "binary", m.ArgType)
	assert.Equal(t, "void", m.RetType)

	text := r.Text()
	assert.Contains(t, text, "Incomplete methods")
	assert.Contains(t, text, "- TalkService.ping(binary) -> void")
}

func TestReportPaths(t *testing.T) {
	r := NewReport(recovery.NewContext(), "/src", "/out/line.thrift")
	assert.Equal(t, "/out/line.report.json", r.JSONPath())
	assert.Equal(t, "/out/line.report.txt", r.TextPath())
}

func TestReportWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewReport(reportContext(), "/decompiled", "/out/line.thrift")
	r.Write(fs, quietLogger())

	data, err := afero.ReadFile(fs, "/out/line.report.json")
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.RunID, decoded.RunID)
	assert.Equal(t, r.Counts, decoded.Counts)

	text, err := afero.ReadFile(fs, "/out/line.report.txt")
	require.NoError(t, err)
	assert.Contains(t, string(text), "Run ID: "+r.RunID)
	assert.Contains(t, string(text), "methods: 2")
}
