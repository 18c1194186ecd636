/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: emitter_test.go
Description: Tests for the Thrift IDL emitter. Covers section layout, typedef
aliases, field id repair, reference degradation to safe primitives, exception
rendering, throws clauses, and write-out through the filesystem abstraction.
*/

package emit

import (
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/thrift-miner/pkg/idl"
	"github.com/kleascm/thrift-miner/pkg/recovery"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func renderContext(ctx *recovery.Context) string {
	return NewEmitter(ctx, "line.thrift", quietLogger()).Render()
}

func TestRenderEmptyContext(t *testing.T) {
	out := renderContext(recovery.NewContext())

	assert.True(t, strings.HasPrefix(out, "namespace java line.thrift\n"))
	assert.Contains(t, out, "# Enums")
	assert.Contains(t, out, "// Enumerations")
	assert.Contains(t, out, "# Structs")
	assert.Contains(t, out, "// Data structures")
	assert.Contains(t, out, "# Services")
	assert.Contains(t, out, "// Service definitions")
	// No aliases, no typedef header
	assert.NotContains(t, out, "typedef")
}

func TestRenderEnum(t *testing.T) {
	ctx := recovery.NewContext()
	ctx.Enums["ContentType"] = &idl.Enum{Name: "ContentType", Values: []idl.EnumValue{
		{Name: "NONE", Value: "0"},
		{Name: "IMAGE", Value: "1"},
		{Name: "AGENT", Value: "007"},
	}}

	out := renderContext(ctx)
	assert.Contains(t, out, "enum ContentType {\n  NONE = 0,\n  IMAGE = 1,\n  AGENT = 007\n}")
}

func TestRenderFieldIDRepair(t *testing.T) {
	ctx := recovery.NewContext()
	ctx.Structs["Message"] = &idl.Struct{Name: "Message", Fields: []*idl.Field{
		{ID: 0, Name: "first", Kind: idl.KindString},
		{ID: 1, Name: "second", Kind: idl.KindI64},
		{ID: 1, Name: "third", Kind: idl.KindBool},
	}}

	out := renderContext(ctx)
	assert.Contains(t, out, "1: string first")
	assert.Contains(t, out, "  2: i64 second") // shifted off the repaired 1
	assert.Contains(t, out, "  3: bool third")

	// Render-time repair must not mutate the recovered fields
	assert.Equal(t, 0, ctx.Structs["Message"].Fields[0].ID)
}

func TestRenderReferenceDegradation(t *testing.T) {
	ctx := recovery.NewContext()
	ctx.Enums["ContentType"] = &idl.Enum{Name: "ContentType", Values: []idl.EnumValue{{Name: "NONE", Value: "0"}}}
	ctx.Structs["Known"] = &idl.Struct{Name: "Known"}
	ctx.Structs["Holder"] = &idl.Struct{Name: "Holder", Fields: []*idl.Field{
		{ID: 1, Name: "a", Kind: idl.KindStruct, TypeName: "Known"},
		{ID: 2, Name: "b", Kind: idl.KindStruct, TypeName: "Ghost"},
		{ID: 3, Name: "c", Kind: idl.KindList, ValType: "Ghost"},
		{ID: 4, Name: "d", Kind: idl.KindList, ValType: "ContentType"},
		{ID: 5, Name: "e", Kind: idl.KindMap, KeyType: "Known", ValType: "long"},
		{ID: 6, Name: "f", Kind: idl.KindEnum, TypeName: "ContentType"},
		{ID: 7, Name: "g", Kind: idl.KindEnum},
		{ID: 8, Name: "h", Kind: idl.KindI32, TypeName: "ContentType"},
	}}

	out := renderContext(ctx)
	assert.Contains(t, out, "1: Known a")
	assert.Contains(t, out, "2: i32 b")
	assert.Contains(t, out, "3: list<i32> c")
	assert.Contains(t, out, "4: list<ContentType> d")
	// Structs are not valid map keys
	assert.Contains(t, out, "5: map<i32,i64> e")
	assert.Contains(t, out, "6: ContentType f")
	assert.Contains(t, out, "7: i32 g")
	assert.Contains(t, out, "8: ContentType h")
}

func TestRenderExceptionKind(t *testing.T) {
	ctx := recovery.NewContext()
	ctx.Structs["TalkException"] = &idl.Struct{Name: "TalkException"}
	ctx.Structs["Plain"] = &idl.Struct{Name: "Plain"}
	ctx.ExceptionStructs["TalkException"] = struct{}{}

	out := renderContext(ctx)
	assert.Contains(t, out, "exception TalkException {")
	assert.Contains(t, out, "struct Plain {")
}

func TestRenderServiceSignatures(t *testing.T) {
	ctx := recovery.NewContext()
	ctx.Structs["MessageRequest"] = &idl.Struct{Name: "MessageRequest"}
	ctx.Structs["SendMessageResponse"] = &idl.Struct{Name: "SendMessageResponse"}
	ctx.Structs["TalkException"] = &idl.Struct{Name: "TalkException"}
	ctx.EmittedExceptionNames["TalkException"] = struct{}{}
	ctx.ExceptionNameAlias["TalkException"] = "TalkException"

	svc := &idl.Service{Name: "TalkService"}
	svc.AddMethod("sendMessage", "MessageRequest", "SendMessageResponse", []string{"TalkException"})
	svc.AddMethod("ping", "binary", "void", nil)
	svc.AddMethod("fetch", "Unknown", "Ghost", []string{"MissingException"})
	ctx.Services["TalkService"] = svc

	out := renderContext(ctx)
	assert.Contains(t, out, "service TalkService {")
	assert.Contains(t, out, "  SendMessageResponse sendMessage(1: MessageRequest request) throws (1: TalkException ex1),")
	assert.Contains(t, out, "  void ping(1: binary request),")
	// Unresolvable signature types degrade to binary; undefined
	// exceptions are dropped from throws
	assert.Contains(t, out, "  binary fetch(1: binary request)\n}")
}

func TestRenderRenamedExceptionThrows(t *testing.T) {
	ctx := recovery.NewContext()
	ctx.Structs["NotFoundException_2"] = &idl.Struct{Name: "NotFoundException_2"}
	ctx.EmittedExceptionNames["NotFoundException_2"] = struct{}{}
	ctx.ExceptionNameAlias["NotFoundException"] = "NotFoundException_2"

	svc := &idl.Service{Name: "ShopService"}
	svc.AddMethod("buy", "binary", "void", []string{"NotFoundException"})
	ctx.Services["ShopService"] = svc

	out := renderContext(ctx)
	assert.Contains(t, out, "throws (1: NotFoundException_2 ex1)")
}

func TestRenderAliases(t *testing.T) {
	ctx := recovery.NewContext()
	ctx.Structs["SendMessageRequest"] = &idl.Struct{Name: "SendMessageRequest"}
	ctx.AliasMap["ka2"] = "GetProfileResponse"
	ctx.AliasMap["km9"] = "SendMessageRequest" // clashes with a real struct
	ctx.AliasMap["zz1"] = "GetProfileResponse" // duplicate semantic name

	out := renderContext(ctx)
	assert.Contains(t, out, "// Type aliases for obfuscated names")
	assert.Equal(t, 1, strings.Count(out, "typedef i32 GetProfileResponse"))
	assert.NotContains(t, out, "typedef i32 SendMessageRequest")
}

func TestRenderReservedNamesEscaped(t *testing.T) {
	ctx := recovery.NewContext()
	ctx.Structs["Box"] = &idl.Struct{Name: "Box", Fields: []*idl.Field{
		{ID: 1, Name: "required", Kind: idl.KindBool},
	}}

	out := renderContext(ctx)
	assert.Contains(t, out, "1: bool required_")
}

func TestWriteThrift(t *testing.T) {
	fs := afero.NewMemMapFs()
	ctx := recovery.NewContext()
	em := NewEmitter(ctx, "line.thrift", quietLogger())

	require.NoError(t, em.WriteThrift(fs, "/out/line.thrift"))
	data, err := afero.ReadFile(fs, "/out/line.thrift")
	require.NoError(t, err)
	assert.Equal(t, em.Render(), string(data))
}
