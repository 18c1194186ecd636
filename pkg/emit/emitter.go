/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: emitter.go
Description: Thrift IDL emitter. Renders the recovery context into a single
self-consistent .thrift document: namespace, typedef aliases, enums, structs and
exceptions, then services. Every reference that cannot be proven to resolve is
degraded to a safe primitive so the artifact always parses.
*/

package emit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/kleascm/thrift-miner/pkg/idl"
	"github.com/kleascm/thrift-miner/pkg/recovery"
)

// baseTypes are the primitive types a container element or service
// signature may carry without further validation.
var baseTypes = map[string]struct{}{
	"bool": {}, "i8": {}, "i16": {}, "i32": {}, "i64": {},
	"double": {}, "string": {}, "binary": {},
}

// validMapKeyBases are the types Thrift allows as map keys, besides enums.
var validMapKeyBases = map[string]struct{}{
	"bool": {}, "byte": {}, "i8": {}, "i16": {}, "i32": {}, "i64": {},
	"double": {}, "string": {},
}

// Emitter renders one recovery context.
type Emitter struct {
	ctx       *recovery.Context
	namespace string
	log       *logrus.Logger
}

// NewEmitter creates an emitter for the given context and java namespace.
func NewEmitter(ctx *recovery.Context, namespace string, log *logrus.Logger) *Emitter {
	return &Emitter{ctx: ctx, namespace: namespace, log: log}
}

// Render produces the complete .thrift document.
func (e *Emitter) Render() string {
	var lines []string
	lines = append(lines, "namespace java "+e.namespace, "")
	lines = e.renderAliases(lines)
	lines = e.renderEnums(lines)
	lines = e.renderStructs(lines)
	lines = e.renderServices(lines)
	return strings.Join(lines, "\n")
}

// WriteThrift renders and writes the document to path.
func (e *Emitter) WriteThrift(fs afero.Fs, path string) error {
	e.log.WithFields(logrus.Fields{"file": path}).Info("Writing IDL artifact...")
	if err := afero.WriteFile(fs, path, []byte(e.Render()), 0644); err != nil {
		return fmt.Errorf("failed to write IDL artifact: %w", err)
	}
	return nil
}

// renderAliases emits typedef lines for obfuscated-to-semantic aliases,
// skipping duplicates and names already taken by real definitions.
func (e *Emitter) renderAliases(lines []string) []string {
	if len(e.ctx.AliasMap) == 0 {
		return lines
	}
	lines = append(lines, "// Type aliases for obfuscated names")

	taken := make(map[string]struct{})
	for name := range e.ctx.Enums {
		taken[name] = struct{}{}
	}
	for _, st := range e.ctx.Structs {
		taken[st.Name] = struct{}{}
	}
	for _, svc := range e.ctx.Services {
		taken[svc.Name] = struct{}{}
	}

	seen := make(map[string]struct{})
	for _, obfuscated := range sortedKeys(e.ctx.AliasMap) {
		semantic := e.ctx.AliasMap[obfuscated]
		if _, dup := seen[semantic]; dup {
			continue
		}
		if _, clash := taken[semantic]; clash {
			continue
		}
		seen[semantic] = struct{}{}
		// Aliases carry no recovered shape, so a safe default type.
		lines = append(lines, "typedef i32 "+semantic)
	}
	return append(lines, "")
}

func (e *Emitter) renderEnums(lines []string) []string {
	lines = append(lines, "# Enums", "// Enumerations")
	seen := make(map[string]struct{})
	for _, key := range sortedEnumKeys(e.ctx.Enums) {
		en := e.ctx.Enums[key]
		if len(en.Values) == 0 {
			continue
		}
		if _, dup := seen[en.Name]; dup {
			continue
		}
		seen[en.Name] = struct{}{}
		lines = append(lines, fmt.Sprintf("enum %s {", en.Name))
		seenValues := make(map[string]struct{})
		for _, v := range en.Values {
			if _, dup := seenValues[v.Name]; dup {
				continue
			}
			seenValues[v.Name] = struct{}{}
			lines = append(lines, fmt.Sprintf("  %s = %s,", idl.EscapeReserved(v.Name), v.Value))
		}
		lines = trimTrailingComma(lines)
		lines = append(lines, "}", "")
	}
	return lines
}

func (e *Emitter) renderStructs(lines []string) []string {
	lines = append(lines, "# Structs", "// Data structures")
	seen := make(map[string]struct{})
	for _, key := range sortedStructKeys(e.ctx.Structs) {
		st := e.ctx.Structs[key]
		if _, dup := seen[st.Name]; dup {
			continue
		}
		seen[st.Name] = struct{}{}

		kind := "struct"
		if strings.HasSuffix(st.Name, "Exception") || e.ctx.IsException(st.Name) {
			kind = "exception"
		} else if _, emitted := e.ctx.EmittedExceptionNames[st.Name]; emitted {
			kind = "exception"
		}
		lines = append(lines, fmt.Sprintf("%s %s {", kind, st.Name))
		lines = e.renderFields(lines, st)
		lines = append(lines, "}", "")
	}
	return lines
}

// renderFields emits a struct's fields ordered by id, repairing zero and
// duplicate ids at render time without mutating the recovered fields.
func (e *Emitter) renderFields(lines []string, st *idl.Struct) []string {
	if len(st.Fields) == 0 {
		return lines
	}
	ordered := make([]*idl.Field, len(st.Fields))
	copy(ordered, st.Fields)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	seenIDs := make(map[int]struct{})
	nextID := 1
	for _, f := range ordered {
		id := f.ID
		if _, dup := seenIDs[id]; id <= 0 || dup {
			for {
				if _, taken := seenIDs[nextID]; !taken {
					break
				}
				nextID++
			}
			id = nextID
		}
		seenIDs[id] = struct{}{}
		if id >= nextID {
			nextID = id + 1
		}

		req := ""
		if f.Required {
			req = "required "
		}
		lines = append(lines, fmt.Sprintf("  %d: %s%s %s,", id, req, e.TypeStr(f), idl.EscapeReserved(f.Name)))
	}
	return trimTrailingComma(lines)
}

// TypeStr resolves a field to its emitted Thrift type. References that
// do not resolve against the recovered tables degrade to i32.
func (e *Emitter) TypeStr(f *idl.Field) string {
	switch f.Kind {
	case idl.KindBool, idl.KindI8, idl.KindDouble, idl.KindI16, idl.KindI64, idl.KindString:
		return string(f.Kind)
	case idl.KindI32:
		if f.TypeName != "" && (e.ctx.HasStruct(f.TypeName) || e.ctx.HasEnum(f.TypeName)) {
			return f.TypeName
		}
		return "i32"
	case idl.KindStruct:
		if f.TypeName != "" && e.ctx.HasStruct(f.TypeName) {
			return f.TypeName
		}
		return "i32"
	case idl.KindList:
		return fmt.Sprintf("list<%s>", e.elementType(f))
	case idl.KindSet:
		return fmt.Sprintf("set<%s>", e.elementType(f))
	case idl.KindMap:
		return fmt.Sprintf("map<%s,%s>", e.mapKeyType(f), e.mapValType(f))
	case idl.KindEnum:
		if f.TypeName != "" && e.ctx.HasEnum(f.TypeName) {
			return f.TypeName
		}
		return "i32"
	case idl.KindBinary:
		return "binary"
	default:
		return "i32"
	}
}

// elementType resolves a list or set element, preferring the recovered
// value type over the field's own type name.
func (e *Emitter) elementType(f *idl.Field) string {
	raw := idl.NormalizeTypeName(f.ValType, idl.ModeFlattened)
	if raw == "" {
		raw = idl.NormalizeTypeName(f.TypeName, idl.ModeFlattened)
	}
	if raw == "" {
		raw = "i32"
	}
	elem := idl.PrimitiveToThrift(raw)
	if !e.resolves(elem) {
		return "i32"
	}
	return elem
}

func (e *Emitter) mapKeyType(f *idl.Field) string {
	raw := idl.NormalizeTypeName(f.KeyType, idl.ModeFlattened)
	if raw == "" {
		raw = "i32"
	}
	kt := idl.PrimitiveToThrift(raw)
	if _, base := validMapKeyBases[kt]; base || e.ctx.HasEnum(kt) {
		return kt
	}
	return "i32"
}

func (e *Emitter) mapValType(f *idl.Field) string {
	raw := idl.NormalizeTypeName(f.ValType, idl.ModeFlattened)
	if raw == "" {
		raw = "i32"
	}
	vt := idl.PrimitiveToThrift(raw)
	if !e.resolves(vt) {
		return "i32"
	}
	return vt
}

// resolves reports whether a rendered element type is a base type or a
// recovered definition.
func (e *Emitter) resolves(t string) bool {
	if _, base := baseTypes[t]; base {
		return true
	}
	return e.ctx.HasEnum(t) || e.ctx.HasStruct(t)
}

func (e *Emitter) renderServices(lines []string) []string {
	lines = append(lines, "# Services", "// Service definitions")
	seen := make(map[string]struct{})
	for _, key := range sortedServiceKeys(e.ctx.Services) {
		svc := e.ctx.Services[key]
		if _, dup := seen[svc.Name]; dup {
			continue
		}
		seen[svc.Name] = struct{}{}
		lines = append(lines, fmt.Sprintf("service %s {", svc.Name))
		for _, m := range svc.Methods {
			argType := e.sanitizeSignature(e.mapResponse(m.ArgType))
			retType := e.sanitizeSignature(e.mapResponse(m.RetType))
			lines = append(lines, fmt.Sprintf("  %s %s(1: %s request)%s,",
				retType, idl.EscapeReserved(m.Name), argType, e.throwsClause(m)))
		}
		lines = trimTrailingComma(lines)
		lines = append(lines, "}", "")
	}
	return lines
}

func (e *Emitter) mapResponse(t string) string {
	if mapped, ok := e.ctx.ResponseMap[t]; ok {
		return mapped
	}
	return t
}

// sanitizeSignature degrades unresolvable signature types to binary.
// Containers are already well-formed when they reach here.
func (e *Emitter) sanitizeSignature(t string) string {
	t = idl.PrimitiveToThrift(t)
	if t == "" {
		return "binary"
	}
	if strings.Contains(t, "<") && strings.Contains(t, ">") {
		return t
	}
	if _, base := baseTypes[t]; base || t == "void" {
		return t
	}
	if e.ctx.HasStruct(t) || e.ctx.HasEnum(t) {
		return t
	}
	return "binary"
}

// throwsClause renders the throws list, keeping only exceptions that the
// document actually defines and mapping renamed ones to their emitted
// names.
func (e *Emitter) throwsClause(m *idl.Method) string {
	if len(m.Exceptions) == 0 {
		return ""
	}
	var valid []string
	for _, ex := range m.Exceptions {
		if ex == "" {
			continue
		}
		mapped := ex
		if alias, ok := e.ctx.ExceptionNameAlias[ex]; ok {
			mapped = alias
		}
		if _, emitted := e.ctx.EmittedExceptionNames[mapped]; emitted {
			valid = append(valid, mapped)
			continue
		}
		if st, ok := e.ctx.Structs[mapped]; ok && strings.HasSuffix(st.Name, "Exception") {
			valid = append(valid, mapped)
		}
	}
	if len(valid) == 0 {
		return ""
	}
	parts := make([]string, len(valid))
	for i, ex := range valid {
		parts[i] = fmt.Sprintf("%d: %s ex%d", i+1, ex, i+1)
	}
	return " throws (" + strings.Join(parts, ", ") + ")"
}

// trimTrailingComma drops the comma from the last emitted line, closing
// a definition block cleanly.
func trimTrailingComma(lines []string) []string {
	if n := len(lines); n > 0 && strings.HasSuffix(lines[n-1], ",") {
		lines[n-1] = strings.TrimSuffix(lines[n-1], ",")
	}
	return lines
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedEnumKeys(m map[string]*idl.Enum) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedStructKeys(m map[string]*idl.Struct) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedServiceKeys(m map[string]*idl.Service) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
