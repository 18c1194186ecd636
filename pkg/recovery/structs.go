/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: structs.go
Description: Struct and exception extractor. Recovers record names (renderer-method
literals first, serialization-base declarations second, Response/Request file stems
last), extracts field id/wire-type/name triples from field constants, resolves field
and container element types from member declarations and read-path code, and
classifies exception-like records across renames.
*/

package recovery

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/thrift-miner/pkg/corpus"
	"github.com/kleascm/thrift-miner/pkg/idl"
	"github.com/kleascm/thrift-miner/pkg/interfaces"
)

// exceptionBaseMarker is the serialization exception base class an
// exception-like record extends in the decompiled sources.
const exceptionBaseMarker = "extends org.apache.thrift.i"

var (
	// Renderer-method literals revealing the original wrapper name.
	rendererReturnRe  = regexp.MustCompile(`return\s+"(\w+(?:Response|Request))\(`)
	rendererBuilderRe = regexp.MustCompile(`StringBuilder\("(\w+(?:Response|Request))\(`)

	// Record declarations implementing the serialization base type.
	structDeclRe      = regexp.MustCompile(`public\s+(?:final\s+)?class\s+(\w+)\s+(?:extends\s+[^ {]+\s+)?implements\s+org\.apache\.thrift\.[a-zA-Z]`)
	implementsAnyRe   = regexp.MustCompile(`public\s+class\s+(\w+)\s+implements\s+[^{]+`)
	fieldNamedConstRe = regexp.MustCompile(`public\s+static\s+final\s+ww1\.\s*c\s+(\w+)\s*=\s*new\s+ww1\.\s*c\s*\(\s*"(\w+)"\s*,\s*\(byte\)\s*(\d+)\s*,\s*(\d+)\s*\)`)
	fieldBareConstRe  = regexp.MustCompile(`(?s)public\s+static\s+final\s+(?:ww1\.)?c\s+(\w+)\s*=\s*new\s+(?:ww1\.)?c\([^,]+,\s*\(byte\)\s*(\d+),\s*(\d+)\)`)
	memberVarRe       = regexp.MustCompile(`public\s+([\w.<>\[\],\s]+?)\s+(\w+)\s*;`)

	// Read-path fragments revealing container element types.
	mapHeaderRe      = regexp.MustCompile(`gVar\.D\(new\s+e\(\(byte\)\s*(\d+),\s*\(byte\)\s*(\d+),`)
	listHeaderRe     = regexp.MustCompile(`gVar\.C\(new\s+ww1\.d\(\(byte\)\s*(\d+),`)
	setHeaderRe      = regexp.MustCompile(`gVar\.G\(new\s+j\(\(byte\)\s*(\d+),`)
	mapKeyCastRe     = regexp.MustCompile(`gVar\.[A-Z]\(\((\w+)\)\s*entry\.getKey\(\)\)`)
	mapValCastRe     = regexp.MustCompile(`\(\((\w+)\)\s*entry\.getValue\(\)\)`)
	mapValGetValueRe = regexp.MustCompile(`entry\.getValue\(\)\)\.getValue\(\)`)
	newInstanceRe    = regexp.MustCompile(`new\s+(\w+)\(\)`)
	enumConstRefRe   = regexp.MustCompile(`gVar\.x\(\s*(\w+\.\w+)\s*\)`)
)

// memberVar is one public non-static member declaration, kept in
// declaration order so container fallback association is deterministic.
type memberVar struct {
	name  string
	vtype string
}

// StructExtractor is the second recovery stage. It consults the enum
// table built by the first stage and populates the struct table, the
// exception classification sets, and the registry.
type StructExtractor struct {
	ctx *Context
	log *logrus.Logger
}

// NewStructExtractor creates the struct stage bound to a context.
func NewStructExtractor(ctx *Context, log *logrus.Logger) *StructExtractor {
	return &StructExtractor{ctx: ctx, log: log}
}

// Name identifies the stage.
func (e *StructExtractor) Name() string {
	return "structs"
}

// Extract runs the two-pass recovery: renderer-literal name resolution
// first, then field extraction and classification.
func (e *StructExtractor) Extract(c interfaces.Corpus) error {
	e.log.Info("Parsing structs...")

	rendered := renderedNamesByPath(c)
	e.log.WithFields(logrus.Fields{"mappings": len(rendered)}).
		Info("Found obfuscated Response/Request mappings")

	for _, f := range c.Files() {
		e.extractRecord(f, rendered)
	}
	e.log.WithFields(logrus.Fields{"structs": len(e.ctx.Structs)}).Info("Struct recovery complete")
	return nil
}

// renderedNamesByPath scans every file for a renderer-method literal and
// maps file path to the recovered semantic name. Built fully before any
// consumption, never resolved inline.
func renderedNamesByPath(c interfaces.Corpus) map[string]string {
	rendered := make(map[string]string)
	for _, f := range c.Files() {
		if name, ok := rendererName(f.Text); ok {
			rendered[f.Path] = name
		}
	}
	return rendered
}

// rendererName matches the two renderer idioms in order: a direct
// string return, then a StringBuilder prefix.
func rendererName(text string) (string, bool) {
	if m := rendererReturnRe.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := rendererBuilderRe.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// extractRecord recovers one record from one file, if the file resolves
// to a record name at all.
func (e *StructExtractor) extractRecord(f interfaces.SourceFile, rendered map[string]string) {
	s := f.Text
	declMatch := structDeclRe.FindStringSubmatch(s)

	className := ""
	switch {
	case rendered[f.Path] != "":
		className = rendered[f.Path]
	case declMatch != nil:
		className = declMatch[1]
	case strings.Contains(corpus.Stem(f.Path), "Response") || strings.Contains(corpus.Stem(f.Path), "Request"):
		if m := implementsAnyRe.FindStringSubmatch(s); m != nil {
			className = m[1]
		}
	}
	if className == "" {
		return
	}

	if strings.Contains(s, exceptionBaseMarker) {
		e.ctx.ExceptionStructs[className] = struct{}{}
	}

	st := &idl.Struct{Name: className}
	constants := findFieldConstants(s)
	members := collectMemberVars(s)
	resolver := newFieldResolver(e.ctx, s, members)
	for _, fc := range constants {
		st.Fields = append(st.Fields, resolver.resolve(fc))
	}

	keep := declMatch != nil || len(st.Fields) > 0 ||
		strings.HasSuffix(className, "Response") || strings.HasSuffix(className, "Request")
	if !keep {
		return
	}

	originalName := className
	finalName := e.ctx.UniqueStructName(className)
	st.Name = finalName
	e.ctx.Register(finalName)
	e.ctx.Structs[finalName] = st

	isException := e.ctx.IsException(originalName) ||
		strings.HasSuffix(originalName, "Exception") || strings.HasSuffix(finalName, "Exception")
	if isException {
		e.ctx.ExceptionNameAlias[originalName] = finalName
		e.ctx.EmittedExceptionNames[finalName] = struct{}{}
		e.ctx.ExceptionStructs[finalName] = struct{}{}
	}
}

// fieldConstant is one extracted id/name/wire-code triple.
type fieldConstant struct {
	id    int
	name  string
	tcode int
}

// findFieldConstants locates field-constant fragments. The named form
// is preferred; multi-line declarations are joined and retried before
// falling back to the bare constant form whose variable name stands in
// for the field name.
func findFieldConstants(s string) []fieldConstant {
	var out []fieldConstant
	for _, m := range fieldNamedConstRe.FindAllStringSubmatch(s, -1) {
		out = append(out, fieldConstant{id: atoi(m[4]), name: m[2], tcode: atoi(m[3])})
	}
	if len(out) == 0 {
		joined := joinConstantDeclarations(s)
		for _, m := range fieldNamedConstRe.FindAllStringSubmatch(joined, -1) {
			out = append(out, fieldConstant{id: atoi(m[4]), name: m[2], tcode: atoi(m[3])})
		}
	}
	if len(out) == 0 {
		for _, m := range fieldBareConstRe.FindAllStringSubmatch(s, -1) {
			out = append(out, fieldConstant{id: atoi(m[3]), name: m[1], tcode: atoi(m[2])})
		}
	}
	return out
}

// joinConstantDeclarations rejoins field-constant declarations that the
// decompiler split across lines, accumulating until the closing ");".
func joinConstantDeclarations(s string) string {
	lines := strings.Split(s, "\n")
	var out strings.Builder
	for i := 0; i < len(lines); {
		line := lines[i]
		if !strings.Contains(line, "public static final ww1.") {
			out.WriteString(line)
			out.WriteString("\n")
			i++
			continue
		}
		declaration := line
		j := i + 1
		for j < len(lines) && !strings.Contains(declaration, ");") {
			declaration += " " + strings.TrimSpace(lines[j])
			j++
		}
		out.WriteString(declaration)
		out.WriteString("\n")
		i = j
	}
	return out.String()
}

// collectMemberVars gathers public non-static member declarations in
// declaration order.
func collectMemberVars(s string) []memberVar {
	var out []memberVar
	for _, m := range memberVarRe.FindAllStringSubmatch(s, -1) {
		vtype := strings.TrimSpace(m[1])
		if strings.HasPrefix(vtype, "static") {
			continue
		}
		out = append(out, memberVar{name: m[2], vtype: vtype})
	}
	return out
}

// fieldResolver resolves field types for one record, tracking the
// ordered container-member cursor shared across fields.
type fieldResolver struct {
	ctx           *Context
	text          string
	members       []memberVar
	containerVars []memberVar
	cvIdx         int
}

func newFieldResolver(ctx *Context, text string, members []memberVar) *fieldResolver {
	r := &fieldResolver{ctx: ctx, text: text, members: members}
	for _, mv := range members {
		if strings.Contains(mv.vtype, "<") && strings.Contains(mv.vtype, ">") {
			r.containerVars = append(r.containerVars, mv)
		}
	}
	return r
}

// resolve turns one field constant into a typed field.
func (r *fieldResolver) resolve(fc fieldConstant) *idl.Field {
	kind := idl.KindForCode(fc.tcode)
	field := &idl.Field{ID: fc.id, Name: fc.name, Kind: kind}

	mv, found := r.associateMember(fc.name, kind)

	switch {
	case kind.IsContainer():
		r.resolveContainer(field, mv, found)
	case kind == idl.KindI32:
		r.resolveScalar(field, mv, found)
	case kind == idl.KindStruct:
		if found {
			inner := mv.vtype
			if lt := strings.Index(inner, "<"); lt >= 0 {
				if gt := strings.LastIndex(inner, ">"); gt > lt {
					inner = inner[lt+1 : gt]
				}
			}
			field.TypeName = idl.NormalizeTypeName(inner, idl.ModeFlattened)
		}
	}

	if kind.IsContainer() && field.ValType != "" && field.TypeName == "" {
		field.TypeName = field.ValType
	}

	// Field ids must be positive; residual duplicates are handled at
	// emission.
	if field.ID <= 0 {
		field.ID = 1
	}
	return field
}

// associateMember picks the member variable whose name is a
// case-insensitive substring match (either direction) of the field
// name; container fields fall back to consuming container-typed members
// in declaration order.
func (r *fieldResolver) associateMember(fname string, kind idl.WireKind) (memberVar, bool) {
	lower := strings.ToLower(fname)
	for _, mv := range r.members {
		mvLower := strings.ToLower(mv.name)
		if strings.Contains(mvLower, lower) || strings.Contains(lower, mvLower) {
			return mv, true
		}
	}
	if kind.IsContainer() && r.cvIdx < len(r.containerVars) {
		mv := r.containerVars[r.cvIdx]
		r.cvIdx++
		return mv, true
	}
	return memberVar{}, false
}

// resolveContainer layers read-block evidence over member generics to
// recover element/key/value types.
func (r *fieldResolver) resolveContainer(field *idl.Field, mv memberVar, found bool) {
	if block, ok := r.readBlock(field.Name); ok {
		switch field.Kind {
		case idl.KindMap:
			r.mapTypesFromReadBlock(field, block)
		case idl.KindList:
			r.elementFromReadBlock(field, block, listHeaderRe)
		case idl.KindSet:
			r.elementFromReadBlock(field, block, setHeaderRe)
		}
	}
	if !found {
		return
	}
	inner := genericParts(mv.vtype)
	switch field.Kind {
	case idl.KindMap:
		if len(inner) == 2 {
			if k := idl.NormalizeTypeName(inner[0], idl.ModeFlattened); k != "" {
				field.KeyType = k
			}
			valInner := genericParts(inner[1])
			last := valInner[len(valInner)-1]
			if v := idl.NormalizeTypeName(last, idl.ModeFlattened); v != "" {
				field.ValType = v
			}
		}
	case idl.KindList, idl.KindSet:
		elem := inner[0]
		if v := idl.NormalizeTypeName(elem, idl.ModeFlattened); v != "" {
			field.ValType = v
		}
	}
}

// readBlock returns the text between the field's assignment and the
// next closing brace, the best-effort window where read-path container
// construction lives.
func (r *fieldResolver) readBlock(fname string) (string, bool) {
	re := regexp.MustCompile(`(?s)` + regexp.QuoteMeta(fname) + `\s*=[^\n]*?\{(.*?)\}`)
	m := re.FindStringSubmatch(r.text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// mapTypesFromReadBlock recovers map key/value types from an explicit
// map header and from key/value cast expressions.
func (r *fieldResolver) mapTypesFromReadBlock(field *idl.Field, block string) {
	if h := mapHeaderRe.FindStringSubmatch(block); h != nil {
		if k, ok := idl.LookupKind(atoi(h[1])); ok {
			field.KeyType = string(k)
		} else {
			field.KeyType = "string"
		}
		if v, ok := idl.LookupKind(atoi(h[2])); ok {
			field.ValType = string(v)
		} else {
			field.ValType = "i32"
		}
	}
	if kc := mapKeyCastRe.FindStringSubmatch(block); kc != nil {
		if k := idl.NormalizeTypeName(kc[1], idl.ModeFlattened); k != "" {
			field.KeyType = k
		}
	}
	if vc := mapValCastRe.FindStringSubmatch(block); vc != nil {
		v := idl.NormalizeTypeName(vc[1], idl.ModeFlattened)
		if v != "" && !mapValGetValueRe.MatchString(block) {
			field.ValType = v
		}
	}
}

// elementFromReadBlock recovers a list/set element type from the
// container header's wire code or an instantiation in the read loop.
func (r *fieldResolver) elementFromReadBlock(field *idl.Field, block string, headerRe *regexp.Regexp) {
	if h := headerRe.FindStringSubmatch(block); h != nil {
		if v, ok := idl.LookupKind(atoi(h[1])); ok {
			field.ValType = string(v)
		} else {
			field.ValType = "i32"
		}
	}
	if inst := newInstanceRe.FindStringSubmatch(block); inst != nil {
		if v := idl.NormalizeTypeName(inst[1], idl.ModeFlattened); v != "" {
			field.ValType = v
		}
	}
}

// resolveScalar probes an i32-coded field for the enum-lookup idioms
// that reveal it is really an enum reference, then falls back to the
// member variable's declared primitive.
func (r *fieldResolver) resolveScalar(field *idl.Field, mv memberVar, found bool) {
	valueOfRe := regexp.MustCompile(regexp.QuoteMeta(field.Name) + `\s*=\s*(\w+)\.valueOf\(gVar\.x\(\)\)`)
	if m := valueOfRe.FindStringSubmatch(r.text); m != nil {
		if r.ctx.HasEnum(m[1]) {
			field.TypeName = m[1]
		}
	} else if cm := enumConstRefRe.FindStringSubmatch(r.text); cm != nil {
		if dot := strings.Index(cm[1], "."); dot >= 0 {
			ename := cm[1][:dot]
			if r.ctx.HasEnum(ename) {
				field.TypeName = ename
			}
		}
	}
	if found && field.TypeName == "" {
		base := strings.TrimSpace(strings.SplitN(mv.vtype, "<", 2)[0])
		if pk, ok := primitiveFromMember(base); ok {
			field.Kind = pk
		}
	}
}

// genericParts extracts the inner generic arguments of a declared type:
// ArrayList<User> yields [User], HashMap<K, V> yields [K, V] (split on
// the first top-level comma only), and a non-generic type yields
// itself.
func genericParts(gstr string) []string {
	lt := strings.Index(gstr, "<")
	gt := strings.LastIndex(gstr, ">")
	if lt < 0 || gt <= lt {
		return []string{gstr}
	}
	inner := strings.TrimSpace(gstr[lt+1 : gt])
	depth := 0
	for i, ch := range inner {
		switch ch {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				return []string{
					strings.TrimSpace(inner[:i]),
					strings.TrimSpace(inner[i+1:]),
				}
			}
		}
	}
	return []string{inner}
}

// primitiveFromMember maps a member variable's declared base type to a
// field kind.
func primitiveFromMember(vt string) (idl.WireKind, bool) {
	switch vt {
	case "long":
		return idl.KindI64, true
	case "int", "Integer":
		return idl.KindI32, true
	case "short":
		return idl.KindI16, true
	case "double", "float":
		return idl.KindDouble, true
	case "boolean":
		return idl.KindBool, true
	case "byte":
		return idl.KindI8, true
	case "String":
		return idl.KindString, true
	}
	return "", false
}

// atoi parses a digits-only capture; the regexes guarantee the input.
func atoi(s string) int {
	n := 0
	for _, ch := range s {
		n = n*10 + int(ch-'0')
	}
	return n
}
