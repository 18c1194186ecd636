/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: services.go
Description: Service extractor. Discovers RPC services and their methods through five
overlapping recognizers (metadata literals, args/result wrapper classes, direct
client signatures, a generic signature sweep, and bare tag literals), merges the
evidence upgrade-only, and resolves argument/return/exception types against the
struct table built by the previous stage.
*/

package recovery

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/thrift-miner/pkg/corpus"
	"github.com/kleascm/thrift-miner/pkg/idl"
	"github.com/kleascm/thrift-miner/pkg/interfaces"
)

var (
	metaServiceClientRe = regexp.MustCompile(`"([A-Za-z0-9_.]*ServiceClient)"`)
	metaMethodRe        = regexp.MustCompile(`m\s*=\s*"([A-Za-z0-9_]+)"`)
	wrapperToStringRe   = regexp.MustCompile(`new\s+StringBuilder\s*\("(\w+)_(args|result)\(`)
	argsClassRe         = regexp.MustCompile(`class\s+(\w+)_args\b`)
	resultClassRe       = regexp.MustCompile(`class\s+(\w+)_result\b`)
	publicFieldRe       = regexp.MustCompile(`public\s+([\w.]+(?:<[^>]+>)?)\s+(\w+);`)
	nestedClientRe      = regexp.MustCompile(`class\s+(\w+)\$Client\b`)
	serviceClientRe     = regexp.MustCompile(`class\s+(\w+Service)Client\b`)
	bareTagRe           = regexp.MustCompile(`\bb\("([A-Za-z0-9_]+)"\)`)
	// Direct client method with a b("tag") call in its body.
	clientMethodRe = regexp.MustCompile(`public\s+final\s+([A-Za-z0-9_.<>\[\]]+)\s+(\w+)\(\s*([A-Za-z0-9_.<>\[\]]+)?(?:\s+\w+)?\s*\)(?:\s*throws\s+[A-Za-z0-9_,\s]+)?\s*\{[\s\S]*?b\("([A-Za-z0-9_]+)"`)
	// Broader signature sweep independent of the tag call.
	signatureSweepRe = regexp.MustCompile(`public\s+final\s+([A-Za-z0-9_.<>\[\]]+)\s+(\w+)\s*\(([^)]*)\)`)
	// Result-window field declarations, with and without a preceding
	// rename comment.
	commentFieldRe = regexp.MustCompile(`/\*[^*]*\*/\s*public\s+([A-Za-z0-9_.]+(?:<[^>]+>)?)\s+([A-Za-z0-9_]+);`)
	lineFieldRe    = regexp.MustCompile(`(?m)^\s*public\s+([A-Za-z0-9_.]+(?:<[^>]+>)?)\s+([A-Za-z0-9_]+);`)
	anyFieldRe     = regexp.MustCompile(`public\s+([A-Za-z0-9_.]+(?:<[^>]+>)?)\s+([A-Za-z0-9_]+);`)

	serviceTypeRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.<>\[\]]*$`)
)

// retEx pairs the recovered return and exception type for a method tag.
type retEx struct {
	ret string
	ex  string
}

// ServiceExtractor is the final recovery stage.
type ServiceExtractor struct {
	ctx *Context
	log *logrus.Logger

	classIndex     map[string]interfaces.SourceFile
	argsWrapper    map[string]string
	resultWrapper  map[string]string
	serviceMethods map[string]map[string]struct{}
}

// NewServiceExtractor creates the service stage bound to a context.
func NewServiceExtractor(ctx *Context, log *logrus.Logger) *ServiceExtractor {
	return &ServiceExtractor{ctx: ctx, log: log}
}

// Name identifies the stage.
func (e *ServiceExtractor) Name() string {
	return "services"
}

// Extract runs the full multi-pass service recovery.
func (e *ServiceExtractor) Extract(c interfaces.Corpus) error {
	e.log.Info("Building class index...")
	e.buildClassIndex(c)

	e.buildResponseMap(c)
	e.log.WithFields(logrus.Fields{"mappings": len(e.ctx.ResponseMap)}).
		Info("Found obfuscated Response mappings")

	e.log.WithFields(logrus.Fields{"files": len(e.classIndex)}).
		Info("Scanning files for wrapper patterns...")
	e.discoverWrappers(c)
	e.log.WithFields(logrus.Fields{
		"args_wrappers":   len(e.argsWrapper),
		"result_wrappers": len(e.resultWrapper),
	}).Info("Wrapper discovery complete")

	e.log.Info("Parsing services...")
	e.collectMetadataMethods(c)

	for _, f := range c.Files() {
		e.extractService(f)
	}
	e.materializeMetadataServices()

	e.log.WithFields(logrus.Fields{
		"services": len(e.ctx.Services),
		"methods":  e.ctx.MethodCount(),
	}).Info("Service recovery complete")
	return nil
}

// buildClassIndex maps each class simple name to the first file carrying
// it, for wrapper lookups by stem.
func (e *ServiceExtractor) buildClassIndex(c interfaces.Corpus) {
	e.classIndex = make(map[string]interfaces.SourceFile)
	for _, f := range c.Files() {
		stem := corpus.Stem(f.Path)
		if _, ok := e.classIndex[stem]; !ok {
			e.classIndex[stem] = f
		}
	}
}

// buildResponseMap maps anonymized class simple names to the names their
// renderer-method literals reveal.
func (e *ServiceExtractor) buildResponseMap(c interfaces.Corpus) {
	for _, f := range c.Files() {
		if name, ok := rendererName(f.Text); ok {
			e.ctx.ResponseMap[corpus.Stem(f.Path)] = name
		}
	}
}

// discoverWrappers finds <method>_args / <method>_result wrapper classes
// through their rendering literals and records the typedef aliases they
// imply.
func (e *ServiceExtractor) discoverWrappers(c interfaces.Corpus) {
	e.argsWrapper = make(map[string]string)
	e.resultWrapper = make(map[string]string)
	for _, f := range c.Files() {
		if f.Text == "" {
			continue
		}
		stem := corpus.Stem(f.Path)
		for _, m := range wrapperToStringRe.FindAllStringSubmatch(f.Text, -1) {
			mname, kind := m[1], m[2]
			switch kind {
			case "args":
				if _, seen := e.argsWrapper[mname]; seen {
					continue
				}
				e.argsWrapper[mname] = stem
				if e.ctx.HasStruct(stem) {
					e.ctx.AliasMap[stem] = camelCase(mname) + "Request"
				}
			case "result":
				if _, seen := e.resultWrapper[mname]; seen {
					continue
				}
				e.resultWrapper[mname] = stem
				e.recordResultAlias(mname, stem)
			}
		}
	}
}

// recordResultAlias aliases the success field's type of a result wrapper
// to the method's semantic Response name.
func (e *ServiceExtractor) recordResultAlias(mname, stem string) {
	st, ok := e.ctx.Structs[stem]
	if !ok {
		return
	}
	for _, field := range st.Fields {
		if field.Name != "success" && field.Name != "result" && field.Name != "f0" {
			continue
		}
		if field.TypeName != "" && e.ctx.HasStruct(field.TypeName) {
			e.ctx.AliasMap[field.TypeName] = camelCase(mname) + "Response"
		}
		return
	}
}

// collectMetadataMethods gathers service-client metadata literals and
// their attached method-name literals, authoritative evidence for method
// existence.
func (e *ServiceExtractor) collectMetadataMethods(c interfaces.Corpus) {
	e.serviceMethods = make(map[string]map[string]struct{})
	for _, f := range c.Files() {
		if !strings.Contains(f.Text, "ServiceClient") {
			continue
		}
		m := metaServiceClientRe.FindStringSubmatch(f.Text)
		if m == nil {
			continue
		}
		svcName := serviceNameFromMeta(m[1])
		methods := metaMethodRe.FindAllStringSubmatch(f.Text, -1)
		if len(methods) == 0 {
			continue
		}
		if e.serviceMethods[svcName] == nil {
			e.serviceMethods[svcName] = make(map[string]struct{})
		}
		for _, mm := range methods {
			e.serviceMethods[svcName][mm[1]] = struct{}{}
		}
	}
}

// serviceNameFromMeta strips the package and the Client suffix from a
// fully-qualified ServiceClient literal.
func serviceNameFromMeta(fq string) string {
	base := fq
	if idx := strings.LastIndex(fq, "."); idx >= 0 {
		base = fq[idx+1:]
	}
	if strings.HasSuffix(base, "ServiceClient") {
		return strings.TrimSuffix(base, "Client")
	}
	return base
}

// looksLikeServiceFile gates the per-file pass on the markers any of the
// recognizers need.
func looksLikeServiceFile(s string) bool {
	if !strings.Contains(s, "_args") && !strings.Contains(s, "_result") &&
		!strings.Contains(s, `b("`) && !strings.Contains(s, "ServiceClient") &&
		!strings.Contains(s, "$Client") {
		return false
	}
	if !strings.Contains(s, "org.apache.thrift") && !strings.Contains(s, "ServiceClient") &&
		!strings.Contains(s, "callWithResult") && !strings.Contains(s, `b("`) &&
		!strings.Contains(s, "$Client") {
		return false
	}
	return true
}

// deriveServiceName resolves the service name for one file: metadata
// literal first, then the nested $Client declaration, then the
// FooServiceClient declaration, normalized toward a *Service name.
func deriveServiceName(f interfaces.SourceFile) string {
	svcName := corpus.Stem(f.Path)
	if m := metaServiceClientRe.FindStringSubmatch(f.Text); m != nil {
		svcName = serviceNameFromMeta(m[1])
	} else if m := nestedClientRe.FindStringSubmatch(f.Text); m != nil {
		svcName = m[1]
	} else if m := serviceClientRe.FindStringSubmatch(f.Text); m != nil {
		svcName = m[1]
	}

	if strings.HasSuffix(svcName, "ServiceClientImpl") {
		svcName = strings.TrimSuffix(svcName, "ClientImpl")
	} else if strings.HasSuffix(svcName, "ClientImpl") {
		base := strings.TrimSuffix(svcName, "ClientImpl")
		if strings.HasSuffix(base, "Service") {
			svcName = base
		} else {
			svcName = base + "Service"
		}
	}
	if idx := strings.Index(svcName, "$"); idx >= 0 {
		svcName = svcName[:idx]
	}
	return svcName
}

// extractService runs every recognizer over one file and merges the
// evidence into the per-service accumulator.
func (e *ServiceExtractor) extractService(f interfaces.SourceFile) {
	s := f.Text
	if !looksLikeServiceFile(s) {
		return
	}

	svcName := deriveServiceName(f)
	svc, existing := e.ctx.Services[svcName]
	if !existing {
		svc = &idl.Service{Name: svcName}
	}

	names := make(map[string]struct{})
	methodToArg := e.argTypesFromArgsClasses(s)
	methodToRetEx := e.retExFromResultClasses(s)
	for tag := range methodToArg {
		names[tag] = struct{}{}
	}
	for tag := range methodToRetEx {
		names[tag] = struct{}{}
	}
	for _, m := range metaMethodRe.FindAllStringSubmatch(s, -1) {
		names[m[1]] = struct{}{}
	}

	e.clientMethodSignatures(s, names, methodToArg, methodToRetEx)
	e.signatureSweep(s, names, methodToArg, methodToRetEx)
	for _, m := range bareTagRe.FindAllStringSubmatch(s, -1) {
		names[m[1]] = struct{}{}
	}
	for tag := range e.serviceMethods[svcName] {
		names[tag] = struct{}{}
	}
	if len(names) == 0 {
		return
	}

	for _, mname := range sortedKeys(names) {
		argType := methodToArg[mname]
		ret := methodToRetEx[mname]
		e.addResolvedMethod(svc, mname, argType, ret.ret, ret.ex, true)
	}

	if !existing {
		finalName := e.ctx.UniqueServiceName(svcName)
		svc.Name = finalName
		e.ctx.Register(finalName)
		e.ctx.Services[finalName] = svc
	}
}

// argTypesFromArgsClasses recovers argument types from <method>_args
// wrapper class windows: the first public field's normalized type.
func (e *ServiceExtractor) argTypesFromArgsClasses(s string) map[string]string {
	out := make(map[string]string)
	for _, m := range argsClassRe.FindAllStringSubmatchIndex(s, -1) {
		mname := s[m[2]:m[3]]
		window := s[m[1]:min(m[1]+2000, len(s))]
		if fm := publicFieldRe.FindStringSubmatch(window); fm != nil {
			if argType := idl.NormalizeTypeName(fm[1], idl.ModeStructural); argType != "" {
				out[mname] = argType
			}
		}
	}
	return out
}

// retExFromResultClasses recovers return and exception types from
// <method>_result wrapper class windows, layering a line scan, the
// field-declaration patterns, and a response-by-name fallback.
func (e *ServiceExtractor) retExFromResultClasses(s string) map[string]retEx {
	out := make(map[string]retEx)
	for _, m := range resultClassRe.FindAllStringSubmatchIndex(s, -1) {
		mname := s[m[2]:m[3]]
		window := s[m[0]:min(m[0]+20000, len(s))]

		retType, exType := e.scanResultWindowLines(window)
		if retType == "" || exType == "" {
			fields := commentFieldRe.FindAllStringSubmatch(window, -1)
			fields = append(fields, lineFieldRe.FindAllStringSubmatch(window, -1)...)
			retType, exType = e.scanResultFields(window, fields, retType, exType)
		}
		if retType == "" || strings.HasSuffix(retType, "Request") {
			if inferred := e.responseByName(mname); inferred != "" {
				retType = inferred
			}
		}
		if retType != "" || exType != "" {
			out[mname] = retEx{ret: retType, ex: exType}
		}
	}
	return out
}

// scanResultWindowLines inspects the leading lines of a result window
// for public non-static field declarations that name Response or
// Exception types; the last match wins.
func (e *ServiceExtractor) scanResultWindowLines(window string) (retType, exType string) {
	lines := strings.Split(window, "\n")
	if len(lines) > 100 {
		lines = lines[:100]
	}
	for _, line := range lines {
		if !strings.Contains(line, "public") || strings.Contains(line, "static") ||
			strings.Contains(line, "class") {
			continue
		}
		fm := anyFieldRe.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		ftype := fm[1]
		if idx := strings.LastIndex(ftype, "."); idx >= 0 {
			ftype = ftype[idx+1:]
		}
		nt := idl.NormalizeTypeName(ftype, idl.ModeStructural)
		if nt == "" {
			continue
		}
		if mapped, ok := e.ctx.ResponseMap[nt]; ok {
			retType = mapped
		} else if strings.HasSuffix(nt, "Response") {
			retType = nt
		} else if strings.HasSuffix(nt, "Exception") || e.ctx.IsException(nt) {
			exType = nt
		}
	}
	return retType, exType
}

// scanResultFields walks up to 20 captured field declarations, skipping
// fields preceded by a static marker, and fills whichever of the return
// and exception types is still missing.
func (e *ServiceExtractor) scanResultFields(window string, fields [][]string, retType, exType string) (string, string) {
	if len(fields) > 20 {
		fields = fields[:20]
	}
	for _, field := range fields {
		ftype := field[1]
		if idx := strings.Index(window, ftype); idx >= 0 {
			start := idx - 50
			if start < 0 {
				start = 0
			}
			if strings.Contains(window[start:idx], "static") {
				continue
			}
		}
		cleanType := ftype
		if idx := strings.LastIndex(cleanType, "."); idx >= 0 {
			cleanType = cleanType[idx+1:]
		}
		nt := idl.NormalizeTypeName(cleanType, idl.ModeStructural)
		if nt == "" {
			continue
		}
		if mapped, ok := e.ctx.ResponseMap[cleanType]; ok && retType == "" {
			retType = mapped
		} else if strings.HasSuffix(nt, "Response") && retType == "" {
			retType = nt
		} else if (strings.HasSuffix(nt, "Exception") || e.ctx.IsException(nt)) && exType == "" {
			exType = nt
		} else if retType == "" && !strings.HasSuffix(nt, "Request") && !strings.HasSuffix(nt, "Exception") {
			if mapped, ok := e.ctx.ResponseMap[cleanType]; ok {
				retType = mapped
			} else {
				retType = nt
			}
		}
	}
	return retType, exType
}

// clientMethodSignatures captures return type, parameter type, and the
// literal tag from direct client method declarations; its evidence
// overwrites the wrapper-window maps.
func (e *ServiceExtractor) clientMethodSignatures(s string, names map[string]struct{}, methodToArg map[string]string, methodToRetEx map[string]retEx) {
	for _, m := range clientMethodRe.FindAllStringSubmatch(s, -1) {
		retSig, methodName, argSig, tag := m[1], m[2], m[3], m[4]
		if tag == "" {
			tag = methodName
		}
		names[tag] = struct{}{}
		if argSig != "" {
			methodToArg[tag] = idl.PrimitiveToThrift(sanitizeSignatureType(argSig))
		}
		if retSig != "" {
			methodToRetEx[tag] = retEx{ret: idl.PrimitiveToThrift(sanitizeSignatureType(retSig))}
		}
	}
}

// signatureSweep is the broader fallback scan keyed by the declared
// method name itself; it overwrites earlier signature evidence.
func (e *ServiceExtractor) signatureSweep(s string, names map[string]struct{}, methodToArg map[string]string, methodToRetEx map[string]retEx) {
	for _, m := range signatureSweepRe.FindAllStringSubmatch(s, -1) {
		retSig, methodName, argsStr := m[1], m[2], m[3]
		names[methodName] = struct{}{}
		if first := strings.TrimSpace(strings.SplitN(argsStr, ",", 2)[0]); first != "" {
			tok := first
			if idx := strings.IndexByte(first, ' '); idx >= 0 {
				tok = first[:idx]
			}
			if strings.Contains(tok, "...") {
				tok = "binary"
			}
			methodToArg[methodName] = idl.PrimitiveToThrift(sanitizeSignatureType(tok))
		}
		if retSig != "" {
			methodToRetEx[methodName] = retEx{ret: idl.PrimitiveToThrift(sanitizeSignatureType(retSig))}
		}
	}
}

// sanitizeSignatureType normalizes a raw signature type and degrades
// variadic or malformed expressions to binary.
func sanitizeSignatureType(sig string) string {
	cleaned := idl.NormalizeTypeName(sig, idl.ModeStructural)
	if cleaned == "" {
		cleaned = sig
	}
	if strings.Contains(cleaned, "...") || !serviceTypeRe.MatchString(cleaned) {
		return "binary"
	}
	return cleaned
}

// addResolvedMethod applies the wrapper-file and response-by-name
// fallbacks, fills documented defaults, and merges into the service.
// wantArgsCheck requires the wrapper file to actually mention
// <method>_args before trusting its first field.
func (e *ServiceExtractor) addResolvedMethod(svc *idl.Service, mname, argType, retType, exType string, wantArgsCheck bool) {
	if mapped, ok := e.ctx.ResponseMap[retType]; ok {
		retType = mapped
	}
	if argType == "" {
		argType = e.argTypeFromWrapperFile(mname, wantArgsCheck)
	}
	if retType == "" {
		retType, exType = e.retExFromWrapperFile(mname, exType)
	}
	if mapped, ok := e.ctx.ResponseMap[retType]; ok {
		retType = mapped
	}
	if retType == "" || strings.HasSuffix(retType, "Request") {
		if inferred := e.responseByName(mname); inferred != "" {
			retType = inferred
		}
	}
	if argType == "" {
		argType = "binary"
	}
	if retType == "" {
		retType = "void"
	}
	var exceptions []string
	if exType != "" && (strings.HasSuffix(exType, "Exception") || e.ctx.IsException(exType)) {
		exceptions = []string{exType}
	}
	svc.AddMethod(mname, argType, retType, exceptions)
}

// argTypeFromWrapperFile reads the method's args-wrapper file and takes
// its first public field's normalized type.
func (e *ServiceExtractor) argTypeFromWrapperFile(mname string, wantArgsCheck bool) string {
	stem, ok := e.argsWrapper[mname]
	if !ok {
		return ""
	}
	f, ok := e.classIndex[stem]
	if !ok {
		return ""
	}
	if wantArgsCheck && !strings.Contains(f.Text, mname+"_args") {
		return ""
	}
	if fm := publicFieldRe.FindStringSubmatch(f.Text); fm != nil {
		return idl.NormalizeTypeName(fm[1], idl.ModeStructural)
	}
	return ""
}

// retExFromWrapperFile reads the method's result-wrapper file and
// splits its leading fields into a non-exception return type and an
// exception type.
func (e *ServiceExtractor) retExFromWrapperFile(mname, exType string) (string, string) {
	retType := ""
	stem, ok := e.resultWrapper[mname]
	if !ok {
		return retType, exType
	}
	f, ok := e.classIndex[stem]
	if !ok {
		return retType, exType
	}
	fields := publicFieldRe.FindAllStringSubmatch(f.Text, -1)
	if len(fields) > 5 {
		fields = fields[:5]
	}
	for _, field := range fields {
		nt := idl.NormalizeTypeName(field[1], idl.ModeStructural)
		if nt == "" {
			continue
		}
		if strings.HasSuffix(nt, "Exception") || e.ctx.IsException(nt) {
			if exType == "" {
				exType = nt
			}
		} else if retType == "" {
			if mapped, ok := e.ctx.ResponseMap[nt]; ok {
				retType = mapped
			} else {
				retType = nt
			}
		}
	}
	return retType, exType
}

// responseByName capitalizes the method name and appends Response; the
// inference only fires when that exact record was recovered.
func (e *ServiceExtractor) responseByName(mname string) string {
	if mname == "" {
		return ""
	}
	expected := strings.ToUpper(mname[:1]) + mname[1:] + "Response"
	if e.ctx.HasStruct(expected) {
		return expected
	}
	return ""
}

// materializeMetadataServices adds services known only from metadata
// literals, resolving their methods through the wrapper files.
func (e *ServiceExtractor) materializeMetadataServices() {
	for _, svcName := range sortedServiceNames(e.serviceMethods) {
		svc, existing := e.ctx.Services[svcName]
		if !existing {
			svc = &idl.Service{Name: svcName}
		}
		for _, mname := range sortedKeys(e.serviceMethods[svcName]) {
			if hasMethod(svc, mname) {
				continue
			}
			e.addResolvedMethod(svc, mname, "", "", "", false)
		}
		if !existing {
			finalName := e.ctx.UniqueServiceName(svcName)
			svc.Name = finalName
			e.ctx.Register(finalName)
			e.ctx.Services[finalName] = svc
		}
	}
}

func hasMethod(svc *idl.Service, name string) bool {
	for _, m := range svc.Methods {
		if m.Name == name {
			return true
		}
	}
	return false
}

// camelCase converts a snake_case method name to an upper-camel prefix
// for Request/Response alias names.
func camelCase(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedServiceNames(m map[string]map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
