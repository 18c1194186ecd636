/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: enums.go
Description: Enumeration extractor. Detects enum declarations in decompiled sources,
collects value/number pairs (preferring the trailing numeric code when a label
argument precedes it), and deduplicates values by name and by numeric literal.
*/

package recovery

import (
	"regexp"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/thrift-miner/pkg/idl"
	"github.com/kleascm/thrift-miner/pkg/interfaces"
)

var (
	enumDeclRe = regexp.MustCompile(`public\s+enum\s+(\w+)`)
	// NAME(3), NAME("label", 3) and NAME(3, 7) fragments. The later
	// numeral wins when two are present.
	enumValueRe = regexp.MustCompile(`(\w+)\s*\((?:\s*"[^"]*"\s*,)?\s*(\d+)\s*(?:,\s*(\d+))?\s*\)`)
)

// EnumExtractor is the first recovery stage. It populates the enum table
// and seeds the global name registry.
type EnumExtractor struct {
	ctx *Context
	log *logrus.Logger
}

// NewEnumExtractor creates the enum stage bound to a context.
func NewEnumExtractor(ctx *Context, log *logrus.Logger) *EnumExtractor {
	return &EnumExtractor{ctx: ctx, log: log}
}

// Name identifies the stage.
func (e *EnumExtractor) Name() string {
	return "enums"
}

// Extract scans every file for an enum declaration and, when found,
// harvests value fragments from the whole file.
func (e *EnumExtractor) Extract(c interfaces.Corpus) error {
	e.log.Info("Parsing enums...")
	for _, f := range c.Files() {
		decl := enumDeclRe.FindStringSubmatch(f.Text)
		if decl == nil {
			continue
		}
		en := e.extractEnum(decl[1], f.Text)
		if en == nil {
			continue
		}
		e.ctx.Register(en.Name)
		e.ctx.Enums[en.Name] = en
	}
	e.log.WithFields(logrus.Fields{"enums": len(e.ctx.Enums)}).Info("Enum recovery complete")
	return nil
}

// extractEnum collects and deduplicates the value pairs for one enum.
// Returns nil when no values survive.
func (e *EnumExtractor) extractEnum(name, text string) *idl.Enum {
	en := &idl.Enum{Name: name}
	seen := make(map[string]struct{})
	for _, m := range enumValueRe.FindAllStringSubmatch(text, -1) {
		vname := m[1]
		literal := m[2]
		if m[3] != "" {
			literal = m[3]
		}
		if _, dup := seen[vname]; dup {
			continue
		}
		seen[vname] = struct{}{}
		// Literals stay textual so representations like 007 survive.
		en.Values = append(en.Values, idl.EnumValue{Name: vname, Value: literal})
	}
	en.Values = dropNumericAliases(en.Values)
	if len(en.Values) == 0 {
		return nil
	}
	return en
}

// dropNumericAliases keeps only the lexicographically smallest name for
// each numeric literal, preserving the original value order otherwise.
func dropNumericAliases(values []idl.EnumValue) []idl.EnumValue {
	byLiteral := make(map[string][]string)
	for _, v := range values {
		byLiteral[v.Value] = append(byLiteral[v.Value], v.Name)
	}
	skip := make(map[string]struct{})
	for _, names := range byLiteral {
		if len(names) < 2 {
			continue
		}
		sort.Strings(names)
		for _, alias := range names[1:] {
			skip[alias] = struct{}{}
		}
	}
	kept := values[:0]
	for _, v := range values {
		if _, drop := skip[v.Name]; drop {
			continue
		}
		kept = append(kept, v)
	}
	return kept
}
