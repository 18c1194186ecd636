/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: normalize.go
Description: Type normalizer for raw declared-type expressions recovered from
decompiled sources. Reduces package-qualified and generic Java types to canonical
Thrift type names, with a companion mapper from Java scalar types to Thrift
primitives.
*/

package idl

import (
	"fmt"
	"regexp"
	"strings"
)

// NormalizeMode selects how container generics are reduced.
//
// ModeFlattened reduces List<T>/Set<T> to T and Map<K,V> to V, which is
// what container-field resolution wants when it walks one level at a
// time. ModeStructural composes the full list<T>/set<T>/map<K,V> form
// for call sites that emit the type directly.
type NormalizeMode int

const (
	ModeFlattened NormalizeMode = iota
	ModeStructural
)

var leadingWordRe = regexp.MustCompile(`^[A-Za-z0-9_]+`)

// NormalizeTypeName reduces a raw declared-type expression to a canonical
// name. Package qualifiers are stripped to the last dot segment, inner
// class separators removed, and generic containers reduced according to
// mode. Returns "" when nothing usable remains.
func NormalizeTypeName(t string, mode NormalizeMode) string {
	if t == "" {
		return ""
	}
	if idx := strings.LastIndex(t, "."); idx >= 0 {
		t = t[idx+1:]
	}
	t = strings.ReplaceAll(t, "$", "")
	t = strings.TrimSpace(t)

	if lt := strings.Index(t, "<"); lt >= 0 {
		if gt := strings.LastIndex(t, ">"); gt > lt {
			base := strings.ToLower(t[:lt])
			parts := splitGenericArgs(t[lt+1 : gt])
			switch {
			case strings.HasSuffix(base, "list"):
				return reduceElement(parts, mode, "list")
			case strings.HasSuffix(base, "set"):
				return reduceElement(parts, mode, "set")
			case strings.HasSuffix(base, "map") && len(parts) == 2:
				k := NormalizeTypeName(parts[0], mode)
				v := NormalizeTypeName(parts[1], mode)
				if mode == ModeStructural {
					return fmt.Sprintf("map<%s,%s>", k, v)
				}
				return v
			}
		}
	}
	return leadingWordRe.FindString(t)
}

// reduceElement handles the list/set cases: the single inner argument's
// normalized name, composed as container<elem> in structural mode.
func reduceElement(parts []string, mode NormalizeMode, container string) string {
	elem := ""
	if len(parts) > 0 {
		elem = NormalizeTypeName(parts[0], mode)
	}
	if elem == "" {
		return ""
	}
	if mode == ModeStructural {
		return fmt.Sprintf("%s<%s>", container, elem)
	}
	return elem
}

// splitGenericArgs splits generic arguments on top-level commas only,
// tracking angle-bracket depth so nested generics stay intact.
func splitGenericArgs(inner string) []string {
	var parts []string
	var buf strings.Builder
	depth := 0
	for _, ch := range inner {
		switch ch {
		case '<':
			depth++
		case '>':
			depth--
		}
		if ch == ',' && depth == 0 {
			parts = append(parts, strings.TrimSpace(buf.String()))
			buf.Reset()
			continue
		}
		buf.WriteRune(ch)
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		parts = append(parts, s)
	}
	return parts
}

// primitiveMap maps Java scalar and boxed types to Thrift primitives.
// Object, byte arrays and ByteBuffer all degrade to the opaque binary
// type since recovery cannot say anything more specific about them.
var primitiveMap = map[string]string{
	"long": "i64", "int": "i32", "short": "i16", "double": "double",
	"float": "double", "boolean": "bool", "byte": "i8", "string": "string",
	"void": "void", "binary": "binary",
	"Long": "i64", "Integer": "i32", "Short": "i16", "Double": "double",
	"Float": "double", "Boolean": "bool", "Byte": "i8", "String": "string",
	"Character": "i16",
	"Object":    "binary", "byte[]": "binary", "ByteBuffer": "binary",
}

// PrimitiveToThrift maps a raw type name to its Thrift primitive. Names
// that are already syntactically valid identifiers pass through
// unchanged; variadic markers and anything outside the identifier
// grammar degrade to binary.
func PrimitiveToThrift(t string) string {
	if t == "" {
		return t
	}
	if strings.Contains(t, "...") {
		return "binary"
	}
	if strings.Contains(t, ".") && !strings.HasPrefix(t, "java.") {
		t = t[strings.LastIndex(t, ".")+1:]
	}
	if mapped, ok := primitiveMap[t]; ok {
		t = mapped
	}
	if !identRe.MatchString(t) {
		return "binary"
	}
	return t
}
