/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sanitize.go
Description: Identifier sanitizer for emitted Thrift names. Escapes reserved words,
digit-leading names, and invalid characters so every emitted identifier is valid
regardless of what the decompiler produced.
*/

package idl

import (
	"regexp"
	"strings"
)

// reservedWords is the Thrift reserved-word set. Names matching one of
// these (case-insensitively) get a trailing underscore.
var reservedWords = map[string]struct{}{
	"binary": {}, "bool": {}, "byte": {}, "const": {}, "double": {}, "enum": {},
	"exception": {}, "extends": {}, "false": {}, "i16": {}, "i32": {}, "i64": {},
	"i8": {}, "include": {}, "list": {}, "map": {}, "namespace": {}, "oneway": {},
	"optional": {}, "required": {}, "service": {}, "set": {}, "string": {},
	"struct": {}, "throws": {}, "true": {}, "typedef": {}, "union": {}, "void": {},
	"slist": {}, "senum": {}, "cpp_include": {}, "cpp_type": {}, "java_package": {},
	"cocoa_prefix": {}, "csharp_namespace": {}, "delphi_namespace": {},
	"php_namespace": {}, "py_module": {}, "perl_package": {}, "ruby_namespace": {},
	"smalltalk_category": {}, "smalltalk_prefix": {}, "xsd_all": {},
	"xsd_optional": {}, "xsd_nillable": {}, "xsd_namespace": {}, "xsd_attrs": {},
	"async": {},
}

var (
	identRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	invalidRe = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// EscapeReserved turns a raw recovered name into a valid Thrift
// identifier. Empty names become "unknown", digit-leading names get an
// "n_" prefix, reserved words get a trailing underscore, and any other
// invalid character is replaced with an underscore. Deterministic and
// idempotent on already-valid identifiers.
func EscapeReserved(name string) string {
	if name == "" {
		return "unknown"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "n_" + name
	}
	if _, ok := reservedWords[strings.ToLower(name)]; ok {
		return name + "_"
	}
	if !identRe.MatchString(name) {
		name = invalidRe.ReplaceAllString(name, "_")
		if name[0] >= '0' && name[0] <= '9' {
			name = "n_" + name
		}
	}
	return name
}

// IsValidIdentifier reports whether name already satisfies the Thrift
// identifier grammar.
func IsValidIdentifier(name string) bool {
	return identRe.MatchString(name)
}
