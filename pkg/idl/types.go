/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core data model for recovered Thrift definitions. Defines fields, enums,
structs, services, and methods along with the wire-type code table used to classify
field kinds extracted from decompiled sources.
*/

package idl

// WireKind identifies the on-the-wire kind of a recovered field.
type WireKind string

const (
	KindBool   WireKind = "bool"
	KindI8     WireKind = "i8"
	KindI16    WireKind = "i16"
	KindI32    WireKind = "i32"
	KindI64    WireKind = "i64"
	KindDouble WireKind = "double"
	KindString WireKind = "string"
	KindStruct WireKind = "struct"
	KindMap    WireKind = "map"
	KindSet    WireKind = "set"
	KindList   WireKind = "list"
	KindEnum   WireKind = "enum"
	KindBinary WireKind = "binary"
)

// wireTypeTable maps the small integer wire-type codes found in field
// constants to their Thrift kinds.
var wireTypeTable = map[int]WireKind{
	1:  KindBool,
	2:  KindBool,
	3:  KindI8,
	4:  KindDouble,
	6:  KindI16,
	8:  KindI32,
	10: KindI64,
	11: KindString,
	12: KindStruct,
	13: KindMap,
	14: KindSet,
	15: KindList,
	16: KindEnum,
}

// KindForCode resolves a wire-type code to its kind. Unknown codes fall
// back to i32, the safest primitive.
func KindForCode(code int) WireKind {
	if k, ok := wireTypeTable[code]; ok {
		return k
	}
	return KindI32
}

// LookupKind resolves a wire-type code, reporting whether the code is
// known. Callers with their own fallback defaults use this instead of
// KindForCode.
func LookupKind(code int) (WireKind, bool) {
	k, ok := wireTypeTable[code]
	return k, ok
}

// IsContainer reports whether the kind carries element types.
func (k WireKind) IsContainer() bool {
	return k == KindList || k == KindSet || k == KindMap
}

// Field is a single recovered struct field. TypeName, KeyType and ValType
// are only populated when recovery found evidence for them; empty strings
// mean the emitter falls back to a primitive.
type Field struct {
	ID       int
	Name     string
	Kind     WireKind
	TypeName string
	KeyType  string
	ValType  string
	Required bool
}

// EnumValue pairs a value name with its numeric literal. The literal is
// kept textually so representations like "007" survive emission.
type EnumValue struct {
	Name  string
	Value string
}

// Enum is a recovered enumeration.
type Enum struct {
	Name   string
	Values []EnumValue
}

// Struct is a recovered record. Whether it renders as a struct or an
// exception is decided by the recovery context's classification sets.
type Struct struct {
	Name   string
	Fields []*Field
}

// Method is a recovered service method. ArgType defaults to "binary" and
// RetType to "void" when no heuristic produced a better answer.
type Method struct {
	Name       string
	ArgType    string
	RetType    string
	Exceptions []string
}

// Service is a recovered RPC service.
type Service struct {
	Name    string
	Methods []*Method
}

// AddMethod records a method, merging with an existing entry of the same
// name. Merging is upgrade-only: a default argument type ("" or binary)
// is replaced by a concrete one, a default return type ("", void, binary)
// likewise, and an empty exception set is filled but never overwritten.
func (s *Service) AddMethod(name, argType, retType string, exceptions []string) {
	for _, m := range s.Methods {
		if m.Name != name {
			continue
		}
		if (m.ArgType == "" || m.ArgType == "binary") && argType != "" && argType != "binary" {
			m.ArgType = argType
		}
		if (m.RetType == "" || m.RetType == "void" || m.RetType == "binary") &&
			retType != "" && retType != "void" && retType != "binary" {
			m.RetType = retType
		}
		if len(m.Exceptions) == 0 && len(exceptions) > 0 {
			m.Exceptions = append(m.Exceptions, exceptions...)
		}
		return
	}
	s.Methods = append(s.Methods, &Method{
		Name:       name,
		ArgType:    argType,
		RetType:    retType,
		Exceptions: exceptions,
	})
}
