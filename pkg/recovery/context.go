/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: context.go
Description: Run-scoped recovery context for the Thrift Miner. Holds every table the
extractors build (enums, structs, services, classification sets, alias maps, and the
global name registry) with an explicit reset lifecycle so runs are repeatable.
*/

package recovery

import (
	"fmt"

	"github.com/kleascm/thrift-miner/pkg/idl"
)

// Context carries all recovery state for one run. Stages populate it
// monotonically in order (enums, structs, services); the emitter reads
// it without mutating. Reset must bracket each run.
type Context struct {
	Enums    map[string]*idl.Enum
	Structs  map[string]*idl.Struct
	Services map[string]*idl.Service

	// ExceptionStructs holds every name classified as exception-like,
	// under both pre-rename and final names.
	ExceptionStructs map[string]struct{}
	// EmittedExceptionNames holds the final emitted exception names.
	EmittedExceptionNames map[string]struct{}
	// ExceptionNameAlias maps a record's pre-rename simple name to its
	// final emitted name, so throws clauses survive renames.
	ExceptionNameAlias map[string]string

	// AliasMap maps anonymized record names to semantic wrapper names
	// (FooRequest/FooResponse), emitted as typedefs.
	AliasMap map[string]string
	// ResponseMap maps an anonymized class simple name to the name
	// recovered from its renderer-method literal.
	ResponseMap map[string]string

	// GlobalTypeNames tracks every emitted top-level name across
	// categories to keep the schema collision-free.
	GlobalTypeNames map[string]struct{}
}

// NewContext returns a freshly reset context.
func NewContext() *Context {
	c := &Context{}
	c.Reset()
	return c
}

// Reset clears every table. Safe to call between runs in one process.
func (c *Context) Reset() {
	c.Enums = make(map[string]*idl.Enum)
	c.Structs = make(map[string]*idl.Struct)
	c.Services = make(map[string]*idl.Service)
	c.ExceptionStructs = make(map[string]struct{})
	c.EmittedExceptionNames = make(map[string]struct{})
	c.ExceptionNameAlias = make(map[string]string)
	c.AliasMap = make(map[string]string)
	c.ResponseMap = make(map[string]string)
	c.GlobalTypeNames = make(map[string]struct{})
}

// IsRegistered reports whether name is already a known top-level name.
func (c *Context) IsRegistered(name string) bool {
	_, ok := c.GlobalTypeNames[name]
	return ok
}

// Register records name in the global registry.
func (c *Context) Register(name string) {
	c.GlobalTypeNames[name] = struct{}{}
}

// IsException reports whether name is classified as exception-like.
func (c *Context) IsException(name string) bool {
	_, ok := c.ExceptionStructs[name]
	return ok
}

// HasStruct reports whether name is a known record.
func (c *Context) HasStruct(name string) bool {
	_, ok := c.Structs[name]
	return ok
}

// HasEnum reports whether name is a known enumeration.
func (c *Context) HasEnum(name string) bool {
	_, ok := c.Enums[name]
	return ok
}

// UniqueStructName appends _2, _3, ... until the name collides with
// neither the global registry nor the struct table.
func (c *Context) UniqueStructName(name string) string {
	if !c.IsRegistered(name) && !c.HasStruct(name) {
		return name
	}
	for suffix := 2; ; suffix++ {
		candidate := fmt.Sprintf("%s_%d", name, suffix)
		if !c.IsRegistered(candidate) && !c.HasStruct(candidate) {
			return candidate
		}
	}
}

// UniqueServiceName appends _2, _3, ... until the name is free in the
// global registry.
func (c *Context) UniqueServiceName(name string) string {
	if !c.IsRegistered(name) {
		return name
	}
	for suffix := 2; ; suffix++ {
		candidate := fmt.Sprintf("%s_%d", name, suffix)
		if !c.IsRegistered(candidate) {
			return candidate
		}
	}
}

// MethodCount returns the total number of recovered methods.
func (c *Context) MethodCount() int {
	total := 0
	for _, svc := range c.Services {
		total += len(svc.Methods)
	}
	return total
}
