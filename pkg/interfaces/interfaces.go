/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interfaces.go
Description: Shared interfaces for the Thrift Miner. Defines the corpus abstraction
over decompiled sources and the extractor contract implemented by each recovery
stage, breaking import cycles and keeping stages independently testable.
*/

package interfaces

// SourceFile is a single decompiled source file yielded by the corpus.
// Text is empty when the file could not be decoded; extractors simply
// find no matches in it.
type SourceFile struct {
	Path string
	Text string
}

// Corpus yields decompiled source files from a root location. A corpus
// is loaded once per run and traversed to completion by each recovery
// stage in turn.
type Corpus interface {
	// Root returns the root location the corpus was loaded from.
	Root() string
	// Files returns every source file in deterministic traversal order.
	Files() []SourceFile
	// Len returns the number of files in the corpus.
	Len() int
}

// Extractor is one recovery stage. Stages run in a fixed order (enums,
// structs, services) and populate the shared recovery context they were
// constructed with; each stage is read-only with respect to the tables
// built by earlier stages except for registry insertion.
type Extractor interface {
	// Name identifies the stage in logs and reports.
	Name() string
	// Extract scans the corpus and populates the stage's tables.
	Extract(corpus Corpus) error
}
