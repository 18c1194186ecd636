/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: corpus.go
Description: Source corpus loader for the Thrift Miner. Walks a decompiled-source
root on any afero filesystem, decodes files failing soft (undecodable files yield
empty text instead of errors), and serves the snapshot to the recovery stages.
*/

package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/kleascm/thrift-miner/pkg/interfaces"
)

// Corpus loads every .java file under a root directory into memory so
// the recovery stages can traverse the same snapshot repeatedly in a
// deterministic order.
type Corpus struct {
	fs    afero.Fs
	root  string
	files []interfaces.SourceFile
}

// New creates a corpus over the given filesystem and root. Nothing is
// read until Load is called.
func New(fs afero.Fs, root string) *Corpus {
	return &Corpus{fs: fs, root: root}
}

// Load walks the root and reads every .java file. A file that cannot be
// read or is not valid UTF-8 is kept with empty text rather than
// surfacing an error; only a missing root is fatal.
func (c *Corpus) Load() error {
	exists, err := afero.DirExists(c.fs, c.root)
	if err != nil {
		return fmt.Errorf("failed to stat source root: %w", err)
	}
	if !exists {
		return fmt.Errorf("source root not found: %s", c.root)
	}

	c.files = nil
	return afero.Walk(c.fs, c.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || !strings.HasSuffix(path, ".java") {
			return nil
		}
		c.files = append(c.files, interfaces.SourceFile{
			Path: path,
			Text: c.readText(path),
		})
		return nil
	})
}

// readText reads and decodes one file, returning "" on any failure.
func (c *Corpus) readText(path string) string {
	data, err := afero.ReadFile(c.fs, path)
	if err != nil || !utf8.Valid(data) {
		return ""
	}
	return string(data)
}

// Root returns the corpus root location.
func (c *Corpus) Root() string {
	return c.root
}

// Files returns the loaded snapshot in traversal order.
func (c *Corpus) Files() []interfaces.SourceFile {
	return c.files
}

// Len returns the number of loaded files.
func (c *Corpus) Len() int {
	return len(c.files)
}

// Stem returns the class simple name for a source path: the file name
// without its extension. Obfuscated wrapper classes are looked up by
// stem during service recovery.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
