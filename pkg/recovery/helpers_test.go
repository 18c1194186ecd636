/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: helpers_test.go
Description: Shared helpers for the recovery stage tests. Builds in-memory source
corpora and quiet loggers so each test can describe its synthetic decompiled
sources inline.
*/

package recovery_test

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/thrift-miner/pkg/corpus"
)

// loadCorpus builds an in-memory corpus from file-name to source-text
// pairs rooted at /src.
func loadCorpus(t *testing.T, files map[string]string) *corpus.Corpus {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/src", 0755))
	for name, text := range files {
		require.NoError(t, afero.WriteFile(fs, "/src/"+name, []byte(text), 0644))
	}
	c := corpus.New(fs, "/src")
	require.NoError(t, c.Load())
	return c
}

// testLogger returns a logger that stays quiet during tests.
func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
