/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metrics_writer_test.go
Description: Tests for the metrics archive writer. Verifies directory layout,
filename composition, and JSON round-trip of the archived result.
*/

package utils

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMetricsResult(t *testing.T) {
	fs := afero.NewMemMapFs()
	result := map[string]int{"methods": 42}

	path, err := WriteMetricsResult(fs, "/metrics", "recover", "1.0.0", result)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "/metrics/recover/"))
	assert.True(t, strings.HasSuffix(path, "_recover_v1.0.0.json"))

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 42, decoded["methods"])
}

func TestWriteMetricsResultUnmarshalable(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := WriteMetricsResult(fs, "/metrics", "recover", "1.0.0", make(chan int))
	assert.Error(t, err)
}
