package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/deal-discovery/internal/domain"
	"github.com/couchcryptid/deal-discovery/internal/geotag"
	"github.com/couchcryptid/deal-discovery/internal/geotag/exiftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fallback = domain.Coordinate{Latitude: 37.89197, Longitude: -76.44494}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRun_TextOutput(t *testing.T) {
	tagged := writeFile(t, "tagged.jpg", exiftest.GPS(40.7128, -74.006))
	plain := writeFile(t, "plain.jpg", []byte("not an image"))

	var out bytes.Buffer
	require.NoError(t, run([]string{tagged, plain}, geotag.NewExtractor(fallback), &out))

	assert.Equal(t,
		tagged+"\t40.7128, -74.006\tgeotag\n"+
			plain+"\t37.89197, -76.44494\tfallback\n",
		out.String())
}

func TestRun_HintAndJSON(t *testing.T) {
	plain := writeFile(t, "plain.jpg", []byte("not an image"))

	var out bytes.Buffer
	require.NoError(t, run([]string{"-json", "-lat", "30.2672", "-lon", "-97.7431", plain}, geotag.NewExtractor(fallback), &out))

	var got located
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, located{File: plain, Latitude: 30.2672, Longitude: -97.7431, Source: domain.LocationHint}, got)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no files", nil},
		{"half a hint", []string{"-lat", "1", "x.jpg"}},
		{"missing file", []string{filepath.Join(t.TempDir(), "missing.jpg")}},
		{"unknown flag", []string{"-radius", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, run(tt.args, geotag.NewExtractor(fallback), &out))
		})
	}
}
