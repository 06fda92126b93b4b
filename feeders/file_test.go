package feeders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileFeeders(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "yaml",
			file:    "config.yaml",
			content: "router:\n  base_url: /app\n",
		},
		{
			name:    "toml",
			file:    "config.toml",
			content: "[router]\nbase_url = \"/app\"\n",
		},
		{
			name:    "json",
			file:    "config.json",
			content: `{"router": {"base_url": "/app"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feeder, err := ForFile(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)

			values, err := feeder.Values()
			require.NoError(t, err)

			router, ok := values["router"].(map[string]any)
			require.True(t, ok, "router section should decode as a map, got %T", values["router"])
			assert.Equal(t, "/app", router["base_url"])
		})
	}
}

func TestForFileRejectsUnknownExtension(t *testing.T) {
	_, err := ForFile("config.ini")
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestFileFeederErrors(t *testing.T) {
	_, err := NewYamlFeeder(filepath.Join(t.TempDir(), "missing.yaml")).Values()
	assert.ErrorIs(t, err, ErrFileRead)

	_, err = NewJSONFeeder(writeFile(t, "broken.json", "{")).Values()
	assert.ErrorIs(t, err, ErrFileDecode)
}
