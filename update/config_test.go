package update

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "altsrc.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
source: apps.json
upstreams:
  - source: mirrored/other-source.json
    ids: [com.example.app]
  - github:
      owner: example
      repo: example-app
    ids: [com.example.app]
    asset_pattern: '.*\.ipa'
    prereleases: true
    prefer_date: true
overrides:
  com.example.app:
    tintColor: "6D00FF"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "apps.json", cfg.Source)
	require.Len(t, cfg.Upstreams, 2)
	assert.Equal(t, "mirrored/other-source.json", cfg.Upstreams[0].Source)
	require.NotNil(t, cfg.Upstreams[1].GitHub)
	assert.Equal(t, "example", cfg.Upstreams[1].GitHub.Owner)
	assert.True(t, cfg.Upstreams[1].Prereleases)
	assert.True(t, cfg.Upstreams[1].PreferDate)
	assert.Equal(t, "6D00FF", cfg.Overrides["com.example.app"]["tintColor"])
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "Missing source",
			content: "upstreams: []\n",
			want:    "source path is required",
		},
		{
			name: "Upstream with both kinds",
			content: `
source: apps.json
upstreams:
  - source: other.json
    github: {owner: a, repo: b}
    ids: [x]
`,
			want: "exactly one of source or github",
		},
		{
			name: "GitHub upstream without ids",
			content: `
source: apps.json
upstreams:
  - github: {owner: a, repo: b}
`,
			want: "exactly one id",
		},
		{
			name: "GitHub upstream without repo",
			content: `
source: apps.json
upstreams:
  - github: {owner: a}
    ids: [x]
`,
			want: "owner and repo are required",
		},
		{
			name: "Bad asset pattern",
			content: `
source: apps.json
upstreams:
  - github: {owner: a, repo: b}
    ids: [x]
    asset_pattern: '['
`,
			want: "asset_pattern",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
