package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadMissingWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "settings.yaml")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
	assert.FileExists(t, path)

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestLoadValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: https://match.example.org/api/\ntoken: abc\ntimeout: 90s\nmatch_slots: 12\nthumb_edge: 500\n"), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Settings{
		Endpoint:   "https://match.example.org/api/",
		Token:      "abc",
		Timeout:    90 * time.Second,
		MatchSlots: 12,
		ThumbEdge:  500,
	}, s)
	assert.NoError(t, s.Validate())
}

func TestLoadHeals(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Settings
	}{
		{
			name:    "garbage",
			content: "{{{ not yaml",
			want:    Default(),
		},
		{
			name:    "bad values",
			content: "endpoint: not a url\ntoken: keep\ntimeout: 10ms\nmatch_slots: -4\nthumb_edge: 999999\n",
			want: func() Settings {
				s := Default()
				s.Token = "keep"
				return s
			}(),
		},
		{
			name:    "partial",
			content: "token: t\n",
			want: func() Settings {
				s := Default()
				s.Token = "t"
				return s
			}(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			s, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)

			bs, err := os.ReadFile(path)
			require.NoError(t, err)
			saved := Default()
			require.NoError(t, yaml.Unmarshal(bs, &saved))
			assert.Equal(t, tt.want, saved)
		})
	}
}

func TestValidate(t *testing.T) {
	s := Default()
	s.MatchSlots = 0
	s.Endpoint = "/relative"

	err := s.Validate()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 2)
	assert.Equal(t, 0, s.MatchSlots, "Validate does not modify")
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TVILLING_ENDPOINT", "http://env:9000")
	t.Setenv("TVILLING_TOKEN", "")
	t.Setenv("TVILLING_TIMEOUT", "5s")
	t.Setenv("TVILLING_MATCH_SLOTS", "many")
	t.Setenv("GOOGLE_AI_API_KEY", "g-key")

	s := Default()
	s.Token = "from-file"
	got := FromEnv(s)

	assert.Equal(t, "http://env:9000", got.Endpoint)
	assert.Equal(t, "from-file", got.Token)
	assert.Equal(t, 5*time.Second, got.Timeout)
	assert.Equal(t, 50, got.MatchSlots)
	assert.Equal(t, "g-key", got.GoogleAIKey)
}

func TestFromEnvDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	// godotenv never overrides a variable that is already set.
	t.Setenv("TVILLING_TOKEN", "")
	require.NoError(t, os.Unsetenv("TVILLING_TOKEN"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TVILLING_TOKEN=dotenv-token\n"), 0o600))

	got := FromEnv(Default())
	assert.Equal(t, "dotenv-token", got.Token)
}
