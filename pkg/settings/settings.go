// Package settings stores user preferences and the recent-projects list.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// Settings are the user's preferences.
type Settings struct {
	Endpoint   string        `yaml:"endpoint"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	MatchSlots int           `yaml:"match_slots"`
	ThumbEdge  int           `yaml:"thumb_edge"`

	// GoogleAIKey is only read from the environment.
	GoogleAIKey string `yaml:"-"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Endpoint:   "http://localhost:8000",
		Timeout:    60 * time.Second,
		MatchSlots: 50,
		ThumbEdge:  1000,
	}
}

// ValidationError describes settings that had to be replaced with defaults.
type ValidationError struct {
	Path     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid settings in %s: %s", e.Path, strings.Join(e.Problems, "; "))
}

// Dir returns the per-user tvilling configuration directory.
func Dir() (string, error) {
	d, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(d, "tvilling"), nil
}

// Validate reports every value that is out of range.
func (s Settings) Validate() error {
	if fixes := s.heal(); len(fixes) > 0 {
		return &ValidationError{Problems: fixes}
	}
	return nil
}

// heal replaces invalid fields with defaults.
func (s *Settings) heal() []string {
	var fixes []string
	def := Default()
	if u, err := url.Parse(s.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		fixes = append(fixes, fmt.Sprintf("endpoint %q reset to %s", s.Endpoint, def.Endpoint))
		s.Endpoint = def.Endpoint
	}
	if s.Timeout < time.Second {
		fixes = append(fixes, fmt.Sprintf("timeout %s reset to %s", s.Timeout, def.Timeout))
		s.Timeout = def.Timeout
	}
	if s.MatchSlots < 1 || s.MatchSlots > 1000 {
		fixes = append(fixes, fmt.Sprintf("match_slots %d reset to %d", s.MatchSlots, def.MatchSlots))
		s.MatchSlots = def.MatchSlots
	}
	if s.ThumbEdge < 16 || s.ThumbEdge > 8192 {
		fixes = append(fixes, fmt.Sprintf("thumb_edge %d reset to %d", s.ThumbEdge, def.ThumbEdge))
		s.ThumbEdge = def.ThumbEdge
	}
	return fixes
}

// Load reads settings from path. A missing, unreadable, or invalid file never
// fails: defaults are substituted, logged, and written back.
func Load(path string) (Settings, error) {
	s := Default()
	bs, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		klog.V(1).Infof("no settings at %s, writing defaults", path)
		return s, Save(path, s)
	case err != nil:
		return s, fmt.Errorf("read: %w", err)
	}

	if err := yaml.Unmarshal(bs, &s); err != nil {
		klog.Warningf("%v", &ValidationError{Path: path, Problems: []string{err.Error()}})
		s = Default()
		return s, Save(path, s)
	}

	fixes := s.heal()
	if len(fixes) == 0 {
		return s, nil
	}
	klog.Warningf("%v", &ValidationError{Path: path, Problems: fixes})
	return s, Save(path, s)
}

// Save writes s to path as YAML.
func Save(path string, s Settings) error {
	bs, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	// The token is a credential.
	return os.WriteFile(path, bs, 0o600)
}

// FromEnv applies environment overrides, loading a .env file from the working
// directory first if there is one.
func FromEnv(s Settings) Settings {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		klog.Warningf("unable to load .env: %v", err)
	}
	s.Endpoint = getEnv("TVILLING_ENDPOINT", s.Endpoint)
	s.Token = getEnv("TVILLING_TOKEN", s.Token)
	s.Timeout = getEnvDuration("TVILLING_TIMEOUT", s.Timeout)
	s.MatchSlots = getEnvInt("TVILLING_MATCH_SLOTS", s.MatchSlots)
	s.GoogleAIKey = getEnv("GOOGLE_AI_API_KEY", s.GoogleAIKey)
	return s
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
