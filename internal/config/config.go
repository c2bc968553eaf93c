package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultUserID is the learner id sent to the gateway when none is configured.
const DefaultUserID = "learn-page-user"

// Config holds application configuration.
type Config struct {
	// APIURL is the base URL of the LearnFlow API gateway.
	// Empty means offline: every action uses the local fallback.
	APIURL string `json:"api_url,omitempty"`

	// UserID identifies the learner in chat and execute requests.
	UserID string `json:"user_id,omitempty"`

	// RequestTimeoutSeconds bounds each gateway call.
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty"`

	// RenderCacheSize is the number of rendered markdown replies kept by the web UI.
	RenderCacheSize int `json:"render_cache_size,omitempty"`

	// SessionCacheSize is the number of browser sessions the web UI keeps in memory.
	// The least recently used session is dropped first and starts over on its next request.
	SessionCacheSize int `json:"session_cache_size,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		UserID:                DefaultUserID,
		RequestTimeoutSeconds: 10,
		RenderCacheSize:       256,
		SessionCacheSize:      1024,
	}
}

// RequestTimeout returns the gateway timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.pystudio) and project (.pystudio) directories.
// The project config is found by walking upward from startDir.
// Project config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .pystudio/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".pystudio", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overlays environment variables onto cfg, after loading a .env file
// from the working directory if one exists. Variables already set in the
// environment win over .env entries.
//
//	PYSTUDIO_API_URL (or NEXT_PUBLIC_API_URL)
//	PYSTUDIO_USER_ID
//	PYSTUDIO_REQUEST_TIMEOUT_SECONDS
func ApplyEnv(cfg *Config) *Config {
	_ = godotenv.Load()

	if v := firstNonEmpty(os.Getenv("PYSTUDIO_API_URL"), os.Getenv("NEXT_PUBLIC_API_URL")); v != "" {
		cfg.APIURL = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv("PYSTUDIO_USER_ID")); v != "" {
		cfg.UserID = v
	}
	if v := strings.TrimSpace(os.Getenv("PYSTUDIO_REQUEST_TIMEOUT_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeoutSeconds = n
		}
	}
	return cfg
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		APIURL:                firstNonEmpty(overlay.APIURL, base.APIURL),
		UserID:                firstNonEmpty(overlay.UserID, base.UserID),
		RequestTimeoutSeconds: firstNonZero(overlay.RequestTimeoutSeconds, base.RequestTimeoutSeconds),
		RenderCacheSize:       firstNonZero(overlay.RenderCacheSize, base.RenderCacheSize),
		SessionCacheSize:      firstNonZero(overlay.SessionCacheSize, base.SessionCacheSize),
		DBMaxOpenConns:        firstNonZero(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:        firstNonZero(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string(nil), a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
