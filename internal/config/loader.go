package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB
	envPrefix         = "AUTODEV_"
)

// apiKeyFallbacks are consulted, in order, when llm.api_key is unset.
var apiKeyFallbacks = []string{"OPENAI_API_KEY", "OPEN_AI_KEY"}

// LoadWithFile loads configuration from a YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. AUTODEV_* environment variables
//  2. YAML config file (~/.config/autodev/config.yaml)
//  3. Hardcoded defaults
//
// If configPath is empty the default path is used. A missing file is not an
// error.
//
// # Security Considerations
//
// The file must live under ~/.config/autodev/ or /etc/autodev/, must have
// 0600 or 0400 permissions, and must not exceed 1MB.
//
// # Environment Variable Mapping
//
// The AUTODEV_ prefix is stripped and the remainder is split on its first
// underscore into section and field:
//
//	AUTODEV_LLM_API_KEY             -> llm.api_key
//	AUTODEV_PIPELINE_MAX_BUG_ATTEMPTS -> pipeline.max_bug_attempts
//	AUTODEV_SERVER_HTTP_PORT        -> server.http_port
//	AUTODEV_PIPELINE_CHECK_ENABLED  -> pipeline.check.enabled
//	AUTODEV_ARTIFACTS_S3_SECRET_KEY -> artifacts.s3.secret_key
//
// OPENAI_API_KEY and OPEN_AI_KEY are accepted as the API key when
// AUTODEV_LLM_API_KEY is not set.
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "autodev", "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		// Validate through the open descriptor to avoid a TOCTOU race.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !cfg.LLM.APIKey.IsSet() {
		for _, name := range apiKeyFallbacks {
			if v := os.Getenv(name); v != "" {
				cfg.LLM.APIKey = Secret(v)
				break
			}
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// nestedSections are env prefixes that address a sub-section.
var nestedSections = []struct{ prefix, path string }{
	{"pipeline_check_", "pipeline.check."},
	{"artifacts_s3_", "artifacts.s3."},
}

// envKey maps AUTODEV_SECTION_FIELD_NAME to section.field_name, and
// AUTODEV_SECTION_SUB_FIELD to section.sub.field for nested sections.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, n := range nestedSections {
		if strings.HasPrefix(lower, n.prefix) && len(lower) > len(n.prefix) {
			return n.path + strings.TrimPrefix(lower, n.prefix)
		}
	}
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// EnsureConfigDir creates ~/.config/autodev with 0700 permissions.
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".config", "autodev")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	return nil
}

// validateConfigPath checks if path is in an allowed directory.
// Runs even when the file does not exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Follow symlinks so a link cannot escape the allowed directories.
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	allowedDirs := []string{
		filepath.Join(home, ".config", "autodev"),
		"/etc/autodev",
	}
	for _, dir := range allowedDirs {
		if resolvedPath == dir || strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}

	return fmt.Errorf("config file must be in ~/.config/autodev/ or /etc/autodev/")
}

// validateConfigFileProperties checks file permissions and size using
// FileInfo from an already-opened descriptor.
func validateConfigFileProperties(info os.FileInfo) error {
	// Windows has a different permission model.
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
