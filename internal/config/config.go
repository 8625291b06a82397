// Package config provides configuration loading for autodev.
//
// Configuration comes from an optional YAML file overlaid with AUTODEV_*
// environment variables. See LoadWithFile for precedence and security rules.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the complete autodev configuration.
type Config struct {
	LLM       LLMConfig       `koanf:"llm"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Artifacts ArtifactsConfig `koanf:"artifacts"`
	Probe     ProbeConfig     `koanf:"probe"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// LLMConfig configures the generation backend.
type LLMConfig struct {
	Provider    string   `koanf:"provider"`
	Model       string   `koanf:"model"`
	BaseURL     string   `koanf:"base_url"`
	APIKey      Secret   `koanf:"api_key"`
	Temperature float64  `koanf:"temperature"`
	MaxTokens   int      `koanf:"max_tokens"`
	Timeout     Duration `koanf:"timeout"`
	RateLimit   float64  `koanf:"rate_limit"` // requests per second
	Burst       int      `koanf:"burst"`
}

// PipelineConfig controls agent behavior.
type PipelineConfig struct {
	// MaxBugAttempts is the number of failed build checks tolerated before the
	// code generation agent gives up.
	MaxBugAttempts int `koanf:"max_bug_attempts"`

	// SkipImprove disables the improvement pass after initial generation.
	SkipImprove bool `koanf:"skip_improve"`

	// ContinueOnError keeps running later agents after one fails.
	ContinueOnError bool `koanf:"continue_on_error"`

	Check CheckConfig `koanf:"check"`
}

// CheckConfig configures the build/test collaborator for the bug-fix loop.
type CheckConfig struct {
	Enabled bool     `koanf:"enabled"`
	Command []string `koanf:"command"`
	Dir     string   `koanf:"dir"`
	File    string   `koanf:"file"` // path of the generated source, relative to Dir
	Timeout Duration `koanf:"timeout"`
}

// ArtifactsConfig configures where templates are read and output is written.
type ArtifactsConfig struct {
	TemplatePath string   `koanf:"template_path"`
	Backend      string   `koanf:"backend"` // file | s3
	Dir          string   `koanf:"dir"`
	CodeFile     string   `koanf:"code_file"`
	SchemaFile   string   `koanf:"schema_file"`
	S3           S3Config `koanf:"s3"`
}

// S3Config configures the object storage backend.
type S3Config struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey Secret `koanf:"access_key"`
	SecretKey Secret `koanf:"secret_key"`
	Region    string `koanf:"region"`
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// ProbeConfig configures external URL validation.
type ProbeConfig struct {
	Timeout Duration `koanf:"timeout"`
}

// ServerConfig holds HTTP service configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	RunTimeout      Duration `koanf:"run_timeout"`
}

// LoggingConfig selects log level and encoding.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled    bool    `koanf:"enabled"`
	Endpoint   string  `koanf:"endpoint"`
	Protocol   string  `koanf:"protocol"`
	Insecure   bool    `koanf:"insecure"`
	SampleRate float64 `koanf:"sample_rate"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
//
// The API key is not checked here so commands that never call the backend
// (version, --help) work without credentials.
func (c *Config) Validate() error {
	if c.LLM.Provider != "openai" {
		return fmt.Errorf("unsupported llm provider: %q", c.LLM.Provider)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.RateLimit <= 0 {
		return errors.New("llm rate_limit must be positive")
	}

	if c.Pipeline.MaxBugAttempts < 0 {
		return fmt.Errorf("pipeline max_bug_attempts must be >= 0, got %d", c.Pipeline.MaxBugAttempts)
	}
	if c.Pipeline.Check.Enabled {
		if len(c.Pipeline.Check.Command) == 0 {
			return errors.New("pipeline check command is required when check is enabled")
		}
		if c.Pipeline.Check.Dir == "" {
			return errors.New("pipeline check dir is required when check is enabled")
		}
	}

	switch c.Artifacts.Backend {
	case "file":
		if c.Artifacts.Dir == "" {
			return errors.New("artifacts dir is required for the file backend")
		}
	case "s3":
		if c.Artifacts.S3.Endpoint == "" || c.Artifacts.S3.Bucket == "" {
			return errors.New("artifacts s3 endpoint and bucket are required for the s3 backend")
		}
		if strings.Contains(c.Artifacts.S3.Endpoint, "://") {
			return fmt.Errorf("artifacts s3 endpoint must not include scheme: %q", c.Artifacts.S3.Endpoint)
		}
	default:
		return fmt.Errorf("unknown artifacts backend: %q", c.Artifacts.Backend)
	}

	if c.Probe.Timeout.Duration() <= 0 {
		return errors.New("probe timeout must be positive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry sample_rate must be between 0 and 1, got %v", c.Telemetry.SampleRate)
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = Duration(2 * time.Minute)
	}
	if cfg.LLM.RateLimit == 0 {
		cfg.LLM.RateLimit = 50.0 / 60.0
	}
	if cfg.LLM.Burst == 0 {
		cfg.LLM.Burst = 5
	}

	if cfg.Pipeline.MaxBugAttempts == 0 {
		cfg.Pipeline.MaxBugAttempts = 2
	}
	if len(cfg.Pipeline.Check.Command) == 0 {
		cfg.Pipeline.Check.Command = []string{"cargo", "build"}
	}
	if cfg.Pipeline.Check.File == "" {
		cfg.Pipeline.Check.File = "src/main.rs"
	}
	if cfg.Pipeline.Check.Timeout == 0 {
		cfg.Pipeline.Check.Timeout = Duration(5 * time.Minute)
	}

	if cfg.Artifacts.Backend == "" {
		cfg.Artifacts.Backend = "file"
	}
	if cfg.Artifacts.Dir == "" {
		cfg.Artifacts.Dir = "autodev-out"
	}
	if cfg.Artifacts.CodeFile == "" {
		cfg.Artifacts.CodeFile = "main.rs"
	}
	if cfg.Artifacts.SchemaFile == "" {
		cfg.Artifacts.SchemaFile = "api_schema.json"
	}
	if cfg.Artifacts.S3.Region == "" {
		cfg.Artifacts.S3.Region = "us-east-1"
	}

	if cfg.Probe.Timeout == 0 {
		cfg.Probe.Timeout = Duration(5 * time.Second)
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.RunTimeout == 0 {
		cfg.Server.RunTimeout = Duration(15 * time.Minute)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
}
