package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store              StoreConfig               `yaml:"store" mapstructure:"store"`
	Providers          map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	MemoryMethods      []string                  `yaml:"memory_methods" mapstructure:"memory_methods"`
	ExecutedBenchmarks []string                  `yaml:"executed_benchmarks" mapstructure:"executed_benchmarks"`
	Benchmarks         map[string]map[string]any `yaml:"benchmarks" mapstructure:"benchmarks"`
	MemoryConfigs      map[string]map[string]any `yaml:"memory_configs" mapstructure:"memory_configs"`
	ConcurrentEvals    int                       `yaml:"concurrent_evaluations" mapstructure:"concurrent_evaluations"`
	EvalTimeoutSecs    int                       `yaml:"evaluation_timeout_secs" mapstructure:"evaluation_timeout_secs"`
	Ollama             OllamaConfig              `yaml:"ollama" mapstructure:"ollama"`
	OpenRouter         OpenRouterConfig          `yaml:"openrouter" mapstructure:"openrouter"`
	Anthropic          AnthropicConfig           `yaml:"anthropic" mapstructure:"anthropic"`
	Server             ServerConfig              `yaml:"server" mapstructure:"server"`
	Log                LogConfig                 `yaml:"log" mapstructure:"log"`
}

// ProviderConfig describes one configured inference backend: the models it
// can serve, the subset to actually run, and provider-specific settings that
// are passed through to the model constructor uninspected.
type ProviderConfig struct {
	Models        []string       `yaml:"models" mapstructure:"models"`
	EnabledModels []string       `yaml:"enabled_models" mapstructure:"enabled_models"`
	Settings      map[string]any `yaml:",inline" mapstructure:",remain"`
}

// StoreConfig configures the results store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OllamaConfig holds Ollama API settings.
type OllamaConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OpenRouterConfig holds OpenRouter API settings.
type OpenRouterConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// ServerConfig configures the results API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MEMBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "results/evaluation_results.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("concurrent_evaluations", 1)
	v.SetDefault("evaluation_timeout_secs", 0)
	v.SetDefault("memory_methods", []string{"truncation"})
	v.SetDefault("executed_benchmarks", []string{"smoke"})
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.timeout_secs", 120)
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.requests_per_sec", 2)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the evaluation configuration before any run starts.
// Violations are fatal: nothing partial runs.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return eris.New("config: no providers configured")
	}

	enabledTotal := 0
	for name, pc := range c.Providers {
		available := make(map[string]struct{}, len(pc.Models))
		for _, m := range pc.Models {
			available[m] = struct{}{}
		}
		for _, m := range pc.EnabledModels {
			if _, ok := available[m]; !ok {
				return eris.Errorf(
					"config: provider %q enables model %q not in its models list %v",
					name, m, pc.Models,
				)
			}
		}
		enabledTotal += len(pc.EnabledModels)
	}
	if enabledTotal == 0 {
		return eris.New("config: no models enabled; set enabled_models for at least one provider")
	}

	if len(c.MemoryMethods) == 0 {
		return eris.New("config: memory_methods cannot be empty")
	}
	if len(c.ExecutedBenchmarks) == 0 {
		return eris.New("config: executed_benchmarks cannot be empty")
	}

	return nil
}

// MemoryConfig returns the settings block for a memory method, or an empty
// map when none is configured.
func (c *Config) MemoryConfig(method string) map[string]any {
	if mc, ok := c.MemoryConfigs[method]; ok {
		return mc
	}
	return map[string]any{}
}

// BenchmarkConfig returns the settings block for a benchmark, or an empty
// map when none is configured.
func (c *Config) BenchmarkConfig(benchmark string) map[string]any {
	if bc, ok := c.Benchmarks[benchmark]; ok {
		return bc
	}
	return map[string]any{}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
