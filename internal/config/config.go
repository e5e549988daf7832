// Package config loads layered configuration: built-in defaults, an
// optional YAML file, a .env file and QUIZADAPT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/quizadapt/internal/adaptive"
	"github.com/abhisek/quizadapt/internal/genlock"
	"github.com/abhisek/quizadapt/internal/graph"
	"github.com/abhisek/quizadapt/internal/llm"
	"github.com/abhisek/quizadapt/internal/logger"
	"github.com/abhisek/quizadapt/internal/problemgen"
	"github.com/abhisek/quizadapt/internal/telemetry"
)

// EnvPrefix prefixes every environment override, e.g.
// QUIZADAPT_ENGINE_ZPD_MIN_MASTERY.
const EnvPrefix = "QUIZADAPT"

// ProviderAuto picks the LLM provider from the first vendor API key found
// in the environment, or the mock provider when there is none.
const ProviderAuto = "auto"

type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Store      StoreConfig       `mapstructure:"store"`
	LLM        llm.Config        `mapstructure:"llm"`
	Engine     adaptive.Config   `mapstructure:"engine"`
	Problemgen problemgen.Config `mapstructure:"problemgen"`
	Genlock    genlock.Config    `mapstructure:"genlock"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Neo4j      graph.Config      `mapstructure:"neo4j"`
	Log        logger.Config     `mapstructure:"log"`
	Telemetry  telemetry.Config  `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"` // per client IP, 0 disables
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	DSN    string `mapstructure:"dsn"`    // empty uses the default sqlite path
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Default returns the complete default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    40 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitRPS:    10,
			RateLimitBurst:  20,
		},
		Store:      StoreConfig{Driver: "sqlite"},
		LLM:        defaultLLM(),
		Engine:     adaptive.DefaultConfig(),
		Problemgen: problemgen.DefaultConfig(),
		Genlock:    genlock.DefaultConfig(),
		Redis:      RedisConfig{Addr: "localhost:6379"},
		Neo4j:      graph.DefaultConfig(),
		Log:        logger.Config{Level: "info", Format: "console"},
		Telemetry:  telemetry.DefaultConfig(),
	}
}

func defaultLLM() llm.Config {
	c := llm.DefaultConfig()
	c.Provider = ProviderAuto
	return c
}

// Load reads configuration. path names a YAML file; when empty,
// ./quizadapt.yaml is used if present. A .env file in the working
// directory is loaded into the environment first without overriding
// variables that are already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := Default()
	setDefaults(v, "", reflect.ValueOf(defaults))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("quizadapt")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := defaults
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Problemgen.Validators = problemgen.StandardValidators(cfg.Problemgen)

	if cfg.LLM.Provider == "" || cfg.LLM.Provider == ProviderAuto {
		discovered, ok := llm.DiscoverConfig(cfg.LLM)
		if !ok {
			discovered.Provider = "mock"
		}
		cfg.LLM = discovered
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that have a closed set of options.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	switch c.Genlock.Mode {
	case genlock.ModeNone, genlock.ModeLocal, genlock.ModeRedis:
	default:
		errs = append(errs, fmt.Errorf("genlock.mode must be none, local or redis, got %q", c.Genlock.Mode))
	}
	if z := c.Engine.ZPD; z.MinMastery > z.MaxMastery {
		errs = append(errs, fmt.Errorf("engine.zpd.min_mastery %.2f exceeds max_mastery %.2f", z.MinMastery, z.MaxMastery))
	}
	if c.Engine.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("engine.generation_timeout must be positive"))
	}
	if c.Problemgen.OptionCount < 2 {
		errs = append(errs, fmt.Errorf("problemgen.option_count must be at least 2, got %d", c.Problemgen.OptionCount))
	}
	if c.LLM.Provider != ProviderAuto {
		if err := c.LLM.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// setDefaults registers every leaf of a defaults struct with viper so that
// environment variables can override keys absent from the config file.
func setDefaults(v *viper.Viper, prefix string, val reflect.Value) {
	t := val.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		fv := val.Field(i)
		if fv.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Time{}) {
			setDefaults(v, key, fv)
			continue
		}
		v.SetDefault(key, fv.Interface())
	}
}
