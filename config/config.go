package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/maastricht-university/edmo-corpus/corpus"
)

// EnvPrefix prefixes every environment override, e.g. EDMO_STORAGE_BASE_PATH.
const EnvPrefix = "EDMO"

type Service struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Timeout int    `yaml:"timeout" mapstructure:"timeout"` // seconds
}
type Services struct {
	NLP Service `yaml:"nlp" mapstructure:"nlp"`
}
type Storage struct {
	BasePath string `yaml:"base_path" mapstructure:"base_path"`
	Type     string `yaml:"type" mapstructure:"type"`
}
type Root struct {
	Pipeline struct {
		Name   string `yaml:"name" mapstructure:"name"`
		LogLvl string `yaml:"log_level" mapstructure:"log_level"`
	} `yaml:"pipeline" mapstructure:"pipeline"`
	Services Services `yaml:"services" mapstructure:"services"`
	Storage  Storage  `yaml:"storage" mapstructure:"storage"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "edmo-corpus")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("services.nlp.url", "")
	v.SetDefault("services.nlp.timeout", 60)
	v.SetDefault("storage.base_path", "corpora")
	v.SetDefault("storage.type", string(corpus.StorageDB))
}

// Load reads configuration from path, or when path is empty from the first
// of config/<CONFIG_ENV>/config.yaml and ./config.yaml that exists. A
// missing guessed file leaves the defaults in place. Environment variables
// and a .env file override file values.
func Load(path string) (*Root, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = guess()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func guess() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	for _, p := range []string{
		filepath.Join("config", env, "config.yaml"),
		"config.yaml",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks the values Load cannot type-check on its own.
func (r *Root) Validate() error {
	var errs []error
	if _, err := corpus.ParseStorageType(r.Storage.Type); err != nil {
		errs = append(errs, fmt.Errorf("storage.type: %w", err))
	}
	if strings.TrimSpace(r.Storage.BasePath) == "" {
		errs = append(errs, errors.New("storage.base_path: empty"))
	}
	if _, err := logrus.ParseLevel(r.Pipeline.LogLvl); err != nil {
		errs = append(errs, fmt.Errorf("pipeline.log_level: %w", err))
	}
	if r.Services.NLP.Timeout < 0 {
		errs = append(errs, fmt.Errorf("services.nlp.timeout: %d is negative", r.Services.NLP.Timeout))
	}
	return errors.Join(errs...)
}

// StorageType is Storage.Type parsed; call after Validate.
func (r *Root) StorageType() corpus.StorageType {
	t, _ := corpus.ParseStorageType(r.Storage.Type)
	return t
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
