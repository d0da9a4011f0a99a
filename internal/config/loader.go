package config

import (
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"
)

// EnvPrefix prefixes every environment variable, e.g. BANKLOADER_PROJECT_ID.
const EnvPrefix = "BANKLOADER"

// NewViper returns a Viper instance with defaults registered and
// BANKLOADER_* environment variables enabled.
func NewViper() *viper.Viper {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("project_id", d.Project)
	v.SetDefault("dataset", d.Dataset)
	v.SetDefault("table", d.Table)
	v.SetDefault("credentials", d.Credentials)
	v.SetDefault("preview", d.Preview)
	v.SetDefault("preview_rows", d.PreviewRows)
	v.SetDefault("source", d.Source)
	v.SetDefault("source_format", d.SourceFormat)
	v.SetDefault("source_encoding", d.SourceEncoding)
	v.SetDefault("uci_dataset_id", d.UCIDatasetID)
	v.SetDefault("uci_base_url", d.UCIBaseURL)
	v.SetDefault("lock_bucket", d.LockBucket)
	v.SetDefault("lock_stale_after", d.LockStaleAfter)
	v.SetDefault("slack_token", d.SlackToken)
	v.SetDefault("slack_channel", d.SlackChannel)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("pretty", d.Pretty)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads configuration through v. Values resolve as flags bound to v,
// then environment variables, then the YAML config file, then defaults.
// Variables in envFile are added to the environment without overriding
// variables already set; a missing envFile is ignored.
func Load(v *viper.Viper, configFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !xerrors.Is(err, fs.ErrNotExist) {
			return nil, xerrors.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, xerrors.Errorf("failed to read config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, xerrors.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
