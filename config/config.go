package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Konsultn-Engineering/sqlkit/cache"
	"github.com/Konsultn-Engineering/sqlkit/connector"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
	"github.com/Konsultn-Engineering/sqlkit/engine"
	"github.com/Konsultn-Engineering/sqlkit/resource"
)

const (
	EnvPrefix = "SQLKIT"
	FileName  = "sqlkit"
)

var ErrInvalidSettings = errors.New("config: invalid settings")

// Settings holds the application configuration
type Settings struct {
	Driver      string              `mapstructure:"driver"`
	Dialect     string              `mapstructure:"dialect"`
	Connection  connector.Config    `mapstructure:"connection"`
	Statement   StatementSettings   `mapstructure:"statement"`
	Template    TemplateSettings    `mapstructure:"template"`
	Transaction TransactionSettings `mapstructure:"transaction"`
	Resources   ResourceSettings    `mapstructure:"resources"`
	Log         LogSettings         `mapstructure:"log"`
}

type StatementSettings struct {
	Reuse     bool `mapstructure:"reuse"`
	CacheSize int  `mapstructure:"cache_size"`
}

type TemplateSettings struct {
	LikeEscapeChar    string `mapstructure:"like_escape_char"`
	LikeEscapeTargets string `mapstructure:"like_escape_targets"`
}

type TransactionSettings struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type ResourceSettings struct {
	Dir       string `mapstructure:"dir"`
	Extension string `mapstructure:"extension"`
	CacheSize int    `mapstructure:"cache_size"`
	Watch     bool   `mapstructure:"watch"`
}

type LogSettings struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("driver", "")
	v.SetDefault("dialect", "")
	v.SetDefault("connection.host", "")
	v.SetDefault("connection.port", 0)
	v.SetDefault("connection.database", "")
	v.SetDefault("connection.username", "")
	v.SetDefault("connection.password", "")
	v.SetDefault("connection.dsn", "")
	v.SetDefault("connection.connect_timeout", 10*time.Second)
	v.SetDefault("statement.reuse", true)
	v.SetDefault("statement.cache_size", cache.DefaultStatementCacheSize)
	v.SetDefault("template.like_escape_char", "")
	v.SetDefault("template.like_escape_targets", "")
	v.SetDefault("transaction.timeout_seconds", 0)
	v.SetDefault("resources.dir", "sql")
	v.SetDefault("resources.extension", resource.DefaultExtension)
	v.SetDefault("resources.cache_size", resource.DefaultCacheSize)
	v.SetDefault("resources.watch", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads settings from path, or from sqlkit.{yaml,json,toml} in the
// working directory, $HOME or $HOME/.config/sqlkit when path is empty. A
// missing file is only an error when path was given. .env and .env.local
// in the working directory are loaded into the environment first, and
// SQLKIT_* variables override file values (SQLKIT_CONNECTION_HOST).
func Load(fs afero.Fs, path string) (*Settings, error) {
	if err := loadDotEnv(fs, ".env", false); err != nil {
		return nil, err
	}
	if err := loadDotEnv(fs, ".env.local", true); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading %s: %w", v.ConfigFileUsed(), err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// loadDotEnv copies variables from name into the environment. Existing
// variables win unless override is set.
func loadDotEnv(fs afero.Fs, name string, override bool) error {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", name, err)
	}
	vars, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("config: parsing %s: %w", name, err)
	}
	for k, val := range vars {
		if _, set := os.LookupEnv(k); set && !override {
			continue
		}
		if err := os.Setenv(k, val); err != nil {
			return err
		}
	}
	return nil
}

func (s *Settings) Validate() error {
	if n := utf8.RuneCountInString(s.Template.LikeEscapeChar); n > 1 {
		return fmt.Errorf("%w: like_escape_char must be a single character, got %q", ErrInvalidSettings, s.Template.LikeEscapeChar)
	}
	if s.Transaction.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: negative transaction timeout", ErrInvalidSettings)
	}
	if s.Statement.CacheSize < 0 {
		return fmt.Errorf("%w: negative statement cache size", ErrInvalidSettings)
	}
	return nil
}

// ResolveDialect picks the configured dialect, else the driver's, else the
// default one.
func (s *Settings) ResolveDialect() (dialect.Dialect, error) {
	switch {
	case s.Dialect != "":
		return dialect.Lookup(s.Dialect)
	case s.Driver != "":
		return connector.DialectOf(s.Driver)
	}
	return dialect.NewDefaultDialect(), nil
}

// EngineOptions maps the settings onto engine options. Resources are left
// unset; see ResourceLoader.
func (s *Settings) EngineOptions(logger *zap.Logger) engine.Options {
	opts := engine.Options{
		NoReuse:            !s.Statement.Reuse,
		StatementCacheSize: s.Statement.CacheSize,
		LikeEscapeTargets:  s.Template.LikeEscapeTargets,
		TransactionTimeout: time.Duration(s.Transaction.TimeoutSeconds) * time.Second,
		Logger:             logger,
	}
	if r, _ := utf8.DecodeRuneInString(s.Template.LikeEscapeChar); r != utf8.RuneError {
		opts.LikeEscapeChar = r
	}
	return opts
}

func (s *Settings) ResourceLoader(fs afero.Fs, logger *zap.Logger) (*resource.Loader, error) {
	return resource.New(fs, resource.Options{
		Dir:       s.Resources.Dir,
		Extension: s.Resources.Extension,
		CacheSize: s.Resources.CacheSize,
		Logger:    logger,
	})
}

// Logger builds a zap logger at the configured level.
func (s *Settings) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(s.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level: %v", ErrInvalidSettings, err)
	}
	cfg := zap.NewProductionConfig()
	if s.Log.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = level
	return cfg.Build()
}
