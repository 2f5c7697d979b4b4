// Package config собирает конфигурацию бота из переменных окружения.
//
// Конфиг строится один раз в main и дальше передаётся по ссылке тем компонентам,
// которым он нужен. Ничего не читается из окружения "на лету".
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

const (
	// CommandsDirName — каталог с расширениями относительно BaseDir.
	CommandsDirName = "cmds"

	// LegacyTokenVar — старое имя переменной с токеном, больше не читается.
	LegacyTokenVar = "DISCORD_API_SECRET"
)

type Config struct {
	Token     string `env:"DISCORD_API_TOKEN" validate:"required"`
	ChannelID string `env:"DISCORD_CHANNEL_ID" validate:"required"`

	BaseDir    string `env:"BOT_BASE_DIR"`
	Prefix     string `env:"BOT_COMMAND_PREFIX,default=!" validate:"required"`
	StorePath  string `env:"BOT_STORE_PATH"`
	HealthAddr string `env:"BOT_HEALTH_ADDR"`
	Intents    string `env:"BOT_INTENTS,default=all" validate:"oneof=all default"`

	ConnectAttempts int           `env:"BOT_CONNECT_ATTEMPTS,default=5" validate:"min=1"`
	ConnectBackoff  time.Duration `env:"BOT_CONNECT_BACKOFF,default=1s"`

	// вычисляется из BaseDir
	CommandsDir string
}

// Load читает конфиг из окружения процесса. Перед вызовом main подгружает .env
// через godotenv, поэтому значения из файла тоже видны здесь.
func Load() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, unparsable(err)
	}
	return finalize(&cfg)
}

// unparsable переразбирает поля Config по одному, чтобы назвать переменные,
// которые go-env не смог привести к типу поля.
func unparsable(cause error) error {
	cerr := &ConfigurationError{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("env"), ",")
		if name == "" {
			continue
		}
		one := reflect.New(reflect.StructOf([]reflect.StructField{{
			Name: f.Name,
			Type: f.Type,
			Tag:  reflect.StructTag(`env:"` + f.Tag.Get("env") + `"`),
		}}))
		if _, err := env.UnmarshalFromEnviron(one.Interface()); err != nil {
			cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("%s=%q (%v)", name, os.Getenv(name), err))
		}
	}
	if len(cerr.Invalid) == 0 {
		cerr.Invalid = append(cerr.Invalid, cause.Error())
	}
	return cerr
}

func finalize(cfg *Config) (*Config, error) {
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.ChannelID = strings.TrimSpace(cfg.ChannelID)
	cfg.BaseDir = strings.TrimSpace(cfg.BaseDir)
	cfg.Prefix = strings.TrimSpace(cfg.Prefix)
	cfg.StorePath = strings.TrimSpace(cfg.StorePath)
	cfg.HealthAddr = strings.TrimSpace(cfg.HealthAddr)
	cfg.Intents = strings.ToLower(strings.TrimSpace(cfg.Intents))

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.BaseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve base directory: %w", err)
		}
		cfg.BaseDir = wd
	}
	if abs, err := filepath.Abs(cfg.BaseDir); err == nil {
		cfg.BaseDir = abs
	}
	cfg.CommandsDir = filepath.Join(cfg.BaseDir, CommandsDirName)
	if cfg.StorePath == "" {
		cfg.StorePath = filepath.Join(cfg.BaseDir, "data", "extensions.db")
	}
	return cfg, nil
}

var structValidator = newValidator()

// newValidator называет поля именами переменных окружения, чтобы ошибки
// валидации сразу указывали, что именно надо выставить.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("env"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func validateConfig(cfg *Config) error {
	err := structValidator.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	cerr := &ConfigurationError{}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			cerr.Missing = append(cerr.Missing, fe.Field())
			continue
		}
		cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("%s=%q (%s)", fe.Field(), fmt.Sprint(fe.Value()), fe.ActualTag()))
	}
	if cfg.Token == "" && strings.TrimSpace(os.Getenv(LegacyTokenVar)) != "" {
		cerr.Hint = LegacyTokenVar + " is no longer read, rename it to DISCORD_API_TOKEN"
	}
	return cerr
}

// LogValue не даёт токену попасть в логи.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("token", redact(c.Token)),
		slog.String("channel_id", c.ChannelID),
		slog.String("base_dir", c.BaseDir),
		slog.String("commands_dir", c.CommandsDir),
		slog.String("prefix", c.Prefix),
		slog.String("store", c.StorePath),
		slog.String("intents", c.Intents),
	)
}

func (c *Config) String() string {
	return fmt.Sprintf("token=%s channel=%s commands=%s", redact(c.Token), c.ChannelID, c.CommandsDir)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
