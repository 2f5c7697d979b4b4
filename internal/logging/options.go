package logging

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Options — таблица приёмников и порогов. Может лежать в YAML (LOG_CONFIG),
// отдельные поля переопределяются переменными LOG_*.
type Options struct {
	BotLevel            string `yaml:"bot_level" envconfig:"BOT_LEVEL"`
	DiscordLevel        string `yaml:"discord_level" envconfig:"DISCORD_LEVEL"`
	DiscordConsoleLevel string `yaml:"discord_console_level" envconfig:"DISCORD_CONSOLE_LEVEL"`
	File                string `yaml:"file" envconfig:"FILE"`
	Format              string `yaml:"format" envconfig:"FORMAT"`
}

func DefaultOptions() Options {
	return Options{
		BotLevel:            "info",
		DiscordLevel:        "info",
		DiscordConsoleLevel: "warn",
		File:                "logs/infos.log",
		Format:              "text",
	}
}

// LoadOptions: умолчания -> YAML из LOG_CONFIG (если задан) -> LOG_* из окружения.
func LoadOptions() (Options, error) {
	opts := DefaultOptions()

	var src struct {
		Config string `envconfig:"CONFIG"`
	}
	if err := envconfig.Process("log", &src); err != nil {
		return opts, err
	}
	if src.Config != "" {
		if err := readOptionsFile(src.Config, &opts); err != nil {
			return opts, err
		}
	}

	if err := envconfig.Process("log", &opts); err != nil {
		return opts, fmt.Errorf("logging env: %w", err)
	}
	return opts, nil
}

func readOptionsFile(path string, opts *Options) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("logging config %s not found", path)
		}
		return err
	}
	if err := yaml.Unmarshal(b, opts); err != nil {
		return fmt.Errorf("parse logging config %s: %w", path, err)
	}
	return nil
}
