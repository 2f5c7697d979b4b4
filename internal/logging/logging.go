// Package logging настраивает два независимых логгера процесса:
//
//   - "bot"     — консоль, по умолчанию INFO;
//   - "discord" — логгер клиентской библиотеки Discord: в консоль только
//     предупреждения, в файл logs/infos.log (перезаписывается при старте) — INFO.
//
// У каждого логгера свой порог и свои приёмники. Пакет ничего не делает при
// импорте: всё настраивается явным вызовом Configure из main.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

const (
	BotLogger     = "bot"
	DiscordLogger = "discord"
)

// Loggers — результат Configure. Пороги можно менять на лету через *LevelVar.
type Loggers struct {
	Bot     *slog.Logger
	Discord *slog.Logger

	BotLevel            *slog.LevelVar
	DiscordLevel        *slog.LevelVar
	DiscordConsoleLevel *slog.LevelVar

	file *os.File
}

// Configure строит логгеры по opts. console — общий консольный приёмник
// (обычно os.Stderr).
func Configure(opts Options, console io.Writer) (*Loggers, error) {
	botLevel, err := parseLevel(opts.BotLevel)
	if err != nil {
		return nil, fmt.Errorf("bot level: %w", err)
	}
	discordLevel, err := parseLevel(opts.DiscordLevel)
	if err != nil {
		return nil, fmt.Errorf("discord level: %w", err)
	}
	discordConsoleLevel, err := parseLevel(opts.DiscordConsoleLevel)
	if err != nil {
		return nil, fmt.Errorf("discord console level: %w", err)
	}

	l := &Loggers{
		BotLevel:            new(slog.LevelVar),
		DiscordLevel:        new(slog.LevelVar),
		DiscordConsoleLevel: new(slog.LevelVar),
	}
	l.BotLevel.Set(botLevel)
	l.DiscordLevel.Set(discordLevel)
	l.DiscordConsoleLevel.Set(discordConsoleLevel)

	l.Bot = slog.New(consoleHandler(console, BotLogger, l.BotLevel))

	handlers := []slog.Handler{consoleHandler(console, DiscordLogger, l.DiscordConsoleLevel)}
	if opts.File != "" {
		f, err := openLogFile(opts.File)
		if err != nil {
			return nil, err
		}
		l.file = f
		handlers = append(handlers, fileHandler(f, opts.Format, l.DiscordLevel).
			WithAttrs([]slog.Attr{slog.String("logger", DiscordLogger)}))
	}
	l.Discord = slog.New(fanout(handlers))

	return l, nil
}

// Close закрывает файловый приёмник.
func (l *Loggers) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func consoleHandler(w io.Writer, prefix string, level *slog.LevelVar) slog.Handler {
	cl := charmlog.NewWithOptions(w, charmlog.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		// порог решает LevelVar ниже
		Level: charmlog.DebugLevel,
	})
	return &leveled{Handler: cl, level: level}
}

func fileHandler(w io.Writer, format string, level *slog.LevelVar) slog.Handler {
	ho := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, ho)
	}
	return slog.NewTextHandler(w, ho)
}

// файл перезаписывается при каждом старте, как и раньше
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func parseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return lvl, nil
}
