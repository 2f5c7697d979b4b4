package extension

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

type Option func(*Loader)

// WithOpener регистрирует обработчик файлов с суффиксом suffix (".lua").
func WithOpener(suffix string, o Opener) Option {
	return func(l *Loader) { l.openers[strings.ToLower(suffix)] = o }
}

func WithStore(kv KV) Option {
	return func(l *Loader) { l.kv = kv }
}

type Loader struct {
	dir     string
	log     *slog.Logger
	kv      KV
	openers map[string]Opener

	mu      sync.Mutex
	scanned bool
	loaded  []Extension

	// отдельный замок: Report читают во время долгого скана
	repMu  sync.RWMutex
	report Report
}

// NewLoader создаёт загрузчик каталога dir. Без опций понимает только .lua.
func NewLoader(dir string, log *slog.Logger, opts ...Option) *Loader {
	if log == nil {
		log = slog.Default()
	}
	l := &Loader{
		dir:     dir,
		log:     log,
		openers: map[string]Opener{},
	}
	for _, o := range opts {
		o(l)
	}
	if len(l.openers) == 0 {
		l.openers[".lua"] = OpenLua(LuaOptions{Logger: log})
	}
	return l
}

func (l *Loader) Dir() string { return l.dir }

// LoadAll сканирует каталог один раз. Ошибки отдельных расширений попадают в
// Report и лог, наружу не выходят. Повторный вызов — ErrAlreadyScanned.
func (l *Loader) LoadAll(ctx context.Context, host Host) (Report, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.scanned {
		return l.Report(), ErrAlreadyScanned
	}
	l.scanned = true

	files, err := l.candidates()
	if err != nil {
		return Report{}, err
	}

	var rep Report
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Entries = append(rep.Entries, l.loadOne(ctx, host, f))
		l.publish(rep)
	}

	l.log.Info("extensions scan finished",
		"dir", l.dir, "loaded", rep.Loaded(), "failed", rep.Failed())
	return rep, nil
}

// Report — результат последнего сканирования.
// Пока скан идёт, в нём только уже обработанные файлы.
func (l *Loader) Report() Report {
	l.repMu.RLock()
	defer l.repMu.RUnlock()
	return Report{Entries: slices.Clone(l.report.Entries)}
}

func (l *Loader) publish(rep Report) {
	l.repMu.Lock()
	l.report = Report{Entries: slices.Clone(rep.Entries)}
	l.repMu.Unlock()
}

func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for _, ext := range l.loaded {
		if err := ext.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", ext.Name(), err))
		}
	}
	l.loaded = nil
	return errors.Join(errs...)
}

type candidate struct {
	name   string
	path   string
	opener Opener
}

// os.ReadDir отдаёт записи отсортированными по имени, порядок загрузки стабилен.
func (l *Loader) candidates() ([]candidate, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		l.log.Warn("commands directory not found", "dir", l.dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read commands dir: %w", err)
	}

	var out []candidate
	for _, de := range entries {
		file := de.Name()
		suffix := strings.ToLower(filepath.Ext(file))
		opener, ok := l.openers[suffix]
		if !ok {
			continue
		}
		path := filepath.Join(l.dir, file)
		if !isRegular(de, path) {
			continue
		}
		name := strings.TrimSuffix(file, filepath.Ext(file))
		if name == "" {
			l.log.Warn("skip extension without name", "file", file)
			continue
		}
		if name == InitName {
			l.log.Debug("skip initializer", "file", file)
			continue
		}
		out = append(out, candidate{name: name, path: path, opener: opener})
	}
	return out, nil
}

func isRegular(de fs.DirEntry, path string) bool {
	if de.Type().IsRegular() {
		return true
	}
	if de.Type()&fs.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func (l *Loader) loadOne(ctx context.Context, host Host, c candidate) Entry {
	entry := Entry{Name: c.name, Path: c.path}

	ext, reg, err := l.setup(ctx, host, c)
	if err != nil {
		host.Forget(c.name)
		if ext != nil {
			_ = ext.Close()
		}
		entry.Err = &LoadError{Name: c.name, Path: c.path, Err: err}
		l.log.Error("extension failed", "extension", c.name, "error", err)
		return entry
	}

	l.loaded = append(l.loaded, ext)
	entry.Loaded = true
	entry.Commands = reg.Commands()
	l.log.Info("extension loaded", "extension", c.name, "commands", entry.Commands)
	return entry
}

func (l *Loader) setup(ctx context.Context, host Host, c candidate) (ext Extension, reg *Registrar, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	ext, err = c.opener(c.name, c.path)
	if err != nil {
		return nil, nil, err
	}
	reg = newRegistrar(host, c.name, l.kv, l.log)
	if err := ext.Setup(ctx, reg); err != nil {
		return ext, nil, err
	}
	return ext, reg, nil
}
