package extension

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// имя файла-инициализатора, такой файл не регистрируется
const InitName = "__init__"

var ErrAlreadyScanned = errors.New("extensions already scanned")

// Extension — единица загрузки.
type Extension interface {
	Name() string
	Setup(ctx context.Context, r *Registrar) error
	Close() error
}

// Opener открывает файл как расширение. Синтаксические ошибки — здесь,
// регистрация — в Setup.
type Opener func(name, path string) (Extension, error)

// Host — сторона бота: таблица команд, слушатели, планировщик, отправка.
type Host interface {
	AddCommand(cmd Command) error
	AddListener(owner string, l Listener)
	AddTask(owner, name string, interval time.Duration, fn Task) error
	// Forget снимает всё, что зарегистрировал owner.
	Forget(owner string)

	Send(channelID, text string) error
	ChannelID() string
	BotName() string
}

// KV — хранилище ключ/значение, разделённое по расширениям.
type KV interface {
	Get(ctx context.Context, ext, key string) (string, bool, error)
	Set(ctx context.Context, ext, key, value string) error
	Delete(ctx context.Context, ext, key string) error
}

type Handler func(ctx context.Context, inv *Invocation) error

// Listener получает каждое сообщение не от бота, в том числе команды.
type Listener func(ctx context.Context, inv *Invocation) error

type Task func(ctx context.Context) error

type Command struct {
	Name        string `validate:"required,cmdname"`
	Description string `validate:"max=200"`
	Usage       string `validate:"max=200"`
	Cooldown    time.Duration
	Handler     Handler `validate:"required"`

	// заполняется Registrar
	Owner string `validate:"-"`
}

// Invocation — один вызов команды или одно сообщение для слушателя.
type Invocation struct {
	ID      string
	Command string
	Args    []string
	// аргументы вида key=value
	Options map[string]string

	AuthorID   string
	AuthorName string
	ChannelID  string
	Content    string

	Reply func(text string) error
}

type LoadError struct {
	Name string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load extension %q (%s): %v", e.Name, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type Entry struct {
	Name     string
	Path     string
	Loaded   bool
	Err      error
	Commands []string
}

type Report struct {
	Entries []Entry
}

func (r Report) Loaded() int {
	n := 0
	for _, e := range r.Entries {
		if e.Loaded {
			n++
		}
	}
	return n
}

func (r Report) Failed() int {
	return len(r.Entries) - r.Loaded()
}

// Names — имена успешно загруженных расширений в порядке загрузки.
func (r Report) Names() []string {
	var out []string
	for _, e := range r.Entries {
		if e.Loaded {
			out = append(out, e.Name)
		}
	}
	return out
}
