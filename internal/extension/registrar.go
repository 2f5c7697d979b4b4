package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var reCommandName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

var commandValidator = newCommandValidator()

func newCommandValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("cmdname", func(fl validator.FieldLevel) bool {
		return reCommandName.MatchString(fl.Field().String())
	})
	return v
}

// Registrar — то, что видит расширение во время Setup и после него.
// Все регистрации помечаются именем расширения.
type Registrar struct {
	host  Host
	owner string
	kv    KV
	log   *slog.Logger

	commands []string
}

func newRegistrar(host Host, owner string, kv KV, log *slog.Logger) *Registrar {
	return &Registrar{
		host:  host,
		owner: owner,
		kv:    kv,
		log:   log.With("extension", owner),
	}
}

func (r *Registrar) Name() string         { return r.owner }
func (r *Registrar) Logger() *slog.Logger { return r.log }
func (r *Registrar) ChannelID() string    { return r.host.ChannelID() }
func (r *Registrar) BotName() string      { return r.host.BotName() }

func (r *Registrar) Command(cmd Command) error {
	cmd.Name = strings.ToLower(strings.TrimSpace(cmd.Name))
	if err := ValidateCommand(cmd); err != nil {
		return err
	}
	cmd.Owner = r.owner
	if err := r.host.AddCommand(cmd); err != nil {
		return err
	}
	r.commands = append(r.commands, cmd.Name)
	return nil
}

func (r *Registrar) OnMessage(l Listener) {
	r.host.AddListener(r.owner, l)
}

func (r *Registrar) Every(name string, interval time.Duration, fn Task) error {
	if interval < time.Second {
		return fmt.Errorf("task %q: interval %v is below 1s", name, interval)
	}
	return r.host.AddTask(r.owner, name, interval, fn)
}

func (r *Registrar) Send(channelID, text string) error {
	if channelID == "" {
		channelID = r.host.ChannelID()
	}
	return r.host.Send(channelID, text)
}

// Storage — хранилище этого расширения. nil, если хранилище не подключено.
func (r *Registrar) Storage() *Storage {
	if r.kv == nil {
		return nil
	}
	return &Storage{kv: r.kv, owner: r.owner}
}

// Commands — имена команд, зарегистрированных этим расширением.
func (r *Registrar) Commands() []string {
	return append([]string(nil), r.commands...)
}

func ValidateCommand(cmd Command) error {
	if cmd.Cooldown < 0 {
		return fmt.Errorf("command %q: negative cooldown", cmd.Name)
	}
	err := commandValidator.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		return strings.ToLower(fe.Field()) + " (" + fe.Tag() + ")"
	})
	return fmt.Errorf("command %q: invalid %s", cmd.Name, strings.Join(fields, ", "))
}

type Storage struct {
	kv    KV
	owner string
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	return s.kv.Get(ctx, s.owner, key)
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	return s.kv.Set(ctx, s.owner, key, value)
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, s.owner, key)
}
