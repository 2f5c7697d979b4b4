package bot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/EgorLis/cmdbot/internal/extension"
	"github.com/samber/lo"
)

// владелец встроенных команд. Имя файла не может содержать '/', так что
// с расширением не совпадёт.
const builtinOwner = "bot/builtin"

var _ extension.Host = (*Bot)(nil)

func (b *Bot) AddCommand(cmd extension.Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.commands[cmd.Name]; ok {
		owner := prev.Owner
		if owner == builtinOwner {
			owner = "built-in"
		}
		return fmt.Errorf("command %q is already registered by %s", cmd.Name, owner)
	}
	b.commands[cmd.Name] = &cmd
	return nil
}

func (b *Bot) AddListener(owner string, l extension.Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.listeners[owner]; !ok {
		b.owners = append(b.owners, owner)
	}
	b.listeners[owner] = append(b.listeners[owner], l)
}

func (b *Bot) AddTask(owner, name string, interval time.Duration, fn extension.Task) error {
	return b.tasks.add(owner, name, interval, func() {
		b.enqueue(func(ctx context.Context) { b.runTask(ctx, owner, name, fn) })
	})
}

func (b *Bot) Forget(owner string) {
	b.mu.Lock()
	for name, cmd := range b.commands {
		if cmd.Owner == owner {
			delete(b.commands, name)
		}
	}
	delete(b.listeners, owner)
	b.owners = lo.Without(b.owners, owner)
	b.mu.Unlock()

	b.tasks.stopOwner(owner)
}

func (b *Bot) Send(channelID, text string) error {
	if channelID == "" {
		channelID = b.channelID
	}
	return b.session.SendMessage(channelID, text)
}

func (b *Bot) ChannelID() string { return b.channelID }

func (b *Bot) BotName() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.name
}

// Commands — имена всех команд, включая встроенные, по алфавиту.
func (b *Bot) Commands() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := lo.Keys(b.commands)
	sort.Strings(names)
	return names
}

func (b *Bot) command(name string) (*extension.Command, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cmd, ok := b.commands[name]
	return cmd, ok
}

// listenersSnapshot — слушатели в порядке регистрации владельцев.
func (b *Bot) listenersSnapshot() []ownedListener {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []ownedListener
	for _, owner := range b.owners {
		for _, l := range b.listeners[owner] {
			out = append(out, ownedListener{owner: owner, fn: l})
		}
	}
	return out
}

type ownedListener struct {
	owner string
	fn    extension.Listener
}

func (b *Bot) runTask(ctx context.Context, owner, name string, fn extension.Task) {
	err := safely(func() error { return fn(ctx) })
	if err != nil {
		b.log.Error("task failed", "extension", owner, "task", name, "error", err)
	}
}

func safely(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}
