package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EgorLis/cmdbot/internal/config"
	"github.com/EgorLis/cmdbot/internal/extension"
	"github.com/EgorLis/cmdbot/internal/gateway"
)

// ёмкость очереди событий цикла
const queueSize = 256

type Bot struct {
	session Session
	loader  Scanner
	log     *slog.Logger

	channelID string
	prefix    string

	events chan func(context.Context)
	done   chan struct{}

	state   atomic.Int32
	running atomic.Bool

	// трогаются только из цикла Run
	scanned bool
	selfID  string

	mu        sync.RWMutex
	name      string
	commands  map[string]*extension.Command
	listeners map[string][]extension.Listener
	owners    []string

	tasks     *scheduler
	cooldowns *cooldowns
	now       func() time.Time
}

func New(cfg *config.Config, session Session, loader Scanner, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	b := &Bot{
		session:   session,
		loader:    loader,
		log:       log,
		channelID: cfg.ChannelID,
		prefix:    cfg.Prefix,
		events:    make(chan func(context.Context), queueSize),
		done:      make(chan struct{}),
		commands:  map[string]*extension.Command{},
		listeners: map[string][]extension.Listener{},
		tasks:     newScheduler(),
		cooldowns: newCooldowns(),
		now:       time.Now,
	}
	if b.prefix == "" {
		b.prefix = "!"
	}
	b.addBuiltins()
	return b
}

func (b *Bot) State() State {
	return State(b.state.Load())
}

func (b *Bot) setState(s State) {
	prev := State(b.state.Swap(int32(s)))
	if prev != s {
		b.log.Debug("state", "from", prev, "to", s)
	}
}

// Run подключается и крутит цикл событий до отмены ctx (nil) или фатального
// обрыва сессии (ошибка). Вызывается один раз.
func (b *Bot) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return errors.New("bot is already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.session.Bind(gateway.Handlers{
		OnConnecting: func() {
			b.setState(StateHandshaking)
			b.log.Info("connecting to discord")
		},
		OnReady: func(r gateway.Ready) {
			b.enqueue(func(ctx context.Context) { b.onReady(ctx, r) })
		},
		OnResumed: func() {
			b.enqueue(b.onResumed)
		},
		OnMessage: func(m gateway.Message) {
			b.enqueue(func(ctx context.Context) { b.onMessage(ctx, m) })
		},
		OnDisconnected: func() {
			b.setState(StateDisconnected)
			b.log.Warn("session disconnected, reconnecting")
		},
		OnError: func(err error) {
			b.log.Warn("session error", "error", err)
		},
	})

	b.setState(StateNotConnected)
	if err := b.session.Connect(ctx); err != nil {
		b.setState(StateTerminated)
		close(b.done)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	defer b.shutdown()

	fatal := b.session.Fatal()
	for {
		select {
		case <-ctx.Done():
			b.log.Info("shutting down")
			return nil
		case err := <-fatal:
			b.log.Error("session lost", "error", err)
			return err
		case fn := <-b.events:
			fn(ctx)
		}
	}
}

func (b *Bot) shutdown() {
	close(b.done)
	b.tasks.stopAll()
	b.session.Disconnect()
	b.setState(StateTerminated)
}

// enqueue передаёт работу в цикл. После остановки работа отбрасывается.
func (b *Bot) enqueue(fn func(context.Context)) {
	select {
	case b.events <- fn:
	case <-b.done:
	}
}

func (b *Bot) onReady(ctx context.Context, r gateway.Ready) {
	b.setState(StateReady)
	b.selfID = r.UserID
	b.mu.Lock()
	b.name = r.Username
	b.mu.Unlock()
	b.log.Info(fmt.Sprintf("User: %s (ID: %s)", r.Username, r.UserID), "guilds", r.Guilds)

	if !b.scanned {
		b.scanned = true
		rep, err := b.loader.LoadAll(ctx, b)
		if err != nil {
			b.log.Error("extension scan", "error", err)
		}
		b.log.Info("extensions ready",
			"loaded", rep.Loaded(), "failed", rep.Failed(), "commands", len(b.Commands()))
	}
	b.setState(StateRunning)
}

// onResumed возвращает в RUNNING после обрыва. Расширения уже загружены,
// повторного скана нет.
func (b *Bot) onResumed(context.Context) {
	if !b.scanned {
		return
	}
	b.setState(StateRunning)
}

// Report — результат сканирования расширений.
func (b *Bot) Report() extension.Report {
	return b.loader.Report()
}
