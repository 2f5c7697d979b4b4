package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
)

// лимит длины сообщения в Discord
const maxMessageLen = 2000

type Options struct {
	// попытки первичного подключения
	Attempts int
	Backoff  time.Duration
	// потолок backoff для первичного подключения и для реконнекта
	MaxBackoff       time.Duration
	HandshakeTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Attempts <= 0 {
		o.Attempts = 5
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 30 * time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 15 * time.Second
	}
	return o
}

type Client struct {
	s    *discordgo.Session
	log  *slog.Logger
	opts Options

	// подменяются в тестах
	open  func() error
	close func() error

	ctx          context.Context
	closed       atomic.Bool
	connected    atomic.Bool
	reconnecting atomic.Bool

	fatalOnce sync.Once
	fatal     chan error

	Handlers
}

// Handlers — колбэки событий сессии.
type Handlers struct {
	OnConnecting   func()
	OnReady        func(Ready)
	// сессия восстановлена после обрыва (RESUMED вместо READY)
	OnResumed      func()
	OnMessage      func(Message)
	OnDisconnected func()
	OnError        func(error)
}

// New создаёт сессию с запрошенными intents. Сеть не трогает.
func New(token string, intents discordgo.Intent, opts Options, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	opts = opts.withDefaults()

	s.Identify.Intents = intents
	// реконнектом управляем сами, см. handleDisconnect
	s.ShouldReconnectOnError = false
	s.LogLevel = discordgo.LogInformational
	s.Dialer = &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.HandshakeTimeout,
	}
	routeLibraryLogs(log)

	c := &Client{
		s:     s,
		log:   log,
		opts:  opts,
		open:  s.Open,
		close: s.Close,
		ctx:   context.Background(),
		fatal: make(chan error, 1),
	}

	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		if c.OnReady != nil {
			c.OnReady(readyFrom(r))
		}
	})
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
		c.log.Info("gateway session resumed")
		if c.OnResumed != nil {
			c.OnResumed()
		}
	})
	s.AddHandler(func(ds *discordgo.Session, m *discordgo.MessageCreate) {
		if c.OnMessage == nil {
			return
		}
		var selfID string
		if ds.State != nil && ds.State.User != nil {
			selfID = ds.State.User.ID
		}
		c.OnMessage(messageFrom(m, selfID))
	})
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		c.handleDisconnect()
	})

	return c, nil
}

// Bind заменяет все колбэки разом. Вызывать до Connect.
func (c *Client) Bind(h Handlers) {
	c.Handlers = h
}

// Connect открывает gateway. Ошибку аутентификации не повторяем, остальные —
// до Options.Attempts раз с удвоением паузы.
func (c *Client) Connect(ctx context.Context) error {
	c.ctx = ctx
	c.closed.Store(false)

	backoff := c.opts.Backoff
	var last error
	for attempt := 1; attempt <= c.opts.Attempts; attempt++ {
		if c.OnConnecting != nil {
			c.OnConnecting()
		}
		err := c.open()
		if err == nil || errors.Is(err, discordgo.ErrWSAlreadyOpen) {
			c.connected.Store(true)
			return nil
		}
		if isAuthFailure(err) {
			return &AuthenticationError{Err: err}
		}
		if isFatal(err) {
			return &SessionError{Op: "connect", Err: err, Fatal: true}
		}

		last = err
		c.emitError(fmt.Errorf("connect attempt %d/%d: %w", attempt, c.opts.Attempts, err))
		if attempt == c.opts.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, c.opts.MaxBackoff)
	}
	return &SessionError{Op: "connect", Err: last}
}

// Disconnect закрывает сессию, реконнекта после него не будет. Повторный вызов безопасен.
func (c *Client) Disconnect() {
	if c.closed.Swap(true) {
		return
	}
	c.connected.Store(false)
	if err := c.close(); err != nil && !errors.Is(err, discordgo.ErrWSNotFound) {
		c.log.Debug("close session", "error", err)
	}
}

// Fatal сигналит о неустранимом обрыве: после него клиент больше не переподключается.
func (c *Client) Fatal() <-chan error {
	return c.fatal
}

func (c *Client) IsConnected() bool {
	return c.connected.Load() && !c.closed.Load()
}

func (c *Client) SendMessage(channelID, text string) error {
	if channelID == "" {
		return errors.New("empty channel id")
	}
	if r := []rune(text); len(r) > maxMessageLen {
		text = string(r[:maxMessageLen-1]) + "…"
	}
	_, err := c.s.ChannelMessageSend(channelID, text)
	return err
}

// User — аккаунт бота, известен после READY.
func (c *Client) User() (id, name string) {
	if c.s.State == nil || c.s.State.User == nil {
		return "", ""
	}
	return c.s.State.User.ID, c.s.State.User.Username
}

func (c *Client) emitError(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}

func (c *Client) fail(err error) {
	c.fatalOnce.Do(func() {
		c.fatal <- err
	})
}

func nextBackoff(cur, limit time.Duration) time.Duration {
	cur *= 2
	if cur > limit {
		cur = limit
	}
	return cur
}
