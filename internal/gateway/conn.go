package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
)

// коды закрытия gateway, после которых переподключаться бессмысленно
const (
	closeAuthenticationFailed = 4004
	closeInvalidShard         = 4010
	closeShardingRequired     = 4011
	closeInvalidAPIVersion    = 4012
	closeInvalidIntents       = 4013
	closeDisallowedIntents    = 4014
)

// discordgo шлёт Disconnect при любом закрытии сокета: и при обрыве, и при
// нашем Disconnect, и при неудачном Open внутри реконнекта.
func (c *Client) handleDisconnect() {
	wasConnected := c.connected.Swap(false)
	if !wasConnected {
		return
	}
	if c.OnDisconnected != nil {
		c.OnDisconnected()
	}
	if c.closed.Load() {
		return
	}
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	go c.reconnectLoop()
}

// reconnectLoop — переподключение с backoff 1s..MaxBackoff. Временные ошибки
// повторяются без ограничения, фатальный код закрытия завершает клиента.
func (c *Client) reconnectLoop() {
	defer c.reconnecting.Store(false)

	ctx := c.ctx
	backoff := time.Second
	for !c.closed.Load() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if c.closed.Load() {
			return
		}

		err := c.open()
		if err == nil || errors.Is(err, discordgo.ErrWSAlreadyOpen) {
			c.connected.Store(true)
			c.log.Info("gateway reconnected")
			return
		}
		if isAuthFailure(err) || isFatal(err) {
			c.fail(&SessionError{Op: "reconnect", Err: err, Fatal: true})
			return
		}
		c.emitError(fmt.Errorf("reconnect failed (wait %v): %w", backoff, err))
		backoff = nextBackoff(backoff, c.opts.MaxBackoff)
	}
}

func isAuthFailure(err error) bool {
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code == closeAuthenticationFailed {
		return true
	}
	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode == http.StatusUnauthorized {
		return true
	}
	return false
}

func isFatal(err error) bool {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Code {
	case closeAuthenticationFailed, closeInvalidShard, closeShardingRequired,
		closeInvalidAPIVersion, closeInvalidIntents, closeDisallowedIntents:
		return true
	}
	return false
}

// routeLibraryLogs перенаправляет внутренний логгер discordgo в логгер "discord".
// discordgo.Logger — переменная пакета, поэтому настройка общая на процесс.
func routeLibraryLogs(log *slog.Logger) {
	discordgo.Logger = func(msgL, caller int, format string, a ...interface{}) {
		log.Log(context.Background(), libraryLevel(msgL), fmt.Sprintf(format, a...), "caller", caller)
	}
}

func libraryLevel(msgL int) slog.Level {
	switch msgL {
	case discordgo.LogError:
		return slog.LevelError
	case discordgo.LogWarning:
		return slog.LevelWarn
	case discordgo.LogInformational:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
