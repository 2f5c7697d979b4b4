package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/EgorLis/cmdbot/internal/extension"
	"github.com/EgorLis/cmdbot/internal/gateway"
	"github.com/stretchr/testify/require"
)

func msg(content string) gateway.Message {
	return gateway.Message{ChannelID: "c1", AuthorID: "u1", AuthorName: "alice", Content: content}
}

func Test_SplitArgs(t *testing.T) {
	cases := map[string][]string{
		`ping`:                         {"ping"},
		`echo a  b`:                    {"echo", "a", "b"},
		`say "two words" x`:            {"say", "two words", "x"},
		`alarm add 1 msg="дом рейдят"`: {"alarm", "add", "1", "msg=дом рейдят"},
		`   `:                          nil,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			require.Equal(t, want, splitArgs(in))
		})
	}
}

func Test_ParseKV(t *testing.T) {
	got := parseKV([]string{"add", "Msg=hello world", "sound=none", "=x", "a=b=c"})

	require.Equal(t, map[string]string{"msg": "hello world", "sound": "none", "a": "b=c"}, got)
}

func Test_OnMessage_ShouldPassArgsAndOptions(t *testing.T) {
	req := require.New(t)

	// Given
	h := newHarness(t)
	var got *extension.Invocation
	req.NoError(h.bot.AddCommand(extension.Command{
		Name:  "alarm",
		Owner: "alarms",
		Handler: func(_ context.Context, inv *extension.Invocation) error {
			got = inv
			return nil
		},
	}))

	// When
	h.bot.onMessage(context.Background(), msg(`!ALARM add 7 msg="дом рейдят"`))

	// Then
	req.NotNil(got)
	req.Equal("alarm", got.Command)
	req.Equal([]string{"add", "7", "msg=дом рейдят"}, got.Args)
	req.Equal("дом рейдят", got.Options["msg"])
	req.Equal("alice", got.AuthorName)
	req.Len(got.ID, 36)
}

func Test_OnMessage_ShouldIgnoreBotsAndSelf(t *testing.T) {
	h := newHarness(t)
	called := false
	h.bot.AddListener("spy", func(context.Context, *extension.Invocation) error {
		called = true
		return nil
	})

	m := msg("!help")
	m.FromBot = true
	h.bot.onMessage(context.Background(), m)
	m.Self = true
	h.bot.onMessage(context.Background(), m)

	require.False(t, called)
	require.Empty(t, h.sent)
}

func Test_OnMessage_ShouldReplyToUnknownCommand(t *testing.T) {
	h := newHarness(t)

	h.bot.onMessage(context.Background(), msg("!nope"))

	require.Equal(t, "c1:unknown command !nope, try !help", h.nextSent(t))
}

func Test_OnMessage_ShouldFeedListenersWithEveryMessage(t *testing.T) {
	req := require.New(t)

	// Given
	h := newHarness(t)
	var seen []string
	h.bot.AddListener("first", func(_ context.Context, inv *extension.Invocation) error {
		seen = append(seen, "first:"+inv.Content)
		return nil
	})
	h.bot.AddListener("second", func(context.Context, *extension.Invocation) error {
		panic("listener bug")
	})
	h.bot.AddListener("first", func(context.Context, *extension.Invocation) error {
		return errors.New("ignored")
	})

	// When
	h.bot.onMessage(context.Background(), msg("hello there"))

	// Then
	req.Equal([]string{"first:hello there"}, seen)
	req.Empty(h.sent)
}

func Test_HandleCommand_ShouldEnforceCooldownPerUser(t *testing.T) {
	req := require.New(t)

	// Given
	h := newHarness(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h.bot.now = func() time.Time { return now }
	calls := 0
	req.NoError(h.bot.AddCommand(extension.Command{
		Name:     "roll",
		Owner:    "dice",
		Cooldown: 5 * time.Second,
		Handler: func(context.Context, *extension.Invocation) error {
			calls++
			return nil
		},
	}))

	// When
	h.bot.onMessage(context.Background(), msg("!roll"))
	now = now.Add(1200 * time.Millisecond)
	h.bot.onMessage(context.Background(), msg("!roll"))
	other := msg("!roll")
	other.AuthorID = "u2"
	h.bot.onMessage(context.Background(), other)
	now = now.Add(4 * time.Second)
	h.bot.onMessage(context.Background(), msg("!roll"))

	// Then
	req.Equal(3, calls)
	req.Equal("c1:!roll is on cooldown, wait 4s", h.nextSent(t))
	req.Empty(h.sent)
}

func Test_HandleCommand_ShouldReportFailureAndKeepCooldownFree(t *testing.T) {
	req := require.New(t)

	// Given
	h := newHarness(t)
	calls := 0
	req.NoError(h.bot.AddCommand(extension.Command{
		Name:     "flaky",
		Owner:    "flaky",
		Cooldown: time.Minute,
		Handler: func(context.Context, *extension.Invocation) error {
			calls++
			if calls == 1 {
				panic("first call explodes")
			}
			return nil
		},
	}))

	// When
	h.bot.onMessage(context.Background(), msg("!flaky"))
	failure := h.nextSent(t)
	h.bot.onMessage(context.Background(), msg("!flaky"))

	// Then
	req.Contains(failure, "c1:!flaky failed (ref ")
	req.Equal(2, calls)
	req.Empty(h.sent)
}

func Test_HandleCommand_ShouldAcceptShortInvocationID(t *testing.T) {
	req := require.New(t)

	// Given
	h := newHarness(t)
	req.NoError(h.bot.AddCommand(extension.Command{
		Name:    "oops",
		Owner:   "oops",
		Handler: func(context.Context, *extension.Invocation) error { return errors.New("bad") },
	}))
	var replies []string
	inv := &extension.Invocation{
		ID:      "42",
		Command: "oops",
		Reply:   func(s string) error { replies = append(replies, s); return nil },
	}

	// When
	h.bot.HandleCommand(context.Background(), inv)

	// Then
	req.Equal([]string{"!oops failed (ref 42)"}, replies)
}

func Test_Forget_ShouldKeepBuiltinsForNamelessOwner(t *testing.T) {
	h := newHarness(t)

	h.bot.Forget("")

	require.Equal(t, []string{"extensions", "help"}, h.bot.Commands())
}

func Test_AddCommand_ShouldRejectDuplicates(t *testing.T) {
	req := require.New(t)

	h := newHarness(t)
	noop := func(context.Context, *extension.Invocation) error { return nil }

	req.ErrorContains(h.bot.AddCommand(extension.Command{Name: "help", Owner: "x", Handler: noop}), "built-in")
	req.NoError(h.bot.AddCommand(extension.Command{Name: "ping", Owner: "a", Handler: noop}))
	req.ErrorContains(h.bot.AddCommand(extension.Command{Name: "ping", Owner: "b", Handler: noop}), `registered by a`)
}

func Test_Forget_ShouldDropEverythingOfOwner(t *testing.T) {
	req := require.New(t)

	// Given
	h := newHarness(t)
	noop := func(context.Context, *extension.Invocation) error { return nil }
	req.NoError(h.bot.AddCommand(extension.Command{Name: "ping", Owner: "a", Handler: noop}))
	req.NoError(h.bot.AddCommand(extension.Command{Name: "pong", Owner: "b", Handler: noop}))
	h.bot.AddListener("a", noop)
	req.NoError(h.bot.AddTask("a", "tick", time.Hour, func(context.Context) error { return nil }))

	// When
	h.bot.Forget("a")

	// Then
	req.Equal([]string{"extensions", "help", "pong"}, h.bot.Commands())
	req.Empty(h.bot.listenersSnapshot())
	req.Zero(h.bot.tasks.count())
}

func Test_Help_ShouldListCommands(t *testing.T) {
	req := require.New(t)

	// Given
	h := newHarness(t)
	req.NoError(h.bot.AddCommand(extension.Command{
		Name:        "ping",
		Owner:       "ping",
		Description: "check latency",
		Usage:       "!ping",
		Handler:     func(context.Context, *extension.Invocation) error { return nil },
	}))

	// When
	h.bot.onMessage(context.Background(), msg("!help"))
	list := h.nextSent(t)
	h.bot.onMessage(context.Background(), msg("!help ping"))
	one := h.nextSent(t)

	// Then
	req.Equal("c1:!extensions - show loaded and failed extensions\n!help - list commands\n!ping - check latency", list)
	req.Equal("c1:!ping\ncheck latency", one)
}

func Test_Extensions_ShouldShowReport(t *testing.T) {
	// Given
	h := newHarness(t)
	h.scanner.EXPECT().Report().Return(extension.Report{Entries: []extension.Entry{
		{Name: "alpha", Loaded: true},
		{Name: "bad", Err: errors.New("boom")},
		{Name: "gamma", Loaded: true},
	}}).Times(1)

	// When
	h.bot.onMessage(context.Background(), msg("!extensions"))

	// Then
	require.Equal(t, "c1:loaded (2): alpha, gamma\nfailed (1): bad", h.nextSent(t))
}

func Test_Send_ShouldDefaultToConfiguredChannel(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.bot.Send("", "hi"))
	require.Equal(t, "chan-1:hi", h.nextSent(t))
}

func Test_FormatWait(t *testing.T) {
	require.Equal(t, "1s", formatWait(10*time.Millisecond))
	require.Equal(t, "2s", formatWait(1200*time.Millisecond))
	require.Equal(t, "5s", formatWait(5*time.Second))
}
