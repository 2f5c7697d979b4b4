package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/EgorLis/cmdbot/internal/extension"
	"github.com/EgorLis/cmdbot/internal/gateway"
	"github.com/google/uuid"
)

// сплит с поддержкой кавычек: msg="дом рейдят" или "два слова"
var reArg = regexp.MustCompile(`(\S+=)?"([^"]*)"|(\S+)`)

func (b *Bot) onMessage(ctx context.Context, m gateway.Message) {
	if m.Self || m.FromBot {
		return
	}
	text := strings.TrimSpace(m.Content)
	if text == "" {
		return
	}

	inv := &extension.Invocation{
		ID:         uuid.NewString(),
		AuthorID:   m.AuthorID,
		AuthorName: m.AuthorName,
		ChannelID:  m.ChannelID,
		Content:    text,
		Reply: func(s string) error {
			return b.session.SendMessage(m.ChannelID, s)
		},
	}

	for _, l := range b.listenersSnapshot() {
		if err := safely(func() error { return l.fn(ctx, inv) }); err != nil {
			b.log.Error("listener failed", "extension", l.owner, "invocation", inv.ID, "error", err)
		}
	}

	if !strings.HasPrefix(text, b.prefix) {
		return
	}
	fields := splitArgs(strings.TrimPrefix(text, b.prefix))
	if len(fields) == 0 {
		return
	}
	inv.Command = strings.ToLower(fields[0])
	inv.Args = fields[1:]
	inv.Options = parseKV(inv.Args)

	b.HandleCommand(ctx, inv)
}

// HandleCommand выполняет уже разобранную команду.
func (b *Bot) HandleCommand(ctx context.Context, inv *extension.Invocation) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	say := func(s string) {
		if inv.Reply == nil {
			return
		}
		if err := inv.Reply(s); err != nil {
			b.log.Warn("reply failed", "command", inv.Command, "error", err)
		}
	}

	cmd, ok := b.command(inv.Command)
	if !ok {
		say(fmt.Sprintf("unknown command %s%s, try %shelp", b.prefix, inv.Command, b.prefix))
		return
	}

	if cmd.Cooldown > 0 {
		now := b.now()
		if left := b.cooldowns.remaining(inv.AuthorID, cmd.Name, cmd.Cooldown, now); left > 0 {
			say(fmt.Sprintf("%s%s is on cooldown, wait %s", b.prefix, cmd.Name, formatWait(left)))
			return
		}
		b.cooldowns.touch(inv.AuthorID, cmd.Name, now)
	}

	log := b.log.With("command", cmd.Name, "invocation", inv.ID, "author", inv.AuthorName)
	if cmd.Owner != builtinOwner {
		log = log.With("extension", cmd.Owner)
	}
	log.Debug("command", "args", inv.Args)

	if err := safely(func() error { return cmd.Handler(ctx, inv) }); err != nil {
		log.Error("command failed", "error", err)
		// неудачный вызов не сжигает кулдаун
		b.cooldowns.clear(inv.AuthorID, cmd.Name)
		say(fmt.Sprintf("%s%s failed (ref %s)", b.prefix, cmd.Name, shortRef(inv.ID)))
	}
}

func shortRef(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func splitArgs(s string) []string {
	var out []string
	for _, m := range reArg.FindAllStringSubmatch(s, -1) {
		if m[3] != "" {
			out = append(out, m[3])
		} else {
			out = append(out, m[1]+m[2])
		}
	}
	return out
}

func parseKV(args []string) map[string]string {
	res := map[string]string{}
	for _, a := range args {
		kv := strings.SplitN(a, "=", 2)
		if len(kv) == 2 && kv[0] != "" {
			res[strings.ToLower(kv[0])] = kv[1]
		}
	}
	return res
}
