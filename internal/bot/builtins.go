package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/EgorLis/cmdbot/internal/extension"
	"github.com/samber/lo"
)

func (b *Bot) addBuiltins() {
	for _, cmd := range []extension.Command{
		{
			Name:        "help",
			Description: "list commands",
			Usage:       b.prefix + "help [command]",
			Handler:     b.cmdHelp,
		},
		{
			Name:        "extensions",
			Description: "show loaded and failed extensions",
			Usage:       b.prefix + "extensions",
			Handler:     b.cmdExtensions,
		},
	} {
		cmd.Owner = builtinOwner
		if err := b.AddCommand(cmd); err != nil {
			panic(err)
		}
	}
}

func (b *Bot) cmdHelp(_ context.Context, inv *extension.Invocation) error {
	if len(inv.Args) > 0 {
		name := strings.ToLower(strings.TrimPrefix(inv.Args[0], b.prefix))
		cmd, ok := b.command(name)
		if !ok {
			return inv.Reply(fmt.Sprintf("no such command: %s", name))
		}
		usage := cmd.Usage
		if usage == "" {
			usage = b.prefix + cmd.Name
		}
		return inv.Reply(fmt.Sprintf("%s\n%s", usage, cmd.Description))
	}

	lines := lo.FilterMap(b.Commands(), func(name string, _ int) (string, bool) {
		cmd, ok := b.command(name)
		if !ok {
			return "", false
		}
		if cmd.Description == "" {
			return b.prefix + name, true
		}
		return fmt.Sprintf("%s%s - %s", b.prefix, name, cmd.Description), true
	})
	return inv.Reply(strings.Join(lines, "\n"))
}

func (b *Bot) cmdExtensions(_ context.Context, inv *extension.Invocation) error {
	rep := b.loader.Report()
	if len(rep.Entries) == 0 {
		return inv.Reply("no extensions loaded")
	}

	loaded := lo.FilterMap(rep.Entries, func(e extension.Entry, _ int) (string, bool) {
		return e.Name, e.Loaded
	})
	failed := lo.FilterMap(rep.Entries, func(e extension.Entry, _ int) (string, bool) {
		return e.Name, !e.Loaded
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "loaded (%d): %s", len(loaded), strings.Join(loaded, ", "))
	if len(failed) > 0 {
		fmt.Fprintf(&sb, "\nfailed (%d): %s", len(failed), strings.Join(failed, ", "))
	}
	return inv.Reply(sb.String())
}
