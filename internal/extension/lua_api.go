package extension

import (
	"context"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// registerAPI ставит глобалы log, print, storage и возвращает таблицу bot.
// Вызывается под e.mu.
func (e *luaExtension) registerAPI() *lua.LTable {
	L := e.L

	logFn := L.NewFunction(e.luaLog)
	L.SetGlobal("log", logFn)
	L.SetGlobal("print", logFn)

	storage := L.NewTable()
	storage.RawSetString("get", L.NewFunction(e.storageGet))
	storage.RawSetString("set", L.NewFunction(e.storageSet))
	storage.RawSetString("delete", L.NewFunction(e.storageDelete))
	L.SetGlobal("storage", storage)

	bot := L.NewTable()
	bot.RawSetString("name", lua.LString(e.reg.BotName()))
	bot.RawSetString("channel_id", lua.LString(e.reg.ChannelID()))
	bot.RawSetString("extension", lua.LString(e.name))
	bot.RawSetString("command", L.NewFunction(e.botCommand))
	bot.RawSetString("on", L.NewFunction(e.botOn))
	bot.RawSetString("every", L.NewFunction(e.botEvery))
	bot.RawSetString("send", L.NewFunction(e.botSend))
	return bot
}

func (e *luaExtension) luaLog(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	e.log.Info(strings.Join(parts, " "))
	return 0
}

// bot.command{name=..., description=..., usage=..., cooldown=sec, handler=fn}
func (e *luaExtension) botCommand(L *lua.LState) int {
	spec := L.CheckTable(1)

	cmd := Command{
		Name:        lua.LVAsString(spec.RawGetString("name")),
		Description: lua.LVAsString(spec.RawGetString("description")),
		Usage:       lua.LVAsString(spec.RawGetString("usage")),
		Cooldown:    seconds(lua.LVAsNumber(spec.RawGetString("cooldown"))),
	}
	if fn, ok := spec.RawGetString("handler").(*lua.LFunction); ok {
		cmd.Handler = e.handler(fn)
	}
	if err := e.reg.Command(cmd); err != nil {
		L.RaiseError("bot.command: %s", err.Error())
	}
	return 0
}

// bot.on("message", fn)
func (e *luaExtension) botOn(L *lua.LState) int {
	event := L.CheckString(1)
	fn := L.CheckFunction(2)
	if event != "message" {
		L.ArgError(1, "unsupported event "+event)
		return 0
	}
	e.reg.OnMessage(Listener(e.handler(fn)))
	return 0
}

// bot.every(name, seconds, fn)
func (e *luaExtension) botEvery(L *lua.LState) int {
	name := L.CheckString(1)
	interval := seconds(L.CheckNumber(2))
	fn := L.CheckFunction(3)

	err := e.reg.Every(name, interval, func(ctx context.Context) error {
		_, err := e.call(ctx, fn, nil)
		return err
	})
	if err != nil {
		L.RaiseError("bot.every: %s", err.Error())
	}
	return 0
}

// bot.send(channel_id, text) -> true | false, err
func (e *luaExtension) botSend(L *lua.LState) int {
	channel := L.OptString(1, "")
	text := L.CheckString(2)
	return pushResult(L, e.reg.Send(channel, text))
}

func (e *luaExtension) storageGet(L *lua.LState) int {
	key := L.CheckString(1)
	st := e.reg.Storage()
	if st == nil {
		L.Push(lua.LNil)
		return 1
	}
	v, ok, err := st.Get(luaContext(L), key)
	if err != nil || !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(v))
	return 1
}

func (e *luaExtension) storageSet(L *lua.LState) int {
	key := L.CheckString(1)
	value := L.CheckString(2)
	st := e.reg.Storage()
	if st == nil {
		return pushResult(L, errStorageDisabled)
	}
	return pushResult(L, st.Set(luaContext(L), key, value))
}

func (e *luaExtension) storageDelete(L *lua.LState) int {
	key := L.CheckString(1)
	st := e.reg.Storage()
	if st == nil {
		return pushResult(L, errStorageDisabled)
	}
	return pushResult(L, st.Delete(luaContext(L), key))
}

// handler оборачивает Lua-функцию в Handler. Возвращённая строка уходит ответом.
func (e *luaExtension) handler(fn *lua.LFunction) Handler {
	return func(ctx context.Context, inv *Invocation) error {
		ret, err := e.call(ctx, fn, func() []lua.LValue {
			return []lua.LValue{e.invocationTable(inv)}
		})
		if err != nil {
			return err
		}
		if s, ok := ret.(lua.LString); ok && s != "" && inv.Reply != nil {
			return inv.Reply(string(s))
		}
		return nil
	}
}

func (e *luaExtension) invocationTable(inv *Invocation) *lua.LTable {
	L := e.L
	t := L.NewTable()

	args := L.NewTable()
	for _, a := range inv.Args {
		args.Append(lua.LString(a))
	}
	opts := L.NewTable()
	for k, v := range inv.Options {
		opts.RawSetString(k, lua.LString(v))
	}

	t.RawSetString("args", args)
	t.RawSetString("options", opts)
	t.RawSetString("command", lua.LString(inv.Command))
	t.RawSetString("author", lua.LString(inv.AuthorName))
	t.RawSetString("author_id", lua.LString(inv.AuthorID))
	t.RawSetString("channel_id", lua.LString(inv.ChannelID))
	t.RawSetString("content", lua.LString(inv.Content))
	t.RawSetString("reply", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		if inv.Reply == nil {
			return pushResult(L, errNoReply)
		}
		return pushResult(L, inv.Reply(text))
	}))
	return t
}

func pushResult(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func luaContext(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func seconds(n lua.LNumber) time.Duration {
	return time.Duration(float64(n) * float64(time.Second))
}
