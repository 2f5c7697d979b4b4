package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

const DefaultCallTimeout = 10 * time.Second

var ErrNoSetup = errors.New("setup(bot) is not defined")

var (
	errStorageDisabled = errors.New("storage is not configured")
	errNoReply         = errors.New("reply is not available here")
)

type LuaOptions struct {
	// лимит на один вызов Lua (загрузка, setup, обработчик)
	Timeout time.Duration
	Logger  *slog.Logger
}

// OpenLua возвращает Opener для .lua файлов. Файл компилируется сразу,
// исполняется в Setup.
func OpenLua(opts LuaOptions) Opener {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultCallTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return func(name, path string) (Extension, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		chunk, err := parse.Parse(f, path)
		if err != nil {
			return nil, fmt.Errorf("syntax: %w", err)
		}
		proto, err := lua.Compile(chunk, path)
		if err != nil {
			return nil, fmt.Errorf("compile: %w", err)
		}
		return &luaExtension{
			name:    name,
			path:    path,
			proto:   proto,
			timeout: opts.Timeout,
			log:     opts.Logger.With("extension", name),
		}, nil
	}
}

type luaExtension struct {
	name    string
	path    string
	proto   *lua.FunctionProto
	timeout time.Duration
	log     *slog.Logger

	mu  sync.Mutex
	L   *lua.LState
	reg *Registrar
}

func (e *luaExtension) Name() string { return e.name }

func (e *luaExtension) Setup(ctx context.Context, reg *Registrar) error {
	e.mu.Lock()
	e.L = newSandbox()
	e.reg = reg
	e.log = reg.Logger()
	bot := e.registerAPI()
	chunk := e.L.NewFunctionFromProto(e.proto)
	e.mu.Unlock()

	if _, err := e.call(ctx, chunk, nil); err != nil {
		return err
	}

	e.mu.Lock()
	setup, ok := e.L.GetGlobal("setup").(*lua.LFunction)
	e.mu.Unlock()
	if !ok {
		return ErrNoSetup
	}
	_, err := e.call(ctx, setup, func() []lua.LValue { return []lua.LValue{bot} })
	return err
}

func (e *luaExtension) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.L != nil {
		e.L.Close()
		e.L = nil
	}
	return nil
}

func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	// только безопасные библиотеки
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring", "require", "module",
		"rawequal", "rawget", "rawset", "getmetatable", "setmetatable",
		"collectgarbage", "getfenv", "setfenv",
	} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// call выполняет fn под таймаутом. args строится под блокировкой VM.
func (e *luaExtension) call(ctx context.Context, fn *lua.LFunction, args func() []lua.LValue) (lua.LValue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.L == nil {
		return lua.LNil, errors.New("extension is closed")
	}
	var argv []lua.LValue
	if args != nil {
		argv = args()
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	e.L.SetContext(cctx)
	defer e.L.RemoveContext()

	err := e.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, argv...)
	if err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return lua.LNil, fmt.Errorf("timed out after %v", e.timeout)
		}
		return lua.LNil, luaError(err)
	}
	ret := e.L.Get(-1)
	e.L.Pop(1)
	return ret, nil
}

// luaError убирает стек из ошибки Lua, оставляя сообщение.
func luaError(err error) error {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return errors.New(apiErr.Object.String())
	}
	return err
}
