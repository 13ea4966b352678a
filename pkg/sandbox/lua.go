package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/aretw0/distsim/pkg/domain"
	lua "github.com/yuin/gopher-lua"
)

const processTypeName = "process"

// luaState owns one interpreter. Hooks run one at a time; the engine serializes them.
type luaState struct {
	L       *lua.LState
	name    string
	logger  *slog.Logger
	rng     *rand.Rand
	timeout time.Duration

	methods map[string]*lua.LFunction
	handles map[Process]*lua.LUserData

	// pending carries a typed Go error across a Lua error raised by a process method.
	pending error
}

// Load evaluates an algorithm script in a restricted Lua interpreter and returns the
// Sandbox it registered. Any evaluation failure yields *domain.SandboxLoadError.
func Load(source string, opts ...Option) (*Sandbox, error) {
	o := defaultLoadOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &luaState{
		L:       lua.NewState(lua.Options{SkipOpenLibs: true}),
		name:    o.name,
		logger:  o.logger,
		rng:     rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15)),
		timeout: o.hookTimeout,
		handles: make(map[Process]*lua.LUserData),
	}
	fail := func(err error) (*Sandbox, error) {
		s.L.Close()
		return nil, &domain.SandboxLoadError{Name: o.name, Cause: err}
	}

	if err := s.openLibs(); err != nil {
		return fail(err)
	}
	s.registerProcessType()

	sb := &Sandbox{Name: o.name}
	reg := &Registrar{sb: sb}
	s.registerGlobals(reg)

	chunk, err := s.L.LoadString(source)
	if err != nil {
		return fail(err)
	}
	if err := s.call(chunk); err != nil {
		return fail(err)
	}
	if reg.err != nil {
		return fail(reg.err)
	}

	sb.export = s.export
	sb.closer = s.L.Close
	return sb, nil
}

func (s *luaState) openLibs() error {
	libs := []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	for _, lib := range libs {
		err := s.L.CallByParam(lua.P{Fn: s.L.NewFunction(lib.fn), NRet: 0, Protect: true}, lua.LString(lib.name))
		if err != nil {
			return fmt.Errorf("open %q: %w", lib.name, err)
		}
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.L.SetGlobal("print", s.L.NewFunction(s.print))
	if m, ok := s.L.GetGlobal("math").(*lua.LTable); ok {
		s.L.SetField(m, "random", s.L.NewFunction(s.random))
		s.L.SetField(m, "randomseed", s.L.NewFunction(func(L *lua.LState) int {
			s.rng = rand.New(rand.NewPCG(uint64(L.CheckNumber(1)), 0))
			return 0
		}))
	}
	return nil
}

func (s *luaState) registerGlobals(reg *Registrar) {
	L := s.L
	L.SetGlobal("onInitializationDo", L.NewFunction(func(L *lua.LState) int {
		fn := L.CheckFunction(1)
		reg.OnInitializationDo(func(p Process) error { return s.call(fn, s.handle(p)) })
		return 0
	}))
	L.SetGlobal("onInitiationDo", L.NewFunction(func(L *lua.LState) int {
		fn := L.CheckFunction(1)
		reg.OnInitiationDo(func(p Process) error { return s.call(fn, s.handle(p)) })
		return 0
	}))
	L.SetGlobal("onReceivingMessageDo", L.NewFunction(func(L *lua.LState) int {
		fn := L.CheckFunction(1)
		reg.OnReceivingMessageDo(func(p Process, msg any, channel string) error {
			return s.call(fn, s.handle(p), s.inbound(msg), lua.LString(channel))
		})
		return 0
	}))
	L.SetGlobal("randomizeTraversalTimes", L.NewFunction(func(L *lua.LState) int {
		reg.RandomizeTraversalTimes()
		return 0
	}))
	L.SetGlobal("randomizeProcessTimes", L.NewFunction(func(L *lua.LState) int {
		reg.RandomizeProcessTimes()
		return 0
	}))
	L.SetGlobal("addJitterToTraversalTimes", L.NewFunction(func(L *lua.LState) int {
		reg.AddJitterToTraversalTimes(float64(L.OptNumber(1, lua.LNumber(domain.DefaultJitter))))
		if reg.err != nil {
			L.ArgError(1, reg.err.Error())
		}
		return 0
	}))
}

// call runs fn as a top-level protected call under the hook timeout.
func (s *luaState) call(fn *lua.LFunction, args ...lua.LValue) error {
	s.pending = nil
	if s.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
	}
	err := s.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	pending := s.pending
	s.pending = nil
	if err == nil {
		return nil
	}
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		return err
	}
	msg := strings.TrimSpace(apiErr.Object.String())
	// A method error caught by pcall leaves pending behind; only the error that actually
	// aborted the hook counts.
	if pending != nil && strings.Contains(msg, pending.Error()) {
		return pending
	}
	return fmt.Errorf("lua: %s", msg)
}

// raise aborts the running hook with a typed error.
func (s *luaState) raise(L *lua.LState, err error) int {
	s.pending = err
	L.RaiseError("%s", err.Error())
	return 0
}

func (s *luaState) print(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, lua.LVAsString(L.ToStringMeta(L.Get(i))))
	}
	s.logger.Info(strings.Join(parts, "\t"), "sandbox", s.name)
	return 0
}

// random follows Lua 5.1: no argument draws from [0,1), one argument m from [1,m],
// two arguments from [m,n].
func (s *luaState) random(L *lua.LState) int {
	switch L.GetTop() {
	case 0:
		L.Push(lua.LNumber(s.rng.Float64()))
	case 1:
		m := int64(L.CheckNumber(1))
		if m < 1 {
			L.ArgError(1, "interval is empty")
		}
		L.Push(lua.LNumber(1 + s.rng.Int64N(m)))
	default:
		lo, hi := int64(L.CheckNumber(1)), int64(L.CheckNumber(2))
		if lo > hi {
			L.ArgError(2, "interval is empty")
		}
		L.Push(lua.LNumber(lo + s.rng.Int64N(hi-lo+1)))
	}
	return 1
}

// toLua converts a Go value into a Lua value. Values that came from Lua pass through.
func (s *luaState) toLua(v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return x
	case Process:
		return s.handle(x)
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case domain.VertexID:
		return lua.LNumber(x)
	case []any:
		t := s.L.NewTable()
		for _, e := range x {
			t.Append(s.toLua(e))
		}
		return t
	case map[string]any:
		t := s.L.NewTable()
		for k, e := range x {
			t.RawSetString(k, s.toLua(e))
		}
		return t
	case fmt.Stringer:
		return lua.LString(x.String())
	default:
		return lua.LString(fmt.Sprint(x))
	}
}

// export converts Lua values into plain Go data.
func (s *luaState) export(v any) any {
	lv, ok := v.(lua.LValue)
	if !ok {
		return v
	}
	return toGo(lv, make(map[*lua.LTable]bool))
}

func toGo(v lua.LValue, seen map[*lua.LTable]bool) any {
	switch x := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	case *lua.LUserData:
		if p, ok := x.Value.(Process); ok {
			return p.String()
		}
		return fmt.Sprint(x.Value)
	case *lua.LTable:
		if seen[x] {
			return "<cycle>"
		}
		seen[x] = true
		defer delete(seen, x)
		if n := x.MaxN(); n > 0 && n == countKeys(x) {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, toGo(x.RawGetInt(i), seen))
			}
			return out
		}
		out := make(map[string]any)
		x.ForEach(func(k, val lua.LValue) {
			out[lua.LVAsString(k)] = toGo(val, seen)
		})
		return out
	default:
		return v.String()
	}
}

func countKeys(t *lua.LTable) int {
	n := 0
	t.ForEach(func(lua.LValue, lua.LValue) { n++ })
	return n
}
