package sandbox

import (
	"fmt"
	"iter"

	"github.com/aretw0/distsim/pkg/domain"
	lua "github.com/yuin/gopher-lua"
)

// handle returns the userdata standing for p. The same userdata is returned on every call
// so scripts can compare processes with ==.
func (s *luaState) handle(p Process) *lua.LUserData {
	if ud, ok := s.handles[p]; ok {
		return ud
	}
	ud := s.L.NewUserData()
	ud.Value = p
	s.L.SetMetatable(ud, s.L.GetTypeMetatable(processTypeName))
	s.handles[p] = ud
	return ud
}

func (s *luaState) checkProcess(L *lua.LState) Process {
	ud := L.CheckUserData(1)
	p, ok := ud.Value.(Process)
	if !ok {
		L.ArgError(1, "process expected")
	}
	return p
}

func (s *luaState) registerProcessType() {
	L := s.L
	s.methods = make(map[string]*lua.LFunction)
	for name, fn := range s.processMethods() {
		s.methods[name] = L.NewFunction(fn)
	}

	mt := L.NewTypeMetatable(processTypeName)
	L.SetField(mt, "__index", L.NewFunction(func(L *lua.LState) int {
		p := s.checkProcess(L)
		key := L.CheckString(2)
		if m, ok := s.methods[key]; ok {
			L.Push(m)
			return 1
		}
		L.Push(s.toLua(p.Get(key)))
		return 1
	}))
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		p := s.checkProcess(L)
		key := L.CheckString(2)
		if _, ok := s.methods[key]; ok {
			L.ArgError(2, fmt.Sprintf("%q is a process method", key))
		}
		v := L.CheckAny(3)
		if v == lua.LNil {
			p.Set(key, nil)
		} else {
			p.Set(key, v)
		}
		return 0
	}))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(s.checkProcess(L).String()))
		return 1
	}))
}

func (s *luaState) labels(seq iter.Seq[string]) *lua.LTable {
	t := s.L.NewTable()
	for label := range seq {
		t.Append(lua.LString(label))
	}
	return t
}

// each calls fn for every label. The calls are unprotected so errors abort the enclosing hook.
func (s *luaState) each(L *lua.LState, seq iter.Seq[string], fn *lua.LFunction) {
	for label := range seq {
		L.Push(fn)
		L.Push(lua.LString(label))
		L.Call(1, 0)
	}
}

// every reports whether fn holds for all labels, stopping at the first falsy result.
func (s *luaState) every(L *lua.LState, seq iter.Seq[string], fn *lua.LFunction) bool {
	for label := range seq {
		L.Push(fn)
		L.Push(lua.LString(label))
		L.Call(1, 1)
		ok := lua.LVAsBool(L.Get(-1))
		L.Pop(1)
		if !ok {
			return false
		}
	}
	return true
}

// outbound copies argument n for sending and aborts the hook if it cannot travel.
func (s *luaState) outbound(L *lua.LState, n int) lua.LValue {
	v, err := s.copyMessage(L.Get(n), make(map[*lua.LTable]*lua.LTable))
	if err != nil {
		s.raise(L, err)
	}
	return v
}

// inbound gives every receiver its own copy of a table payload.
func (s *luaState) inbound(msg any) lua.LValue {
	v := s.toLua(msg)
	if t, ok := v.(*lua.LTable); ok {
		if c, err := s.copyMessage(t, make(map[*lua.LTable]*lua.LTable)); err == nil {
			return c
		}
	}
	return v
}

// copyMessage deep-copies tables so a message never shares state with its sender.
// Processes, functions and coroutines are refused: each of them reaches back into the
// sender. Metatables are not copied.
func (s *luaState) copyMessage(v lua.LValue, seen map[*lua.LTable]*lua.LTable) (lua.LValue, error) {
	switch x := v.(type) {
	case *lua.LUserData:
		if p, ok := x.Value.(Process); ok {
			return nil, fmt.Errorf("%s: %w", p, domain.ErrProcessPayload)
		}
		return nil, fmt.Errorf("userdata: %w", domain.ErrProcessPayload)
	case *lua.LFunction:
		return nil, fmt.Errorf("function: %w", domain.ErrProcessPayload)
	case *lua.LState:
		return nil, fmt.Errorf("coroutine: %w", domain.ErrProcessPayload)
	case *lua.LTable:
		if c, ok := seen[x]; ok {
			return c, nil
		}
		c := s.L.NewTable()
		seen[x] = c
		var err error
		x.ForEach(func(k, val lua.LValue) {
			if err != nil {
				return
			}
			var ck, cv lua.LValue
			if ck, err = s.copyMessage(k, seen); err != nil {
				return
			}
			if cv, err = s.copyMessage(val, seen); err != nil {
				return
			}
			c.RawSet(ck, cv)
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return v, nil
	}
}

func (s *luaState) processMethods() map[string]lua.LGFunction {
	push := func(L *lua.LState, v lua.LValue) int {
		L.Push(v)
		return 1
	}
	check := func(L *lua.LState, err error) int {
		if err != nil {
			return s.raise(L, err)
		}
		return 0
	}

	return map[string]lua.LGFunction{
		"getID": func(L *lua.LState) int {
			return push(L, lua.LNumber(s.checkProcess(L).ID()))
		},
		"toString": func(L *lua.LState) int {
			return push(L, lua.LString(s.checkProcess(L).String()))
		},
		"getOutgoingChannels": func(L *lua.LState) int {
			return push(L, s.labels(s.checkProcess(L).OutgoingChannels()))
		},
		"getIncomingChannels": func(L *lua.LState) int {
			return push(L, s.labels(s.checkProcess(L).IncomingChannels()))
		},
		"forEachOutgoingChannel": func(L *lua.LState) int {
			p := s.checkProcess(L)
			s.each(L, p.OutgoingChannels(), L.CheckFunction(2))
			return 0
		},
		"forEachIncomingChannel": func(L *lua.LState) int {
			p := s.checkProcess(L)
			s.each(L, p.IncomingChannels(), L.CheckFunction(2))
			return 0
		},
		"everyOutgoingChannel": func(L *lua.LState) int {
			p := s.checkProcess(L)
			return push(L, lua.LBool(s.every(L, p.OutgoingChannels(), L.CheckFunction(2))))
		},
		"everyIncomingChannel": func(L *lua.LState) int {
			p := s.checkProcess(L)
			return push(L, lua.LBool(s.every(L, p.IncomingChannels(), L.CheckFunction(2))))
		},
		"getNumOutgoingChannels": func(L *lua.LState) int {
			return push(L, lua.LNumber(s.checkProcess(L).NumOutgoingChannels()))
		},
		"getNumIncomingChannels": func(L *lua.LState) int {
			return push(L, lua.LNumber(s.checkProcess(L).NumIncomingChannels()))
		},
		"send": func(L *lua.LState) int {
			p := s.checkProcess(L)
			return check(L, p.Send(L.CheckString(2), s.outbound(L, 3)))
		},
		"sendEachOutgoingChannel": func(L *lua.LState) int {
			p := s.checkProcess(L)
			return check(L, p.SendEachOutgoingChannel(s.outbound(L, 2)))
		},
		"sendEachOutgoingChannelExcept": func(L *lua.LState) int {
			p := s.checkProcess(L)
			return check(L, p.SendEachOutgoingChannelExcept(L.CheckString(2), s.outbound(L, 3)))
		},
		"sendEachOutgoingChannelExceptParent": func(L *lua.LState) int {
			p := s.checkProcess(L)
			return check(L, p.SendEachOutgoingChannelExceptParent(s.outbound(L, 2)))
		},
		"sendParent": func(L *lua.LState) int {
			p := s.checkProcess(L)
			return check(L, p.SendParent(s.outbound(L, 2)))
		},
		"setParentTo": func(L *lua.LState) int {
			p := s.checkProcess(L)
			switch v := L.CheckAny(2).(type) {
			case *lua.LUserData:
				if v.Value != p {
					L.ArgError(2, "a process can only name itself as parent")
				}
				p.SetParentSelf()
				return 0
			case lua.LString:
				return check(L, p.SetParent(string(v)))
			default:
				L.ArgError(2, "channel label or the process itself expected")
				return 0
			}
		},
		"getParent": func(L *lua.LState) int {
			p := s.checkProcess(L)
			parent := p.Parent()
			switch {
			case parent.Self:
				return push(L, s.handle(p))
			case parent.Channel != "":
				return push(L, lua.LString(parent.Channel))
			default:
				return push(L, lua.LNil)
			}
		},
		"hasParent": func(L *lua.LState) int {
			return push(L, lua.LBool(s.checkProcess(L).HasParent()))
		},
		"hasNoParent": func(L *lua.LState) int {
			return push(L, lua.LBool(!s.checkProcess(L).HasParent()))
		},
		"getDistanceTo": func(L *lua.LState) int {
			p := s.checkProcess(L)
			d, err := p.DistanceTo(L.CheckString(2))
			if err != nil {
				return s.raise(L, err)
			}
			return push(L, lua.LNumber(d))
		},
		"terminate": func(L *lua.LState) int {
			s.checkProcess(L).Terminate()
			return 0
		},
		"decide": func(L *lua.LState) int {
			s.checkProcess(L).Decide()
			return 0
		},
		"isTerminated": func(L *lua.LState) int {
			return push(L, lua.LBool(s.checkProcess(L).Terminated()))
		},
		"isDecided": func(L *lua.LState) int {
			return push(L, lua.LBool(s.checkProcess(L).Decided()))
		},
		"simulateBlockingProcess": func(L *lua.LState) int {
			s.checkProcess(L).SimulateBlockingProcess()
			return 0
		},
		"simulateNonblockingProcess": func(L *lua.LState) int {
			s.checkProcess(L).SimulateNonblockingProcess()
			return 0
		},
	}
}
