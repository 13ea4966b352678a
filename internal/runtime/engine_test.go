package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/distsim/internal/runtime"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_EchoOnPath(t *testing.T) {
	var sent []string
	hooks := domain.LifecycleHooks{
		OnMessageSent: func(_ context.Context, e *domain.MessageEvent) {
			sent = append(sent, e.From.Label()+"->"+e.To.Label())
		},
	}
	e := newEngine(pathTopology(t, 3), runtime.WithLifecycleHooks(hooks))
	require.NoError(t, e.Run(ctx, echo(t)))

	report, err := e.Settle(ctx, time.Minute)
	require.NoError(t, err)

	assert.True(t, report.Quiescent)
	assert.Equal(t, 16.0, report.Now)
	assert.Equal(t, 4, report.Delivered)
	assert.Equal(t, []string{"p0->p1", "p1->p2", "p2->p1", "p1->p0"}, sent)

	a, b, c := snapshotOf(t, e, 0), snapshotOf(t, e, 1), snapshotOf(t, e, 2)
	assert.Equal(t, domain.StatusTerminated, a.Status)
	assert.True(t, a.Parent.Self)
	assert.Equal(t, domain.Parent{Channel: "e0_1"}, b.Parent)
	assert.Equal(t, domain.Parent{Channel: "e1_2"}, c.Parent)
	assert.Equal(t, domain.StatusRunning, b.Status)
	assert.Equal(t, 2, b.Fields["received"])
}

func TestEngine_ChangRobertsOnDirectedRing(t *testing.T) {
	e := newEngine(ringTopology(t, 3))
	require.NoError(t, e.Run(ctx, changRoberts(t)))

	report, err := e.Settle(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, report.Quiescent)

	for _, s := range report.Processes {
		if s.ID == 2 {
			assert.True(t, s.Decided)
			assert.Equal(t, domain.StatusTerminated, s.Status)
			continue
		}
		assert.False(t, s.Decided, s.Label)
		assert.Equal(t, true, s.Fields["passive"], s.Label)
	}
}

func TestEngine_StatusLifecycle(t *testing.T) {
	r := newRecordingRenderer()
	e := newEngine(pathTopology(t, 3), runtime.WithRenderer(r))
	require.NoError(t, e.Run(ctx, echo(t)))

	assert.Equal(t, []domain.ProcessStatus{domain.StatusInitialized, domain.StatusRunning}, r.statuses[0])
	assert.Equal(t, []domain.ProcessStatus{domain.StatusInitialized}, r.statuses[2])

	_, err := e.Settle(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []domain.ProcessStatus{domain.StatusInitialized, domain.StatusRunning, domain.StatusTerminated}, r.statuses[0])
	assert.Equal(t, domain.Parent{Channel: "e1_2"}, r.parents[2])
	assert.Len(t, r.transits, 4)
}

func TestEngine_ResetCancelsDelivery(t *testing.T) {
	received := 0
	sb, err := sandbox.Define("ping", func(r *sandbox.Registrar) {
		r.OnInitiationDo(func(p sandbox.Process) error { return p.SendEachOutgoingChannel("ping") })
		r.OnReceivingMessageDo(func(p sandbox.Process, msg any, q string) error {
			received++
			return nil
		})
	})
	require.NoError(t, err)

	r := newRecordingRenderer()
	e := newEngine(pathTopology(t, 2), runtime.WithRenderer(r))
	require.NoError(t, e.Run(ctx, sb))
	require.Equal(t, 1, e.InFlight())

	e.Advance(ctx, 2*time.Second)
	e.Reset()
	e.Reset()
	e.Advance(ctx, time.Hour)

	assert.Zero(t, received)
	assert.Zero(t, e.InFlight())
	assert.Empty(t, e.RunID())
	assert.Equal(t, 2, r.resets)
	assert.Equal(t, domain.StatusCreated, snapshotOf(t, e, 1).Status)
}

func TestEngine_UnknownChannelErrorsOnlyThatProcess(t *testing.T) {
	var hookErrs []*domain.HookError
	hooks := domain.LifecycleHooks{
		OnHookError: func(_ context.Context, e *domain.HookErrorEvent) { hookErrs = append(hookErrs, e.Err) },
	}
	sb, err := sandbox.Define("bad", func(r *sandbox.Registrar) {
		r.OnInitiationDo(func(p sandbox.Process) error { return p.SendEachOutgoingChannel("go") })
		r.OnReceivingMessageDo(func(p sandbox.Process, msg any, q string) error {
			if p.ID() == 1 {
				return p.Send("e7_7", "lost")
			}
			p.Terminate()
			return nil
		})
	})
	require.NoError(t, err)

	topo := pathTopology(t, 3)
	require.NoError(t, topo.SetInitiator(1, true))
	e := newEngine(topo, runtime.WithLifecycleHooks(hooks))
	require.NoError(t, e.Run(ctx, sb))
	_, err = e.Settle(ctx, time.Minute)
	require.NoError(t, err)

	require.Len(t, hookErrs, 1)
	assert.Equal(t, domain.VertexID(1), hookErrs[0].VertexID)
	assert.Equal(t, domain.HookReceive, hookErrs[0].Hook)
	var unknown *domain.UnknownChannelError
	require.True(t, errors.As(hookErrs[0], &unknown))
	assert.Equal(t, "e7_7", unknown.Channel)

	b := snapshotOf(t, e, 1)
	assert.Equal(t, domain.StatusErrored, b.Status)
	assert.Contains(t, b.Error, "receive hook failed")

	// p0 and p2 still got p1's initial message and terminated on their own.
	assert.Equal(t, domain.StatusTerminated, snapshotOf(t, e, 0).Status)
	assert.Equal(t, domain.StatusTerminated, snapshotOf(t, e, 2).Status)

	p, ok := e.Process(1)
	require.True(t, ok)
	assert.ErrorIs(t, p.Err(), domain.ErrUnknownChannel)
}

func TestEngine_PanickingHookIsContained(t *testing.T) {
	sb, err := sandbox.Define("panics", func(r *sandbox.Registrar) {
		r.OnInitializationDo(func(p sandbox.Process) error {
			if p.ID() == 0 {
				panic("boom")
			}
			return nil
		})
	})
	require.NoError(t, err)

	e := newEngine(pathTopology(t, 2))
	require.NoError(t, e.Run(ctx, sb))

	a := snapshotOf(t, e, 0)
	assert.Equal(t, domain.StatusErrored, a.Status)
	assert.Contains(t, a.Error, "panic: boom")
	assert.Equal(t, domain.StatusInitialized, snapshotOf(t, e, 1).Status)
}

func TestEngine_DeliveryToTerminatedIsDropped(t *testing.T) {
	var dropped, delivered int
	hooks := domain.LifecycleHooks{
		OnMessageDropped:   func(context.Context, *domain.MessageEvent) { dropped++ },
		OnMessageDelivered: func(context.Context, *domain.MessageEvent) { delivered++ },
	}
	receives := 0
	sb, err := sandbox.Define("quitter", func(r *sandbox.Registrar) {
		r.OnInitializationDo(func(p sandbox.Process) error {
			if p.ID() == 1 {
				p.Terminate()
			}
			return nil
		})
		r.OnInitiationDo(func(p sandbox.Process) error { return p.SendEachOutgoingChannel("x") })
		r.OnReceivingMessageDo(func(sandbox.Process, any, string) error {
			receives++
			return nil
		})
	})
	require.NoError(t, err)

	e := newEngine(pathTopology(t, 2), runtime.WithLifecycleHooks(hooks))
	require.NoError(t, e.Run(ctx, sb))
	report, err := e.Settle(ctx, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 1, dropped)
	assert.Zero(t, delivered)
	assert.Zero(t, receives)
	assert.Zero(t, report.Delivered)
}

func TestEngine_TerminateAndDecideAreIdempotent(t *testing.T) {
	var events []domain.ProcessStatus
	hooks := domain.LifecycleHooks{
		OnProcessStatus: func(_ context.Context, e *domain.ProcessEvent) {
			if e.VertexID == 0 {
				events = append(events, e.Status)
			}
		},
	}
	sb, err := sandbox.Define("twice", func(r *sandbox.Registrar) {
		r.OnInitiationDo(func(p sandbox.Process) error {
			p.Decide()
			p.Decide()
			p.Terminate()
			return nil
		})
	})
	require.NoError(t, err)

	e := newEngine(pathTopology(t, 1), runtime.WithLifecycleHooks(hooks))
	require.NoError(t, e.Run(ctx, sb))

	assert.Equal(t, []domain.ProcessStatus{domain.StatusInitialized, domain.StatusRunning, domain.StatusTerminated}, events)
	assert.True(t, snapshotOf(t, e, 0).Decided)
}

func TestEngine_RemovingVertexCancelsItsDeliveries(t *testing.T) {
	received := 0
	sb, err := sandbox.Define("fanout", func(r *sandbox.Registrar) {
		r.OnInitiationDo(func(p sandbox.Process) error { return p.SendEachOutgoingChannel("x") })
		r.OnReceivingMessageDo(func(sandbox.Process, any, string) error {
			received++
			return nil
		})
	})
	require.NoError(t, err)

	topo := pathTopology(t, 3)
	require.NoError(t, topo.SetInitiator(0, false))
	require.NoError(t, topo.SetInitiator(1, true))
	e := newEngine(topo)
	require.NoError(t, e.Run(ctx, sb))
	require.Equal(t, 2, e.InFlight())

	require.True(t, topo.RemoveVertex(2))
	assert.Equal(t, 1, e.InFlight())

	_, err = e.Settle(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, received)
	assert.Len(t, e.Snapshot(), 2)
}

func TestEngine_RemovingChannelCancelsItsDeliveries(t *testing.T) {
	e := newEngine(pathTopology(t, 2))
	require.NoError(t, e.Run(ctx, echo(t)))
	require.Equal(t, 1, e.InFlight())

	removed, err := e.Topology().RemoveChannel(0, 1)
	require.NoError(t, err)
	require.True(t, removed)
	assert.Zero(t, e.InFlight())
}

func TestEngine_RunWithoutResetKeepsInFlightMessages(t *testing.T) {
	var got []string
	first, err := sandbox.Define("first", func(r *sandbox.Registrar) {
		r.OnInitiationDo(func(p sandbox.Process) error { return p.SendEachOutgoingChannel("old") })
	})
	require.NoError(t, err)
	second, err := sandbox.Define("second", func(r *sandbox.Registrar) {
		r.OnReceivingMessageDo(func(p sandbox.Process, msg any, q string) error {
			got = append(got, msg.(string))
			return nil
		})
	})
	require.NoError(t, err)

	e := newEngine(pathTopology(t, 2))
	require.NoError(t, e.Run(ctx, first))
	firstRun := e.RunID()

	require.NoError(t, e.Run(ctx, second))
	assert.NotEqual(t, firstRun, e.RunID())

	_, err = e.Settle(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, got)
}

func TestEngine_SettleHorizonOnEndlessAlgorithm(t *testing.T) {
	sb, err := sandbox.Define("ping-pong", func(r *sandbox.Registrar) {
		r.OnInitiationDo(func(p sandbox.Process) error { return p.SendEachOutgoingChannel("ball") })
		r.OnReceivingMessageDo(func(p sandbox.Process, msg any, q string) error {
			return p.Send(q, msg)
		})
	})
	require.NoError(t, err)

	e := newEngine(pathTopology(t, 2))
	require.NoError(t, e.Run(ctx, sb))

	report, err := e.Settle(ctx, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, report.Quiescent)
	assert.Equal(t, 30.0, report.Now)
	assert.Equal(t, 7, report.Delivered)
}

func TestEngine_SettleHonoursContext(t *testing.T) {
	e := newEngine(pathTopology(t, 2))
	require.NoError(t, e.Run(ctx, echo(t)))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := e.Settle(cancelled, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_MissingHooksAreSkipped(t *testing.T) {
	sb, err := sandbox.Define("empty", func(r *sandbox.Registrar) {})
	require.NoError(t, err)

	e := newEngine(pathTopology(t, 3))
	require.NoError(t, e.Run(ctx, sb))
	report, err := e.Settle(ctx, time.Minute)
	require.NoError(t, err)

	assert.True(t, report.Quiescent)
	assert.Equal(t, domain.StatusRunning, snapshotOf(t, e, 0).Status)
	assert.Equal(t, domain.StatusInitialized, snapshotOf(t, e, 1).Status)
}

func TestEngine_RunRejectsNilSandbox(t *testing.T) {
	e := newEngine(pathTopology(t, 1))
	assert.Error(t, e.Run(ctx, nil))
}

func TestEngine_InFlightMessages(t *testing.T) {
	e := newEngine(pathTopology(t, 3))
	require.NoError(t, e.Run(ctx, echo(t)))

	msgs := e.InFlightMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.InFlightMessage{
		From: 0, To: 1, Channel: "e0_1", Payload: "<wave>",
		SentAt: 0, ArriveAt: domain.DefaultTransit,
	}, msgs[0])
}

func TestEngine_ProcessPayloadIsRejected(t *testing.T) {
	sb, err := sandbox.Define("leak", func(r *sandbox.Registrar) {
		r.OnInitiationDo(func(p sandbox.Process) error {
			p.Set("secret", "p0-private")
			return p.SendEachOutgoingChannel(map[string]any{"owner": []any{p}})
		})
		r.OnReceivingMessageDo(func(p sandbox.Process, msg any, q string) error {
			p.Set("got", msg)
			return nil
		})
	})
	require.NoError(t, err)

	e := newEngine(pathTopology(t, 2))
	require.NoError(t, e.Run(ctx, sb))
	assert.Equal(t, 0, e.InFlight())

	a := snapshotOf(t, e, 0)
	assert.Equal(t, domain.StatusErrored, a.Status)
	assert.Contains(t, a.Error, domain.ErrProcessPayload.Error())
	assert.Nil(t, snapshotOf(t, e, 1).Fields["got"])
}

func TestEngine_LuaProcessPayloadIsRejected(t *testing.T) {
	sb, err := sandbox.Load(`
		onInitiationDo(function(p)
			p.secret = "p0-private"
			p:sendEachOutgoingChannel(p)
		end)
		onReceivingMessageDo(function(p, m, q)
			p.stolen = m.secret
			m.secret = "overwritten"
		end)
	`)
	require.NoError(t, err)
	t.Cleanup(sb.Close)

	e := newEngine(pathTopology(t, 2))
	require.NoError(t, e.Run(ctx, sb))
	_, err = e.Settle(ctx, time.Minute)
	require.NoError(t, err)

	a, b := snapshotOf(t, e, 0), snapshotOf(t, e, 1)
	assert.Equal(t, domain.StatusErrored, a.Status)
	assert.Equal(t, "p0-private", a.Fields["secret"])
	assert.Nil(t, b.Fields["stolen"])
	assert.Equal(t, 0, a.Sent)
}
