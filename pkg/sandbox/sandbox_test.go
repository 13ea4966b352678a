package sandbox_test

import (
	"errors"
	"testing"

	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefine_LastWriteWins(t *testing.T) {
	var calls []string
	sb, err := sandbox.Define("echo", func(r *sandbox.Registrar) {
		r.OnInitiationDo(func(p sandbox.Process) error {
			calls = append(calls, "first")
			return nil
		})
		r.OnInitiationDo(func(p sandbox.Process) error {
			calls = append(calls, "second")
			return nil
		})
		r.AddJitterToTraversalTimes()
		r.AddJitterToTraversalTimes(0.5)
		r.RandomizeProcessTimes()
	})
	require.NoError(t, err)

	assert.Nil(t, sb.Initializer)
	assert.Nil(t, sb.Receiver)
	require.NotNil(t, sb.Initiator)
	require.NoError(t, sb.Initiator(newFake(0, nil, nil)))
	assert.Equal(t, []string{"second"}, calls)
	assert.Equal(t, 0.5, sb.TraversalJitter)
	assert.True(t, sb.ProcessTimesRandom)
	assert.False(t, sb.TraversalTimesRandom)
}

func TestDefine_DefaultJitter(t *testing.T) {
	sb, err := sandbox.Define("jitter", func(r *sandbox.Registrar) {
		r.AddJitterToTraversalTimes()
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultJitter, sb.TraversalJitter)
}

func TestDefine_Failures(t *testing.T) {
	tests := []struct {
		name string
		fn   func(r *sandbox.Registrar)
	}{
		{"jitter above one", func(r *sandbox.Registrar) { r.AddJitterToTraversalTimes(1.5) }},
		{"negative jitter", func(r *sandbox.Registrar) { r.AddJitterToTraversalTimes(-0.1) }},
		{"panic", func(r *sandbox.Registrar) { panic("boom") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb, err := sandbox.Define(tt.name, tt.fn)
			assert.Nil(t, sb)
			assert.ErrorIs(t, err, domain.ErrSandboxLoad)
			var loadErr *domain.SandboxLoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.name, loadErr.Name)
		})
	}
}

func TestClose_Idempotent(t *testing.T) {
	sb, err := sandbox.Define("empty", func(r *sandbox.Registrar) {})
	require.NoError(t, err)
	sb.Close()
	sb.Close()
}
