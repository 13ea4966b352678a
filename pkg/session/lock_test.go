package session

import (
	"context"
	"fmt"
	"testing"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nil)
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		key := fmt.Sprintf("topology-%d", i)
		_ = mgr.WithLock(ctx, key, func(context.Context) error { return nil })
		_ = mgr.DeleteTopology(ctx, key)
	}

	// Reference counting must drop every entry once its last holder leaves
	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory", lockCount)
	}
}
