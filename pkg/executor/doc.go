// Package executor runs role-change notifications off the caller's
// goroutine.
//
// Pool is a fixed set of workers fed from a bounded queue. It satisfies the
// lifecycle.Executor interface:
//
//	pool := executor.NewPool(4, 64)
//	defer pool.Shutdown(5 * time.Second)
//
//	svc := lifecycle.NewService(listener, pool)
//
// Submit never blocks. A full queue or a pool that is shutting down rejects
// the task and the caller decides what to do with it.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package executor
