// Package resource implements the Controller for shared limits.
//
// The Controller manages three resource types:
//
//   - Memory: buffered merge-insert sources and cached blobs (non-blocking, fail-fast)
//   - Workers: concurrent compaction rewrites
//   - IO: rate-limits compaction writes to avoid starving foreground writes
//
// # Memory Management
//
// TryAcquireMemory is non-blocking and returns ErrMemoryLimitExceeded if the
// limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB limit
//	})
//
//	if err := rc.TryAcquireMemory(n); err != nil {
//	    return err
//	}
//	defer rc.ReleaseMemory(n)
//
// # Workers and IO
//
//	if err := rc.AcquireWorker(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWorker()
//
//	w := resource.NewRateLimitedWriter(ctx, buf, rc)
//
// All methods handle a nil Controller gracefully: they become no-ops.
package resource
