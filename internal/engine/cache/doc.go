// Package cache provides a TTL cache with read-through memoization and
// invalidation groups for the finance engine's remote reads.
//
// Key features:
//   - Pluggable storage media: in-memory, one JSON file per key, ristretto, or Redis
//   - Entries stored under a reserved prefix as {"payload","storedAt","ttl"} records
//   - Default TTL of 5 minutes; expired entries are purged lazily on read
//   - Storage faults are logged and degrade to cache misses, never errors
//   - Invalidation groups that evict every read derived from transactions,
//     goals or the profile
//
// WithCache is the read-through helper:
//
//	summary, err := cache.WithCache(ctx, c, cache.KeyFinancialSummary, engine.computeSummary)
//
// and mutation call sites hold an Invalidator:
//
//	inv.InvalidateGroup(ctx, cache.GroupTransaction)
//
// The cache does not version entries by default, so a slow read that finishes
// after an invalidation can repopulate its key with stale data. Build the
// Cache WithGenerationGuard to drop such results.
package cache
