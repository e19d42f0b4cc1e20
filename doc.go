// Package cache provides time-expiring caches and a fetcher that resolves keys
// from cache or remote source without redundant or concurrent remote calls.
//
// Features:
//
//   - Single time-to-live per cache instance, expired entries are removed on read.
//   - Optional byte bound with eviction of oldest entries.
//   - Optional background removal of expired entries.
//   - In-memory, sharded in-memory, SQL (SQLite, Postgres), go-cache and bool64/cache storages.
//   - At most one in-flight fetch per Fetcher or per key, concurrent requests are rejected, never queued.
//   - Fetch results are delivered asynchronously with a channel or an attached Receiver.
//   - Failed or empty fetches are never cached.
//   - Storage failures degrade to cache misses.
//   - Allows logging, stats collection.
//   - Propagates context to allow better control of backend and application components.
package cache
