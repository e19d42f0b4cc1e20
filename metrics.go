package cache

// Metric names tracked with stats.Tracker, every metric is labeled with "name" of cache or fetcher.
const (
	MetricHit     = "cache_hit"
	MetricMiss    = "cache_miss"
	MetricExpired = "cache_expired"
	MetricWrite   = "cache_write"
	MetricDelete  = "cache_delete"
	MetricEvict   = "cache_evict"
	MetricItems   = "cache_items"
	MetricBytes   = "cache_bytes"

	MetricStorageFailed = "cache_storage_failed"

	MetricFetch    = "fetch_total"
	MetricFailed   = "fetch_failed"
	MetricNotFound = "fetch_not_found"
	MetricRejected = "fetch_rejected"
	MetricDropped  = "fetch_dropped"
)
