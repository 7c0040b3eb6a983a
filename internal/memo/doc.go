// Package memo provides a process-lifetime, single-flight memoization cache.
//
// Cache.GetOrLoad runs the loader for a key at most once for the lifetime of the cache.
// Concurrent callers for the same key wait for the single in-flight load, and every caller,
// past or future, receives the identical stored result. Failures are memoized too: a key whose
// load failed keeps returning the same *LoadError. Entries are never evicted.
package memo
