// Package redisstore persists authentication records and recovery tokens
// in Redis.
//
// Records and tokens are stored as versioned binary values. Writes that
// must not clobber concurrent changes (record creation, username moves,
// token status changes) run under WATCH/MULTI and retry on contention.
// Recovery requests are kept in a per-user sorted set scored by request
// time, so counting requests inside a window is a single ZCOUNT.
//
// # What this package must NOT do
//
//   - Decide whether a token is valid; the engine does that.
//   - Log session keys, password hashes or token values.
package redisstore
