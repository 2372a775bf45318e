// Package goExpense is the session engine of the expense tracker: signed access/refresh token
// pairs, a Redis-backed refresh-token registry with atomic rotation, and replay detection that
// revokes every session of a subject.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goExpense is the public surface. It exposes [Engine], [Builder], [Config] and value types
// ([TokenPair], [AuthResult], [MetricsSnapshot]). Flow orchestration and rate limiting live under
// internal/; token signing lives in jwt and the refresh-token registry in tokenstore.
//
// # What this package must NOT do
//
//   - Expose Redis clients or entry encoding in its public API.
//   - Perform I/O outside of Engine methods.
//   - Reveal to callers why a token was rejected. Every token failure is [ErrUnauthenticated].
//
// # Performance contract
//
// Authenticate in ModeJWTOnly makes no store round-trips. ModeStrict makes one Lookup.
// Refresh and Login make a bounded number of Redis script calls each.
package goExpense
