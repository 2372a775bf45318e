// Package middleware exposes HTTP guards that authenticate requests through goExpense.Engine.
//
// # Guards
//
//   - [RequireAuth] uses the engine's configured validation mode.
//   - [RequireJWTOnly] checks signature and expiry only, with no store round-trip.
//   - [RequireStrict] also requires the token's session to be active.
//
// Each guard reads the Authorization header, calls Engine.Validate, and stores the
// [goExpense.AuthResult] in the request context.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Access Redis.
//   - Tell the client why a token was rejected.
package middleware
