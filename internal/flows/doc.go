// Package flows contains the orchestration behind every Engine operation.
//
// Each flow function (RunLogin, RunValidate, RunRefresh, RunLogout) takes a typed dependency
// struct and returns a result carrying either the payload or a classified failure. The root
// package maps failure kinds to public errors, metrics and audit events.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goExpense (import cycle).
//   - Perform I/O directly. All I/O goes through the dependency interfaces.
package flows
