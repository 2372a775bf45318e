// Package rate implements the Redis-backed fixed-window counters behind login lockout and
// refresh throttling.
//
// # Window semantics
//
// A Lua script runs INCR and sets PEXPIRE on the first hit of a window. Key layout under the
// configured prefix:
//   - <prefix>:rl:login:<identifier>  failed logins per identifier
//   - <prefix>:rl:login-ip:<ip>       failed logins per client IP
//   - <prefix>:rl:refresh:<token id>  refresh attempts per refresh token
//
// A login check denies once MaxLoginAttempts failures have been recorded in the window.
package rate
