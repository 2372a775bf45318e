// Package tokenstore keeps the authoritative validity state of refresh tokens.
//
// Each refresh token id maps to an [Entry] that is active, rotated, or revoked. Rotation is a
// compare-and-swap on the active status, so at most one of several concurrent rotations of the
// same token can succeed and the others observe [ErrTokenReuseDetected]. Entries are never moved
// back to active.
package tokenstore
