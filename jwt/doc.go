// Package jwt issues and decodes the signed access and refresh tokens used by the session engine.
//
// Decode reports failures as one of three sentinels (malformed, bad signature, expired) so callers
// can collapse them uniformly without string matching.
package jwt
