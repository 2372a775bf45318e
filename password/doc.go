// Package password hashes and verifies user passwords with argon2id.
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so callers can rehash
// after a successful login. [Argon2.VerifyDummy] lets callers spend equal time on unknown
// accounts.
//
// The package never stores passwords and never logs them.
package password
