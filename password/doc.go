// Package password hashes account passwords with Argon2id.
//
// Hashes are stored in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes made with weaker parameters so the
// caller can re-hash on the next successful login.
//
// The package owns hashing and the length bounds only. It never stores
// passwords and never logs them.
package password
