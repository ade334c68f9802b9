// Package session keeps server-side login sessions in Redis.
//
// Each session is a hash under <prefix>:s:<id> with a TTL equal to the access
// token lifetime. A per-user set under <prefix>:u:<user id> indexes the
// session ids so every session of an account can be revoked at once.
//
// The package stores and deletes sessions. It does not parse tokens or make
// authorization decisions.
package session
