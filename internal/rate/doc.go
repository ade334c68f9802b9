// Package rate implements the Redis fixed-window counters behind login
// throttling: INCR, then EXPIRE on the first hit of a window.
//
// Keys:
//   - <prefix>:login:e:<email>  failed logins per account identifier
//   - <prefix>:login:ip:<ip>    failed logins per client address
//
// Policy for other endpoints lives in internal/limiters.
package rate
