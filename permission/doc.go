// Package permission maps permission names to bits of a 64-bit mask and roles
// to masks. The highest bit is reserved as the root bit: a mask carrying it
// passes every check.
//
// Registration happens once at startup. After Freeze both the registry and the
// role manager are read-only and safe for concurrent use.
//
// The package is pure in-memory data. It does no I/O and imports no other
// SafeHer package.
package permission
