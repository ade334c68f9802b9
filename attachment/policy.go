package attachment

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// DefaultMaxBytes is the upload size cap when Policy.MaxBytes is zero.
const DefaultMaxBytes int64 = 10 << 20

// DefaultExtensions are the accepted file extensions, lower case and
// without the dot.
var DefaultExtensions = []string{"png", "jpg", "jpeg", "gif", "pdf", "doc", "docx", "mp4", "mov", "avi"}

var extensionTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
}

// Policy limits what may be uploaded.
type Policy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// Limit returns the effective size cap in bytes.
func (p Policy) Limit() int64 {
	if p.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return p.MaxBytes
}

func (p Policy) extensions() []string {
	if len(p.AllowedExtensions) == 0 {
		return DefaultExtensions
	}
	return p.AllowedExtensions
}

// Allowed reports whether name carries an accepted extension.
func (p Policy) Allowed(name string) bool {
	ext := Extension(name)
	if ext == "" {
		return false
	}
	for _, allowed := range p.extensions() {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

// TypeError is the client facing message for a rejected extension.
func (p Policy) TypeError() string {
	return "File type not allowed. Allowed types: " + strings.Join(p.extensions(), ", ")
}

// SizeError is the client facing message for an oversized upload.
func (p Policy) SizeError() string {
	return fmt.Sprintf("File too large. Maximum size: %.1fMB", float64(p.Limit())/(1024*1024))
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	ext := path.Ext(name)
	if len(ext) < 2 {
		return ""
	}
	return strings.ToLower(ext[1:])
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces a client supplied name to ASCII letters, digits,
// dots, dashes and underscores. Path separators become underscores and
// leading dots are dropped, so the result never escapes a directory. It may
// return an empty string.
func SecureFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return ' '
		case r > unicode.MaxASCII:
			return -1
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeNameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// StoredName prefixes a sanitised name with the UTC upload time,
// YYYYMMDD_HHMMSS_<name>.
func StoredName(secureName string, now time.Time) string {
	return now.UTC().Format("20060102_150405") + "_" + secureName
}

// validObjectName rejects anything that is not a plain sanitised file name.
func validObjectName(name string) bool {
	return name != "" && name == SecureFilename(name)
}
