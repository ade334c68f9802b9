package attachment

import (
	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many leading bytes are inspected.
const sniffLen = 512

const octetStream = "application/octet-stream"

// DetectContentType sniffs head and falls back to the extension of name
// when the bytes are not recognised.
func DetectContentType(head []byte, name string) string {
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if len(head) > 0 {
		mt := mimetype.Detect(head)
		if mt != nil && !mt.Is(octetStream) && !mt.Is("text/plain") {
			return mt.String()
		}
	}
	if ct, ok := extensionTypes[Extension(name)]; ok {
		return ct
	}
	return octetStream
}
