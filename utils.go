package pinvault

import (
	"mime"
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// StorageKeyPrefix namespaces every blob written by the vault.
const StorageKeyPrefix = "uploads/"

var (
	pinRegex       = regexp.MustCompile(`^[0-9]{4}$`)
	extensionRegex = regexp.MustCompile(`^\.[A-Za-z0-9]{1,16}$`)
)

// IsValidPIN reports whether s is exactly four ASCII decimal digits.
func IsValidPIN(s string) bool {
	return pinRegex.MatchString(s)
}

// NewStorageKey returns a fresh key of the form uploads/<uuid><ext>, where ext
// is the extension of filename. Extensions that are not short alphanumerics
// are dropped so keys stay URL-safe.
func NewStorageKey(filename string) string {
	ext := path.Ext(strings.ReplaceAll(filename, `\`, "/"))
	if !extensionRegex.MatchString(ext) {
		ext = ""
	}
	return StorageKeyPrefix + uuid.New().String() + strings.ToLower(ext)
}

// AttachmentDisposition builds a Content-Disposition value telling the browser
// to save the response as name.
func AttachmentDisposition(name string) string {
	for _, r := range name {
		if r >= utf8.RuneSelf || r < 0x20 || r == 0x7f {
			if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
				return v
			}
			return "attachment"
		}
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name)
	return `attachment; filename="` + escaped + `"`
}

// IsValidPath validates that a path string meets the requirements for a storage key.
// It checks that the path:
//   - is not empty, ".", or "/"
//   - is relative (does not start with "/")
//   - does not end with "/"
//   - does not contain ".." (path traversal)
//   - does not contain "//" (empty segments)
//   - does not contain invalid characters: \ ? # ~
//   - is valid UTF-8
//   - does not contain "." segments (/., /./, or ending with /.)
//   - does not contain null bytes, control characters (< 0x20), DEL (0x7f), or whitespace
//
// Returns true if the path is valid, false otherwise.
func IsValidPath(p string) bool {
	if p == "" || p == "/" || p == "." {
		return false
	}

	if p[0] == '/' {
		return false
	}

	if strings.HasSuffix(p, "/") {
		return false
	}

	if strings.Contains(p, "..") {
		return false
	}

	if strings.Contains(p, "//") {
		return false
	}

	if strings.ContainsAny(p, `\?#~`) {
		return false
	}

	if !utf8.ValidString(p) {
		return false
	}

	if strings.Contains(p, "/./") || strings.HasSuffix(p, "/.") || strings.HasPrefix(p, "./") {
		return false
	}

	for _, r := range p {
		if r == 0 || r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}
