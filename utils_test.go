package pinvault_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/pinvault"
)

func TestIsValidPIN(t *testing.T) {
	tt := []struct {
		Name string
		PIN  string
		Want bool
	}{
		{Name: "four digits", PIN: "1234", Want: true},
		{Name: "leading zeros", PIN: "0007", Want: true},
		{Name: "empty", PIN: "", Want: false},
		{Name: "three digits", PIN: "123", Want: false},
		{Name: "five digits", PIN: "12345", Want: false},
		{Name: "letters", PIN: "12a4", Want: false},
		{Name: "trailing newline", PIN: "1234\n", Want: false},
		{Name: "leading space", PIN: " 123", Want: false},
		{Name: "arabic-indic digits", PIN: "١٢٣٤", Want: false},
		{Name: "negative", PIN: "-123", Want: false},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Want, pinvault.IsValidPIN(tc.PIN))
		})
	}
}

func TestNewStorageKey(t *testing.T) {
	tt := []struct {
		Name     string
		Filename string
		Ext      string
	}{
		{Name: "simple extension", Filename: "a.txt", Ext: ".txt"},
		{Name: "upper case extension lowered", Filename: "PHOTO.JPG", Ext: ".jpg"},
		{Name: "multiple dots keep last", Filename: "archive.tar.gz", Ext: ".gz"},
		{Name: "no extension", Filename: "README", Ext: ""},
		{Name: "extension with space dropped", Filename: "a.t xt", Ext: ""},
		{Name: "extension with slash ignored", Filename: `dir.d\file`, Ext: ""},
		{Name: "overlong extension dropped", Filename: "a." + strings.Repeat("x", 17), Ext: ""},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			key := pinvault.NewStorageKey(tc.Filename)

			require.True(t, strings.HasPrefix(key, pinvault.StorageKeyPrefix))
			rest := strings.TrimPrefix(key, pinvault.StorageKeyPrefix)
			require.True(t, strings.HasSuffix(rest, tc.Ext))

			_, err := uuid.Parse(strings.TrimSuffix(rest, tc.Ext))
			assert.NoError(t, err, "key body should be a uuid")
			assert.True(t, pinvault.IsValidPath(key))
		})
	}

	t.Run("keys are never reused", func(t *testing.T) {
		seen := make(map[string]struct{})
		for range 1000 {
			key := pinvault.NewStorageKey("a.txt")
			_, dup := seen[key]
			require.False(t, dup)
			seen[key] = struct{}{}
		}
	})
}

func TestAttachmentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename="b.txt"`, pinvault.AttachmentDisposition("b.txt"))
	assert.Equal(t, `attachment; filename="my file.pdf"`, pinvault.AttachmentDisposition("my file.pdf"))
	assert.Equal(t, `attachment; filename="say \"hi\".txt"`, pinvault.AttachmentDisposition(`say "hi".txt`))
	assert.Contains(t, pinvault.AttachmentDisposition("отчёт.pdf"), "filename*=utf-8''")
}

func TestIsValidPath(t *testing.T) {
	// Create a path with invalid UTF-8 (without embedding raw invalid bytes in source)
	invalidUTF8 := string([]byte{'u', 'p', 0xff, 'b'})

	tt := []struct {
		Name string
		Path string
		Want bool
	}{
		// Basics
		{Name: "root path", Path: "/", Want: false},
		{Name: "empty path", Path: "", Want: false},
		{Name: "leading slash", Path: "/uploads/a.txt", Want: false},
		{Name: "ends with slash", Path: "uploads/", Want: false},

		// Double dots anywhere are invalid
		{Name: "double dots segment", Path: "../", Want: false},
		{Name: "double dots in middle segment", Path: "uploads/../b", Want: false},
		{Name: "double dots in filename", Path: "uploads/b..c", Want: false},

		// Single dot segments are invalid
		{Name: "single dot segment", Path: "uploads/./b", Want: false},
		{Name: "single dot only", Path: ".", Want: false},

		// Double slashes invalid
		{Name: "double slash", Path: "uploads//b", Want: false},

		// Forbidden characters
		{Name: "contains space", Path: "uploads/a b.txt", Want: false},
		{Name: "contains backslash", Path: `uploads\a.txt`, Want: false},
		{Name: "contains hash", Path: "uploads/a#frag", Want: false},
		{Name: "contains question mark", Path: "uploads/a?x=1", Want: false},
		{Name: "contains tilde", Path: "uploads/~a", Want: false},
		{Name: "contains NUL", Path: "uploads/\x00a", Want: false},
		{Name: "contains DEL", Path: "uploads/\x7fa", Want: false},

		// UTF-8 validity
		{Name: "invalid utf8", Path: invalidUTF8, Want: false},

		// Valid examples
		{Name: "storage key", Path: "uploads/0b6b1b1e-2a53-4c4e-9a4f-3f7b7c0b7f8e.txt", Want: true},
		{Name: "hidden file valid", Path: ".hidden/file", Want: true},
		{Name: "unicode valid", Path: "привет/世界/file.ext", Want: true},
	}

	// sanity check for our generated invalid UTF-8 case
	if utf8.ValidString(invalidUTF8) {
		t.Fatalf("test setup error: invalidUTF8 is unexpectedly valid")
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Want, pinvault.IsValidPath(tc.Path), "path %q", tc.Path)
		})
	}
}
