// Package identity derives stable document identities from source descriptors.
// The identity is a pure function of the descriptor, so re-ingesting the same
// URL, path or upload maps to the same document.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"strconv"
	"strings"

	"docqa/internal/domain"
)

// ForURL returns the hex MD5 of the URL string.
func ForURL(url string) string {
	return digest(url)
}

// ForPath treats a local path the same way as a URL.
func ForPath(path string) string {
	return digest(path)
}

// ForUpload returns the hex MD5 of filename followed by the decimal size.
// Two different uploads sharing a name and size collide.
func ForUpload(filename string, size int) string {
	return digest(filename + strconv.Itoa(size))
}

// UploadDescriptor is the human-readable descriptor stored for uploads.
func UploadDescriptor(filename string, size int) string {
	return filename + "_" + strconv.Itoa(size)
}

// Resolve returns the identity and descriptor for src. URL wins over Path,
// Path wins over uploaded Content.
func Resolve(src domain.Source) (id, descriptor string, ok bool) {
	switch {
	case strings.TrimSpace(src.URL) != "":
		return ForURL(src.URL), src.URL, true
	case strings.TrimSpace(src.Path) != "":
		return ForPath(src.Path), src.Path, true
	case src.Filename != "" && src.Content != nil:
		return ForUpload(src.Filename, len(src.Content)), UploadDescriptor(src.Filename, len(src.Content)), true
	}
	return "", "", false
}

// Title is the last path element of a descriptor, without any query string.
func Title(descriptor string) string {
	d := descriptor
	if i := strings.IndexAny(d, "?#"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimRight(d, "/")
	if d == "" {
		return descriptor
	}
	return filepath.Base(filepath.FromSlash(d))
}

func digest(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
