// Package extract turns raw document bytes into flat text.
package extract

import (
	"net/url"
	"path"
	"strings"
)

// Format is the closed set of document formats the extractor understands.
type Format int

const (
	FormatUnsupported Format = iota
	FormatPDF
	FormatDOCX
	FormatText
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	case FormatText:
		return "txt"
	default:
		return "unknown"
	}
}

// Classify picks a format from the extension of a URL, path or filename.
// Only the path component of a URL is inspected, so query strings such as
// signed-blob tokens do not hide the extension.
func Classify(descriptor string) Format {
	p := descriptor
	if u, err := url.Parse(descriptor); err == nil && u.Scheme != "" && u.Host != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".pdf":
		return FormatPDF
	case ".docx", ".doc":
		return FormatDOCX
	case ".txt":
		return FormatText
	default:
		return FormatUnsupported
	}
}
