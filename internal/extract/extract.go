package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"docqa/internal/domain"
)

type extractFunc func(data []byte) (string, error)

// Extract converts raw bytes of the given format into text.
func Extract(data []byte, format Format) (string, error) {
	var fn extractFunc
	switch format {
	case FormatPDF:
		fn = extractPDF
	case FormatDOCX:
		fn = extractDOCX
	case FormatText:
		fn = extractText
	default:
		fn = extractUnsupported
	}
	return fn(data)
}

func extractPDF(data []byte) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: pdf: %v", domain.ErrExtraction, r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %w", domain.ErrExtraction, err)
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: pdf page %d: %w", domain.ErrExtraction, i, err)
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %w", domain.ErrExtraction, err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("%w: docx: %w", domain.ErrExtraction, err)
		}
		text, err := documentText(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: docx: %w", domain.ErrExtraction, err)
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: docx: missing word/document.xml", domain.ErrExtraction)
}

// documentText walks word/document.xml in order and keeps every w:t, however
// deeply it is nested (hyperlinks, tracked insertions, content controls).
// Deleted text lives in w:delText and is skipped. Each paragraph ends with a
// newline.
func documentText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		sb     strings.Builder
		inText bool
		props  int // depth inside w:pPr / w:rPr, whose w:tab children are tab stops
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr", "rPr":
				props++
			case "t":
				inText = props == 0
			case "tab":
				if props == 0 {
					sb.WriteByte('\t')
				}
			case "br", "cr":
				if props == 0 {
					sb.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "pPr", "rPr":
				props--
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
}

func extractText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: content is not valid UTF-8", domain.ErrExtraction)
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

func extractUnsupported(data []byte) (string, error) {
	text, err := extractText(data)
	if err != nil {
		return "", fmt.Errorf("unsupported document format: %w", err)
	}
	return text, nil
}
