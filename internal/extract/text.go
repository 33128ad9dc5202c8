package extract

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"
)

// ErrNoText is returned when a document yields no extractable text
var ErrNoText = errors.New("no extractable text")

// Format is a supported input document format
type Format string

const (
	FormatPlain Format = "text"
	FormatHTML  Format = "html"
	FormatPDF   Format = "pdf"
	FormatDOCX  Format = "docx"
)

// DetectFormat picks a format from the file extension, falling back to the
// content type reported by a server.
func DetectFormat(name, contentType string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return FormatHTML
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	}

	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			switch mt {
			case "text/html", "application/xhtml+xml":
				return FormatHTML
			case "application/pdf":
				return FormatPDF
			case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
				return FormatDOCX
			}
		}
	}
	return FormatPlain
}

// Text converts raw document bytes to the plain text that gets tokenized.
// Plain text is returned unchanged so byte offsets point into the file.
func Text(format Format, raw []byte) ([]byte, error) {
	switch format {
	case FormatHTML:
		return VisibleText(raw)
	case FormatPDF:
		return PDFText(raw)
	case FormatDOCX:
		return DOCXText(raw)
	default:
		return raw, nil
	}
}
