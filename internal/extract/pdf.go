package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFText extracts the plain text of every page, one page per line block
func PDFText(raw []byte) ([]byte, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var buf bytes.Buffer
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		buf.WriteString(content)
		buf.WriteByte('\n')
	}
	if len(bytes.TrimSpace(buf.Bytes())) == 0 {
		return nil, ErrNoText
	}
	return buf.Bytes(), nil
}
