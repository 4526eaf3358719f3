package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	contentpdf "rsc.io/pdf"
)

// extractContent walks the content streams page by page, joining text
// runs that share a baseline into lines. It handles some documents the
// layout engine garbles, at the cost of cruder word spacing.
func extractContent(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content parser panicked: %v", r)
		}
	}()

	reader, err := contentpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		var lastY float64
		for _, run := range page.Content().Text {
			if buf.Len() > 0 {
				if run.Y != lastY {
					buf.WriteByte('\n')
				} else {
					buf.WriteByte(' ')
				}
			}
			buf.WriteString(run.S)
			lastY = run.Y
		}
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}
