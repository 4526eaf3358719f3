package pdftext

import (
	"bytes"
	"fmt"

	layoutpdf "github.com/ledongthuc/pdf"
)

// extractLayout pulls text in reading order. The parser panics on some
// malformed documents, so the panic is converted into an error and the
// other engine gets its chance.
func extractLayout(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("layout parser panicked: %v", r)
		}
	}()

	reader, err := layoutpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	_, err = buf.ReadFrom(plain)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
