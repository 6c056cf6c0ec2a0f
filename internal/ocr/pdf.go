package ocr

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"
)

// pdfMagic starts every PDF regardless of version.
var pdfMagic = []byte("%PDF-")

// PDFInfo is what a local parse of the document reveals before upload.
type PDFInfo struct {
	Pages int
}

// CheckPDFHeader fails with ErrInvalidPDF unless the file starts with the %PDF- magic.
func CheckPDFHeader(path string) error {
	const op = "CheckPDFHeader"

	f, err := os.Open(path)
	if err != nil {
		return WrapOCRError(op, err, "failed to open file")
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, pdfMagic) {
		return WrapOCRError(op, ErrInvalidPDF, "missing %PDF- header")
	}
	return nil
}

// InspectPDF parses the document locally and reports its page count. The parser
// only understands PDF 1.0 to 1.7 without AES-256 encryption, so callers treat a
// failure as a warning rather than proof the file is broken.
func InspectPDF(path string) (info PDFInfo, err error) {
	const op = "InspectPDF"

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = WrapOCRError(op, ErrInvalidPDF, fmt.Sprintf("parser panic: %v", r))
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return PDFInfo{}, WrapOCRError(op, ErrInvalidPDF, err.Error())
	}
	defer func() { _ = f.Close() }()

	pages := r.NumPage()
	if pages == 0 {
		return PDFInfo{}, WrapOCRError(op, ErrInvalidPDF, "document has no pages")
	}
	return PDFInfo{Pages: pages}, nil
}
