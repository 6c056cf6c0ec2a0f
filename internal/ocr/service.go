// Package ocr provides PDF OCR using the Mistral document OCR API.
//
// A PDF is uploaded to the Mistral file store, a short-lived signed URL is requested
// for it, and that URL is submitted to the OCR endpoint with inline images enabled.
// The response carries one markdown blob per page plus the page's embedded images
// as base64 payloads.
//
// Required Environment Variables:
//   - MISTRALAI_API_KEY: Mistral API key
//
// Mistral OCR Limitations:
//   - Maximum file size: 50MB
//   - Images are only returned when include_image_base64 is set
//
// Output:
//   - <stem>.json: the raw API response, re-indented
//   - <stem>.md: page markdowns joined in order, image links pointing at saved files
//   - <stem>_<image-id>: one file per embedded image
package ocr

import (
	"context"
	"io"
	"time"
)

// OCRService defines the interface for OCR services.
type OCRService interface {
	// ProcessPDF uploads the PDF under name and runs OCR on it.
	ProcessPDF(ctx context.Context, name string, pdfData io.Reader) (*OCRResult, error)
}

// OCRResult contains the parsed OCR response together with the raw body.
type OCRResult struct {
	// Response is the decoded API response.
	Response *Response

	// Raw is the response body exactly as received.
	Raw []byte

	// FileID is the ID of the uploaded document.
	FileID string

	// ProcessedAt is the timestamp when the OCR processing completed.
	ProcessedAt time.Time

	// ProcessingDuration is how long upload and OCR took together.
	ProcessingDuration time.Duration
}

// Response mirrors the body of the OCR endpoint.
type Response struct {
	Pages     []Page    `json:"pages"`
	Model     string    `json:"model"`
	UsageInfo UsageInfo `json:"usage_info"`
}

// UsageInfo reports what the API billed for.
type UsageInfo struct {
	PagesProcessed int  `json:"pages_processed"`
	DocSizeBytes   *int `json:"doc_size_bytes"`
}

// Page is a single OCR'd page.
type Page struct {
	Index      int         `json:"index"`
	Markdown   string      `json:"markdown"`
	Images     []Image     `json:"images"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
}

// Dimensions of the rendered page.
type Dimensions struct {
	DPI    int `json:"dpi"`
	Height int `json:"height"`
	Width  int `json:"width"`
}

// Image is an image embedded in a page. ImageBase64 is either raw base64 or a
// data URI.
type Image struct {
	ID           string `json:"id"`
	TopLeftX     int    `json:"top_left_x"`
	TopLeftY     int    `json:"top_left_y"`
	BottomRightX int    `json:"bottom_right_x"`
	BottomRightY int    `json:"bottom_right_y"`
	ImageBase64  string `json:"image_base64"`
}

// ImageCount returns the number of embedded images across all pages.
func (r *Response) ImageCount() int {
	n := 0
	for _, page := range r.Pages {
		n += len(page.Images)
	}
	return n
}
