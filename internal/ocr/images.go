package ocr

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
)

// DecodedImage is an embedded image ready to be written to disk.
type DecodedImage struct {
	// ID is the image identifier used in the page markdown.
	ID string

	// PageIndex is the page the image came from.
	PageIndex int

	// FileName is the name the image is saved under, relative to the markdown file.
	FileName string

	// Data is the decoded binary image.
	Data []byte
}

var extensionsByMIME = map[string]string{
	"image/jpeg":    ".jpeg",
	"image/jpg":     ".jpeg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/tiff":    ".tiff",
	"image/bmp":     ".bmp",
	"image/svg+xml": ".svg",
}

// decodeImagePayload accepts either raw base64 or a data URI
// ("data:image/jpeg;base64,....") and returns the bytes and the MIME type, if known.
func decodeImagePayload(payload string) ([]byte, string, error) {
	var mimeType string

	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, "", fmt.Errorf("%w: malformed data URI", ErrInvalidImage)
		}
		meta := payload[len("data:"):comma]
		if !strings.HasSuffix(meta, ";base64") {
			return nil, "", fmt.Errorf("%w: data URI is not base64 encoded", ErrInvalidImage)
		}
		mimeType = strings.TrimSuffix(meta, ";base64")
		payload = payload[comma+1:]
	}

	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return data, mimeType, nil
}

// imageFileName derives the on-disk name for an image: <stem>_<id>, with an
// extension from the MIME type when the ID has none. Names already in used get the
// page index added.
func imageFileName(stem, id, mimeType string, pageIndex int, used map[string]bool) string {
	base := sanitizeName(id)
	if filepath.Ext(base) == "" {
		base += extensionsByMIME[strings.ToLower(mimeType)]
	}

	stem = strings.Map(replaceUnsafeRune, stem)
	name := stem + "_" + base
	if used[name] {
		name = fmt.Sprintf("%s_p%d_%s", stem, pageIndex, base)
	}
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s_p%d_%d_%s", stem, pageIndex, n, base)
	}
	used[name] = true
	return name
}

// replaceUnsafeRune maps characters that break file paths or markdown link
// destinations to '_'.
func replaceUnsafeRune(r rune) rune {
	switch r {
	case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
		return '_'
	}
	return r
}

func sanitizeName(id string) string {
	name := strings.Map(replaceUnsafeRune, id)
	name = strings.Trim(name, ". ")
	if name == "" {
		name = "image"
	}
	return name
}
