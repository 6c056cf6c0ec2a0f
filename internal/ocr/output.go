package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mistraltools/internal/logger"
)

// Output describes the files written for one OCR run.
type Output struct {
	JSONPath     string
	MarkdownPath string
	ImagePaths   []string

	// Markdown is the combined document as written to MarkdownPath.
	Markdown string

	// UnresolvedRefs lists local image links in the markdown with no saved file.
	UnresolvedRefs []string
}

// WriteOutputs writes <dir>/<stem>.json, <dir>/<stem>.md and one file per embedded
// image. Everything is decoded before the first write. If a write fails, the files
// already written are removed.
func WriteOutputs(result *OCRResult, dir, stem string) (*Output, error) {
	const op = "WriteOutputs"
	log := logger.WithComponent("ocr-output")

	if result == nil || result.Response == nil {
		return nil, WrapOCRError(op, ErrEmptyDocument, "no OCR result")
	}

	var jsonBuf bytes.Buffer
	if err := json.Indent(&jsonBuf, result.Raw, "", "    "); err != nil {
		return nil, WrapOCRError(op, err, "raw response is not valid JSON")
	}

	markdown, images, err := BuildMarkdown(result.Response, stem)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, WrapOCRError(op, err, "failed to create output directory")
	}

	out := &Output{
		JSONPath:     filepath.Join(dir, stem+".json"),
		MarkdownPath: filepath.Join(dir, stem+".md"),
		Markdown:     markdown,
	}

	var written []string
	write := func(path string, data []byte) error {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			for _, p := range written {
				_ = os.Remove(p)
			}
			return WrapOCRError(op, err, fmt.Sprintf("failed to write %s", path))
		}
		written = append(written, path)
		return nil
	}

	if err := write(out.JSONPath, jsonBuf.Bytes()); err != nil {
		return nil, err
	}
	log.Info().Str("path", out.JSONPath).Msg("OCR output saved")

	saved := make(map[string]bool, len(images))
	for _, img := range images {
		path := filepath.Join(dir, img.FileName)
		if err := write(path, img.Data); err != nil {
			return nil, err
		}
		saved[img.FileName] = true
		out.ImagePaths = append(out.ImagePaths, path)

		log.Debug().
			Str("image_id", img.ID).
			Int("page", img.PageIndex).
			Int("bytes", len(img.Data)).
			Str("path", path).
			Msg("Image saved")
	}

	if err := write(out.MarkdownPath, []byte(markdown)); err != nil {
		return nil, err
	}

	for _, ref := range ImageRefs(markdown) {
		if saved[ref] || isRemoteRef(ref) {
			continue
		}
		out.UnresolvedRefs = append(out.UnresolvedRefs, ref)
		log.Warn().Str("ref", ref).Msg("Markdown references an image that was not returned by the API")
	}

	log.Info().
		Str("path", out.MarkdownPath).
		Int("images", len(out.ImagePaths)).
		Msg("Markdown output saved")

	return out, nil
}

func isRemoteRef(ref string) bool {
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "data:")
}
