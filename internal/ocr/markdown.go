package ocr

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// PageSeparator joins page markdowns in the combined document.
const PageSeparator = "\n\n"

// ImageRefs returns the destinations of all image links in markdown, in document
// order.
func ImageRefs(markdown string) []string {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var refs []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			refs = append(refs, string(img.Destination))
		}
		return ast.WalkContinue, nil
	})
	return refs
}

// BuildMarkdown decodes every embedded image and combines the page markdowns,
// rewriting each ![id](id) placeholder to the file the image will be saved as.
// Nothing is written to disk.
func BuildMarkdown(resp *Response, stem string) (string, []DecodedImage, error) {
	const op = "BuildMarkdown"

	used := make(map[string]bool)
	images := make([]DecodedImage, 0, resp.ImageCount())
	pages := make([]string, 0, len(resp.Pages))

	for _, page := range resp.Pages {
		md := page.Markdown
		pending := make(map[string]int, len(page.Images))
		for _, img := range page.Images {
			pending[img.ID]++
		}
		for _, img := range page.Images {
			data, mimeType, err := decodeImagePayload(img.ImageBase64)
			if err != nil {
				return "", nil, WrapOCRError(op, err, "image "+img.ID)
			}

			fileName := imageFileName(stem, img.ID, mimeType, page.Index, used)
			images = append(images, DecodedImage{
				ID:        img.ID,
				PageIndex: page.Index,
				FileName:  fileName,
				Data:      data,
			})

			// Images sharing an ID claim placeholders in order. The last one takes
			// any references left over.
			pending[img.ID]--
			n := 1
			if pending[img.ID] == 0 {
				n = -1
			}
			md = strings.Replace(md,
				"!["+img.ID+"]("+img.ID+")",
				"!["+img.ID+"]("+linkDestination(fileName)+")", n)
		}
		pages = append(pages, md)
	}

	return strings.Join(pages, PageSeparator), images, nil
}

// linkDestination wraps names that would otherwise end the link early.
func linkDestination(name string) string {
	if strings.ContainsAny(name, " ()<>") {
		return "<" + name + ">"
	}
	return name
}
