package docscan

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// maxPages caps how many PDF pages are sent to the vision model
const maxPages = 2

// rasterize turns an uploaded document into JPEG page images. PDFs go
// through mupdf; JPEG and PNG uploads pass through as a single page.
func rasterize(filename string, document []byte) ([][]byte, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png":
		return [][]byte{document}, nil
	case ".pdf":
		return rasterizePDF(document)
	default:
		return nil, fmt.Errorf("unsupported document type: %s", filepath.Ext(filename))
	}
}

func rasterizePDF(document []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(document)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages > maxPages {
		pages = maxPages
	}

	var images [][]byte
	for page := 0; page < pages; page++ {
		img, err := doc.Image(page)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", page, err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", page, err)
		}
		images = append(images, buf.Bytes())
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no pages rendered from PDF")
	}
	return images, nil
}
