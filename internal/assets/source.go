package assets

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	_ "golang.org/x/image/webp"
)

// Decoder turns raw asset bytes into an image.
type Decoder interface {
	Decode(name string, data []byte) (image.Image, error)
}

// FileDecoder decodes raster formats registered with package image and
// rasterizes the first page of PDF documents.
type FileDecoder struct {
	DPI int
}

// Decode picks the decoder by file extension, falling back to content
// sniffing for raster formats.
func (d FileDecoder) Decode(name string, data []byte) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return d.decodePDF(data)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return img, nil
}

func (d FileDecoder) decodePDF(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	dpi := d.DPI
	if dpi <= 0 {
		dpi = 150
	}
	return doc.ImageDPI(0, float64(dpi))
}

// ReadFile loads an asset from disk, resolving relative paths against root.
func ReadFile(root, path string) ([]byte, error) {
	if !filepath.IsAbs(path) && root != "" {
		path = filepath.Join(root, path)
	}
	return os.ReadFile(path)
}
