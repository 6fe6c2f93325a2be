// Package source loads the ordered raw image buffers a lenticular set is
// built from. Order is significant: it defines the index progression of the
// effect, so directory sources sort by name and PDF sources follow page
// order.
package source

import (
	"bytes"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// Source yields 2-5 raw decodable image buffers in display order.
type Source interface {
	Count() int
	// Layer returns the raw bytes of layer index. The bytes must decode as
	// an image; the normalizer substitutes a placeholder if they do not.
	Layer(index int) ([]byte, error)
	Close() error
}

// FitzPDFSource treats each page of a PDF as one lenticular layer.
type FitzPDFSource struct {
	doc  *fitz.Document
	path string
	dpi  float64
}

func NewFitzPDFSource(path string, dpi float64) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &FitzPDFSource{doc: doc, path: path, dpi: dpi}, nil
}

func (f *FitzPDFSource) Count() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) Layer(index int) ([]byte, error) {
	// fitz documents are not safe for concurrent page rendering; open a
	// scoped document per call so callers may parallelize.
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()

	img, err := workerDoc.ImageDPI(index, f.dpi)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}
