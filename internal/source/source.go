package source

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/sync/errgroup"
)

// Source is an ordered collection of images.
type Source interface {
	Len() int
	Name(index int) string
	Load(index int) (image.Image, error)
	Close() error
}

type FitzPDFSource struct {
	doc  *fitz.Document
	path string
	dpi  int
}

func NewFitzPDFSource(path string, dpi int) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &FitzPDFSource{doc: doc, path: path, dpi: dpi}, nil
}

func (f *FitzPDFSource) Len() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) Name(index int) string {
	return fmt.Sprintf("%s#%d", f.path, index+1)
}

// Load renders one page. Each call opens its own document so pages can be
// rendered from several goroutines.
func (f *FitzPDFSource) Load(index int) (image.Image, error) {
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(index, float64(f.dpi))
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}

// Multi concatenates several sources.
type Multi []Source

func (m Multi) Len() int {
	n := 0
	for _, s := range m {
		n += s.Len()
	}
	return n
}

func (m Multi) locate(index int) (Source, int) {
	for _, s := range m {
		if index < s.Len() {
			return s, index
		}
		index -= s.Len()
	}
	return nil, -1
}

func (m Multi) Name(index int) string {
	s, i := m.locate(index)
	if s == nil {
		return ""
	}
	return s.Name(i)
}

func (m Multi) Load(index int) (image.Image, error) {
	s, i := m.locate(index)
	if s == nil {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	return s.Load(i)
}

func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LoadAll decodes every image of src with at most workers in parallel and
// returns them in source order.
func LoadAll(ctx context.Context, src Source, workers int) ([]image.Image, error) {
	n := src.Len()
	images := make([]image.Image, n)

	g, ctx := errgroup.WithContext(ctx)
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := src.Load(i)
			if err != nil {
				return fmt.Errorf("load %s: %w", src.Name(i), err)
			}
			images[i] = img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}
