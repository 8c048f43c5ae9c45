package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/tini/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// pageBreak separates extracted pages. Three or more newlines is what the
// last plain-text splitter cuts on, so page boundaries become the fallback
// chapter boundaries.
const pageBreak = "\n\n\n\n"

// PDFParser extracts text from PDF files and segments it on the plain-text
// path. When the library cannot read the file and FallbackPdftotext is set,
// the pdftotext binary is tried.
type PDFParser struct {
	seg               *Segmenter
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	md := doctree.Metadata{Title: trimExt(filename)}
	pages, info, err := readPDF(data)
	if err != nil && p.FallbackPdftotext {
		p.seg.log.Warn("pdf library failed, trying pdftotext", "filename", filename, "error", err)
		pages, err = pdftotext(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	if info.Title != "" {
		md.Title = info.Title
	}
	md.Author = info.Author

	return &doctree.Book{
		Metadata: md,
		Chapters: p.seg.TextChapters(strings.Join(pages, pageBreak)),
	}, nil
}

// pdfInfo is the subset of the document information dictionary we keep.
type pdfInfo struct {
	Title  string
	Author string
}

func readPDF(data []byte) (pages []string, info pdfInfo, err error) {
	defer func() {
		// The library panics on some malformed cross-reference tables.
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, info, err
	}
	if d := reader.Trailer().Key("Info"); !d.IsNull() {
		info.Title = strings.TrimSpace(d.Key("Title").Text())
		info.Author = strings.TrimSpace(d.Key("Author").Text())
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	return pages, info, nil
}

// pdftotext shells out to poppler, which splits pages with form feeds.
func pdftotext(data []byte) ([]string, error) {
	tmp, err := os.CreateTemp("", "tini-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-layout", tmp.Name(), "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return strings.Split(string(out), "\f"), nil
}
