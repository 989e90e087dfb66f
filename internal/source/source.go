// Package source turns uploaded files into Markdown for the chunker.
package source

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Document is a loaded file: a title and its Markdown rendition.
type Document struct {
	Title    string
	Markdown string
}

// Loader converts raw file bytes into a Document.
type Loader interface {
	Load(r io.Reader, filename string) (Document, error)
}

// Options tune the loaders.
type Options struct {
	// PDFFallbackPdftotext shells out to pdftotext when the Go PDF reader fails.
	PDFFallbackPdftotext bool
	// MaxBytes caps text uploads read into memory (0 = unlimited).
	MaxBytes int64
}

// SupportedExtensions lists the file extensions a loader exists for.
var SupportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".html":     true,
	".htm":      true,
	".csv":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the loader for a filename's extension.
func ForFile(filename string, opts Options) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown", ".txt":
		return &TextLoader{MaxBytes: opts.MaxBytes}, nil
	case ".html", ".htm":
		return &HTMLLoader{}, nil
	case ".csv":
		return &CSVLoader{}, nil
	case ".pdf":
		return &PDFLoader{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXLoader{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Load picks the loader for filename and runs it.
func Load(r io.Reader, filename string, opts Options) (Document, error) {
	l, err := ForFile(filename, opts)
	if err != nil {
		return Document{}, err
	}
	return l.Load(r, filename)
}

// baseTitle is the file's base name without its extension.
func baseTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
