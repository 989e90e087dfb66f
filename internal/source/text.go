package source

import (
	"errors"
	"fmt"
	"io"
)

// ErrTooLarge is returned when a file exceeds the loader's byte limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// TextLoader passes Markdown and plain text through untouched; all
// normalization happens in the chunker's preprocessing stage.
type TextLoader struct {
	MaxBytes int64 // 0 means unlimited
}

func (l *TextLoader) Load(r io.Reader, filename string) (Document, error) {
	if l.MaxBytes > 0 {
		r = io.LimitReader(r, l.MaxBytes+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("read text: %w", err)
	}
	if l.MaxBytes > 0 && int64(len(b)) > l.MaxBytes {
		return Document{}, fmt.Errorf("%w (%d bytes)", ErrTooLarge, l.MaxBytes)
	}
	return Document{Title: baseTitle(filename), Markdown: string(b)}, nil
}
