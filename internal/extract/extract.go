// Package extract turns uploaded document files into plain text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrReadFailure       = errors.New("document could not be read")
)

// convertedExts are handled through docconv; plain-text extensions are read
// directly.
var convertedExts = map[string]bool{
	".pdf":  true,
	".docx": true,
	".doc":  true,
	".odt":  true,
	".rtf":  true,
	".html": true,
	".htm":  true,
}

var plainExts = map[string]bool{
	".txt": true,
	".md":  true,
}

// Extractor reads document files from disk and returns their text content.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// SupportedExt reports whether files with the given extension can be
// extracted. The extension must include the leading dot.
func SupportedExt(ext string) bool {
	ext = strings.ToLower(ext)
	return convertedExts[ext] || plainExts[ext]
}

// Text extracts the plain text of the file at path. The format is decided by
// extension, matching how the upload endpoint accepts files.
func (e *Extractor) Text(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case convertedExts[ext]:
		res, err := docconv.ConvertPath(path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrReadFailure, err)
		}
		return strings.TrimSpace(res.Body), nil
	case plainExts[ext]:
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrReadFailure, err)
		}
		return strings.TrimSpace(string(content)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}
