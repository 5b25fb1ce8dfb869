package scan

import (
	"path/filepath"
	"strings"
)

// imageExts is the fixed set of extensions treated as images.
// "ind" is a legacy alias kept for older vaults.
var imageExts = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".bmp":  {},
	".webp": {},
	".ind":  {},
}

var codeExts = map[string]struct{}{
	".rs":   {},
	".py":   {},
	".c":    {},
	".cpp":  {},
	".h":    {},
	".js":   {},
	".html": {},
	".css":  {},
	".sh":   {},
	".go":   {},
}

func extOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsImagePath reports whether the path has an image extension.
// Images are recorded as nodes but never content-scanned.
func IsImagePath(path string) bool {
	_, ok := imageExts[extOf(path)]
	return ok
}

// IsMarkdownPath reports whether the path looks like a markdown document.
func IsMarkdownPath(path string) bool {
	ext := extOf(path)
	return ext == ".md" || ext == ".markdown"
}

// IsCodePath reports whether the path looks like source code.
func IsCodePath(path string) bool {
	_, ok := codeExts[extOf(path)]
	return ok
}

// IsPDFPath reports whether the path is a PDF document.
func IsPDFPath(path string) bool {
	return extOf(path) == ".pdf"
}
