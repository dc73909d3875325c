package upload

import "strings"

// IsMarkdownName reports whether name ends in .md or .markdown.
func IsMarkdownName(name string) bool {
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".markdown")
}

// ValidateFile applies the client-side checks: extension first, then size.
func ValidateFile(f File) error {
	if !IsMarkdownName(f.Name) {
		return ErrUnsupportedExtension
	}
	if f.Size > MaxFileSize {
		return ErrFileTooLarge
	}
	return nil
}
