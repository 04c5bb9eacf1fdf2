package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/vaccine-tracker/constants"
)

// AllowedExt checks if a file extension is one of the certificate formats.
func AllowedExt(ext string) bool {
	return constants.ContentTypeForExt(ext) != ""
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return base != "." && strings.HasPrefix(base, ".")
}

func allowedPath(path string) bool {
	return AllowedExt(filepath.Ext(path))
}
