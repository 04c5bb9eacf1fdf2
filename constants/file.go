package constants

import "strings"

// Document formats produced by the text extraction stage.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// Content types accepted for certificate uploads.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
)

// MaxUploadBytes is the default size cap for a single certificate (5 MiB).
const MaxUploadBytes = 5 << 20

// AllowedExtensions holds the file extensions accepted for certificate ingestion.
var AllowedExtensions = map[string]string{
	"pdf":  ContentTypePDF,
	"jpg":  ContentTypeJPEG,
	"jpeg": ContentTypeJPEG,
	"png":  ContentTypePNG,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ContentTypeForExt maps a file extension to its upload content type ("" if not allowed).
func ContentTypeForExt(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}

// NormalizeContentType strips parameters and casing, e.g. "Image/PNG; q=1" -> "image/png".
func NormalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "image/jpg" || ct == "image/pjpeg" {
		return ContentTypeJPEG
	}
	return ct
}

// FormatForContentType returns PDF, IMAGE or "" for unsupported types.
func FormatForContentType(ct string) string {
	switch NormalizeContentType(ct) {
	case ContentTypePDF:
		return PDF
	case ContentTypeJPEG, ContentTypePNG:
		return IMAGE
	default:
		return ""
	}
}

// IsAllowedContentType reports whether ct is one of the accepted upload types.
func IsAllowedContentType(ct string) bool {
	return FormatForContentType(ct) != ""
}
