package constants

import "strings"

// DocumentExt is the extension of documents the pipeline can process.
const DocumentExt = "pdf"

// ArchiveExt is the extension of bundles that expand into documents.
const ArchiveExt = "zip"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsDocument reports whether a path names a supported document type.
func IsDocument(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), "."+DocumentExt)
}

// IsArchive reports whether a path names a supported archive type.
func IsArchive(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), "."+ArchiveExt)
}
