// Package archive expands submitted ZIP bundles into flat lists of document
// paths. Entries are extracted with sanitized filenames into a private
// scratch directory so a malicious archive cannot escape it.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kwalker7631/kyo-qa-tool/constants"
)

// Note is a human-readable resolution event the caller can append to a job
// log. Err marks archive failures.
type Note struct {
	Message string
	Err     bool
}

type Resolver struct {
	workDir string
	logger  *slog.Logger
}

// NewResolver creates a resolver that extracts archives under workDir
// (os.TempDir when empty).
func NewResolver(workDir string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{workDir: workDir, logger: logger}
}

// Resolve expands the submitted path list: archives become their contained
// documents, everything else passes through unchanged, in input order. A
// corrupt archive is reported as a note and skipped without affecting the
// remaining inputs.
func (r *Resolver) Resolve(ctx context.Context, paths []string) ([]string, []Note) {
	var docs []string
	var notes []Note
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			notes = append(notes, Note{Message: fmt.Sprintf("Resolution cancelled: %v", err), Err: true})
			return docs, notes
		}
		if !constants.IsArchive(path) {
			docs = append(docs, path)
			continue
		}
		extracted, err := r.expandZip(path)
		if err != nil {
			r.logger.Error("resolve.zip.failed", "path", path, "error", err)
			notes = append(notes, Note{
				Message: fmt.Sprintf("Failed to extract ZIP file %s: %v", filepath.Base(path), err),
				Err:     true,
			})
			continue
		}
		docs = append(docs, extracted...)
		notes = append(notes, Note{
			Message: fmt.Sprintf("Extracted %d files from %s.", len(extracted), filepath.Base(path)),
		})
	}
	return docs, notes
}

// expandZip extracts every document entry of the archive into a fresh
// scratch directory, flattening nested paths to their base name.
func (r *Resolver) expandZip(zipPath string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer func() {
		if err := zr.Close(); err != nil {
			r.logger.Warn("resolve.zip.close", "path", zipPath, "error", err)
		}
	}()

	scratch, err := os.MkdirTemp(r.workDir, "qa-zip-*")
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}

	var out []string
	for _, member := range zr.File {
		if member.FileInfo().IsDir() || !wantEntry(member.Name) {
			continue
		}
		name := sanitizeName(member.Name)
		if name == "" {
			continue
		}
		target := filepath.Join(scratch, name)
		if err := extractEntry(member, target); err != nil {
			r.logger.Warn("resolve.zip.entry.failed", "zip", zipPath, "entry", member.Name, "error", err)
			continue
		}
		out = append(out, target)
		r.logger.Debug("resolve.zip.entry", "zip", zipPath, "entry", name)
	}
	return out, nil
}

// wantEntry filters archive members to supported documents, skipping macOS
// resource junk.
func wantEntry(name string) bool {
	if strings.HasPrefix(name, "__MACOSX") {
		return false
	}
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return constants.IsDocument(name)
}

// sanitizeName flattens an archive entry name to a bare filename with no
// directory segments.
func sanitizeName(name string) string {
	base := filepath.Base(filepath.ToSlash(name))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return ""
	}
	return base
}

func extractEntry(member *zip.File, target string) error {
	src, err := member.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}
