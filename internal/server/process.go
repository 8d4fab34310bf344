package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kwalker7631/kyo-qa-tool/constants"
	"github.com/kwalker7631/kyo-qa-tool/internal/common"
)

var reUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// secureFilename flattens an uploaded filename to a safe flat name with no
// directory segments.
func secureFilename(name string) string {
	base := filepath.Base(filepath.ToSlash(name))
	base = reUnsafe.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	return base
}

// handleProcess accepts a multipart upload: the Excel reference template
// under "excel" and one or more PDF/ZIP files under "pdfs[]". ZIPs are
// expanded immediately so a submission with no usable document is rejected
// up front; the surviving document list is handed to the launcher and the
// job id returned without waiting for processing.
func (s *Service) handleProcess(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_upload", Err: err})
		return
	}

	excel, excelHdr, err := r.FormFile("excel")
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_input",
			Err: errors.New("missing Excel template or PDF/ZIP files")})
		return
	}
	defer func() { _ = excel.Close() }()

	uploads := r.MultipartForm.File["pdfs[]"]
	if len(uploads) == 0 {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_input",
			Err: errors.New("missing Excel template or PDF/ZIP files")})
		return
	}

	workdir, err := os.MkdirTemp(s.workDir, "qa_tool_*")
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "workdir_failed", Err: err})
		return
	}
	logger.Info("process.workdir.created", "dir", workdir)

	if err := saveUpload(excel, excelHdr.Filename, workdir); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "save_failed", Err: err})
		return
	}

	var docPaths []string
	for _, hdr := range uploads {
		name := secureFilename(hdr.Filename)
		if name == "" {
			continue
		}
		path := filepath.Join(workdir, name)
		if err := saveUploadHeader(hdr, path); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "save_failed", Err: err})
			return
		}
		logger.Info("process.upload.saved", "file", name)

		switch {
		case constants.IsArchive(name):
			expanded, notes := s.resolver.Resolve(r.Context(), []string{path})
			for _, n := range notes {
				if n.Err {
					logger.Warn("process.zip.skipped", "file", name, "msg", n.Message)
				}
			}
			docPaths = append(docPaths, expanded...)
		case constants.IsDocument(name):
			docPaths = append(docPaths, path)
		}
	}

	if len(docPaths) == 0 {
		_ = os.RemoveAll(workdir)
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "no_documents",
			Err: errors.New("no PDF files found in the selection or ZIP archives")})
		return
	}

	jobID, err := s.launcher.Submit(r.Context(), docPaths)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "submit_failed", Err: err})
		return
	}
	s.setCurrentJob(jobID)
	logger.Info("process.job.started", "job_id", jobID, "files", len(docPaths))

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "started",
		"job_id": jobID.String(),
	})
}

func saveUpload(src multipart.File, filename, dir string) error {
	name := secureFilename(filename)
	if name == "" {
		return fmt.Errorf("unusable filename %q", filename)
	}
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func saveUploadHeader(hdr *multipart.FileHeader, path string) error {
	src, err := hdr.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}
