package ocr

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwalker7631/kyo-qa-tool/internal/common"
)

// stubRunner scripts the external tools. pdftoppm writes page images next to
// the requested prefix so the glob in the fallback path finds real files.
type stubRunner struct {
	pdftotextOut string
	pdftotextErr error
	stderr       string

	renderPages  int
	pdftoppmErr  error
	tesseractOut map[string]string // page image basename suffix -> text
	tesseractErr error

	calls []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	switch name {
	case "pdftotext":
		if s.pdftotextErr != nil {
			return nil, []byte(s.stderr), s.pdftotextErr
		}
		return []byte(s.pdftotextOut), nil, nil
	case "pdftoppm":
		if s.pdftoppmErr != nil {
			return nil, []byte(s.stderr), s.pdftoppmErr
		}
		prefix := args[len(args)-1]
		for i := 1; i <= s.renderPages; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o644); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		if s.tesseractErr != nil {
			return nil, nil, s.tesseractErr
		}
		img := args[0]
		for suffix, text := range s.tesseractOut {
			if len(img) >= len(suffix) && img[len(img)-len(suffix):] == suffix {
				return []byte(text), nil, nil
			}
		}
		return []byte(""), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected tool %q", name)
}

func newTestExtractor(runner Runner) *Extractor {
	e := NewExtractor(Config{}, nil)
	e.runner = runner
	return e
}

func TestEmbeddedTextPreferred(t *testing.T) {
	runner := &stubRunner{pdftotextOut: "QA-1042 approved\fsecond page"}
	e := newTestExtractor(runner)

	text, err := e.ExtractText(context.Background(), "manual.pdf")
	require.NoError(t, err)
	assert.Equal(t, "QA-1042 approved\fsecond page", text)
	assert.Equal(t, []string{"pdftotext"}, runner.calls, "no rasterization when embedded text exists")
}

func TestScannedDocumentFallsBackToOCR(t *testing.T) {
	runner := &stubRunner{
		pdftotextOut: "   \n\f  ", // whitespace only: no embedded text
		renderPages:  2,
		tesseractOut: map[string]string{
			"-1.png": "TASKalfa 3554ci",
			"-2.png": "QA-77 release",
		},
	}
	e := newTestExtractor(runner)

	text, err := e.ExtractText(context.Background(), "scan.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "TASKalfa 3554ci")
	assert.Contains(t, text, "QA-77 release")
	assert.Equal(t, []string{"pdftotext", "pdftoppm", "tesseract", "tesseract"}, runner.calls)
}

func TestEncryptedDocumentRoutedToReview(t *testing.T) {
	runner := &stubRunner{
		pdftotextErr: fmt.Errorf("exit status 1"),
		stderr:       "Error: Incorrect password",
	}
	e := newTestExtractor(runner)

	_, err := e.ExtractText(context.Background(), "locked.pdf")
	require.Error(t, err)
	assert.True(t, common.IsReview(err))
	assert.Contains(t, err.Error(), "password protected")
}

func TestNoTextAnywhereRoutedToReview(t *testing.T) {
	runner := &stubRunner{
		pdftotextOut: "",
		renderPages:  1,
		tesseractOut: map[string]string{"-1.png": "   "},
	}
	e := newTestExtractor(runner)

	_, err := e.ExtractText(context.Background(), "blank.pdf")
	require.Error(t, err)
	assert.True(t, common.IsReview(err))
	assert.Contains(t, err.Error(), "No text could be extracted")
}

func TestPdftotextHardFailureIsNotReview(t *testing.T) {
	runner := &stubRunner{
		pdftotextErr: fmt.Errorf("exit status 99"),
		stderr:       "Syntax Error: couldn't read xref table",
	}
	e := newTestExtractor(runner)

	_, err := e.ExtractText(context.Background(), "corrupt.pdf")
	require.Error(t, err)
	assert.False(t, common.IsReview(err), "corrupt documents are hard errors, not review items")
}

func TestUnreadablePageDoesNotFailDocument(t *testing.T) {
	calls := 0
	runner := &stubRunner{
		pdftotextOut: "",
		renderPages:  2,
	}
	// tesseract fails on the first page only
	e := newTestExtractor(runnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		if name == "tesseract" {
			calls++
			if calls == 1 {
				return nil, []byte("read_params_file error"), fmt.Errorf("exit status 1")
			}
			return []byte("ECOSYS M5526cdw"), nil, nil
		}
		return runner.Run(ctx, name, args...)
	}))

	text, err := e.ExtractText(context.Background(), "partial.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "ECOSYS M5526cdw")
}

func TestMaxPagesCapsRasterization(t *testing.T) {
	tess := 0
	base := &stubRunner{pdftotextOut: "", renderPages: 5}
	e := NewExtractor(Config{MaxPages: 2}, nil)
	e.runner = runnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		if name == "tesseract" {
			tess++
			return []byte("page text"), nil, nil
		}
		return base.Run(ctx, name, args...)
	})

	_, err := e.ExtractText(context.Background(), "long.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, tess)
}

// runnerFunc adapts a function to the Runner interface.
type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)

func (f runnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return f(ctx, name, args...)
}
