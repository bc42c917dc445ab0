package extraction

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/propfolio/statement-pipeline/pkg/config"
)

// Runner lets tests stub the external OCR commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return out.Bytes(), errb.Bytes(), err
}

// OCREngine rasterizes PDF pages with pdftoppm and recognizes them with
// tesseract. It is the only adapter that can read scanned statements.
type OCREngine struct {
	cfg    config.OCRConfig
	runner Runner
}

// NewOCREngine creates the OCR adapter with the real exec runner.
func NewOCREngine(cfg config.OCRConfig) *OCREngine {
	return &OCREngine{cfg: cfg, runner: execRunner{}}
}

// NewOCREngineWithRunner creates the OCR adapter with a custom runner.
func NewOCREngineWithRunner(cfg config.OCRConfig, r Runner) *OCREngine {
	return &OCREngine{cfg: cfg, runner: r}
}

func (e *OCREngine) Kind() EngineKind { return EngineOCR }

func (e *OCREngine) Extract(ctx context.Context, raw []byte) (Attempt, error) {
	start := time.Now()

	tmpDir, err := os.MkdirTemp("", "stmtpipe-ocr-*")
	if err != nil {
		return failedAttempt(EngineOCR, start, err), nil
	}
	defer os.RemoveAll(tmpDir)

	src := filepath.Join(tmpDir, "doc.pdf")
	if err := os.WriteFile(src, raw, 0o600); err != nil {
		return failedAttempt(EngineOCR, start, err), nil
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png doc.pdf <tmp>/page
	_, errb, err := e.runner.Run(ctx, e.cfg.PdftoppmPath, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", src, prefix)
	if err != nil {
		return failedAttempt(EngineOCR, start, fmt.Errorf("pdftoppm: %v: %s", err, truncate(string(errb), 512))), nil
	}

	pages, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(pages)
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		pages = pages[:e.cfg.MaxPages]
	}
	if len(pages) == 0 {
		return failedAttempt(EngineOCR, start, fmt.Errorf("pdftoppm produced no images")), nil
	}

	var b strings.Builder
	recognized := 0
	for _, img := range pages {
		if err := ctx.Err(); err != nil {
			return failedAttempt(EngineOCR, start, err), nil
		}
		// tesseract <img> stdout --psm 6
		out, _, err := e.runner.Run(ctx, e.cfg.TesseractPath, img, "stdout", "--psm", "6")
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\f")
		}
		b.Write(out)
		recognized++
	}

	a := newAttempt(EngineOCR, start)
	a.RawText = b.String()
	a.PageCount = len(pages)
	if recognized == 0 || strings.TrimSpace(a.RawText) == "" {
		a.RawText = ""
		a.Err = "ocr produced no text"
		return a, nil
	}
	// OCR output is noisier than a native text layer; cap its self-confidence.
	a.Confidence = textConfidence(a.RawText) * 0.85
	return a, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
