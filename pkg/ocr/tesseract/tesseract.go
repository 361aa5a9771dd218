// Package tesseract runs the local tesseract binary as the fallback OCR provider.
package tesseract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ikkim/fleetverify-backend/pkg/ocr"
)

const Name = "tesseract"

// Runner executes the binary; replaced in tests.
type Runner func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

type Provider struct {
	binary string
	langs  string
	run    Runner
}

func New(binary, langs string) *Provider {
	return NewWithRunner(binary, langs, execRunner)
}

func NewWithRunner(binary, langs string, run Runner) *Provider {
	if binary == "" {
		binary = "tesseract"
	}
	if langs == "" {
		langs = "eng"
	}
	return &Provider{binary: binary, langs: langs, run: run}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Available(ctx context.Context) bool {
	_, err := p.run(ctx, nil, p.binary, "--version")
	return err == nil
}

// ExtractText reads the image from stdin and parses tesseract's TSV output.
func (p *Provider) ExtractText(ctx context.Context, image []byte, documentType string) (*ocr.RawResult, error) {
	out, err := p.run(ctx, image, p.binary, "stdin", "stdout", "-l", p.langs, "tsv")
	if err != nil {
		return nil, err
	}
	raw := ParseTSV(out)
	if strings.TrimSpace(raw.Text) == "" {
		raw.Success = false
		raw.Error = "no text detected"
	}
	return raw, nil
}

func (p *Provider) ConfidenceScore(raw *ocr.RawResult) float64 {
	if raw == nil {
		return 0
	}
	return ocr.MeanConfidence(raw.Confidences)
}

// ParseTSV rebuilds line text from word rows (level 5) and collects word confidences scaled to [0,1].
func ParseTSV(out []byte) *ocr.RawResult {
	raw := &ocr.RawResult{Success: true}

	var (
		lines   []string
		current []string
		lineKey string
	)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		cols := strings.Split(scanner.Text(), "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		word := strings.TrimSpace(cols[11])
		conf, err := strconv.ParseFloat(cols[10], 64)
		if word == "" || err != nil || conf < 0 {
			continue
		}

		key := cols[1] + "/" + cols[2] + "/" + cols[3] + "/" + cols[4]
		if key != lineKey && len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
			current = nil
		}
		lineKey = key
		current = append(current, word)
		raw.Confidences = append(raw.Confidences, conf/100)
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}

	raw.Text = strings.Join(lines, "\n")
	return raw
}
