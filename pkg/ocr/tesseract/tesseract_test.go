package tesseract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t600\t400\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t50\t20\t96\tLICENCE\n" +
	"5\t1\t1\t1\t1\t2\t70\t10\t30\t20\t90\tNO:\n" +
	"5\t1\t1\t1\t1\t3\t110\t10\t90\t20\t84\tLAG-AB1234\n" +
	"5\t1\t1\t1\t2\t1\t10\t40\t40\t20\t70\tDOB:\n" +
	"5\t1\t1\t1\t2\t2\t60\t40\t90\t20\t-1\t \n" +
	"5\t1\t1\t1\t2\t3\t60\t40\t90\t20\t80\t14/03/1990\n"

func TestParseTSV(t *testing.T) {
	raw := ParseTSV([]byte(sampleTSV))

	assert.True(t, raw.Success)
	assert.Equal(t, "LICENCE NO: LAG-AB1234\nDOB: 14/03/1990", raw.Text)
	assert.Equal(t, []float64{0.96, 0.90, 0.84, 0.70, 0.80}, raw.Confidences)
}

func TestProvider_ExtractText(t *testing.T) {
	var gotArgs []string
	p := NewWithRunner("", "", func(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		assert.Equal(t, []byte("png-bytes"), stdin)
		return []byte(sampleTSV), nil
	})

	raw, err := p.ExtractText(context.Background(), []byte("png-bytes"), "driver_license_scan")
	require.NoError(t, err)
	assert.Equal(t, []string{"tesseract", "stdin", "stdout", "-l", "eng", "tsv"}, gotArgs)
	assert.InDelta(t, 0.84, p.ConfidenceScore(raw), 1e-9)
}

func TestProvider_EmptyOutputIsUnsuccessful(t *testing.T) {
	p := NewWithRunner("tesseract", "eng", func(context.Context, []byte, string, ...string) ([]byte, error) {
		return []byte("level\tpage_num\n"), nil
	})

	raw, err := p.ExtractText(context.Background(), nil, "national_id")
	require.NoError(t, err)
	assert.False(t, raw.Success)
}

func TestProvider_Available(t *testing.T) {
	missing := NewWithRunner("tesseract", "eng", func(context.Context, []byte, string, ...string) ([]byte, error) {
		return nil, errors.New("executable file not found in $PATH")
	})
	assert.False(t, missing.Available(context.Background()))
}
