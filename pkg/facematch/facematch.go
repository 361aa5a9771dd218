// Package facematch compares a selfie against a reference document photo.
package facematch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/ikkim/fleetverify-backend/pkg/logger"
)

var ErrMissingAPIKey = errors.New("missing face match api key")

// Provider returns a similarity in [0,1].
type Provider interface {
	Name() string
	Compare(ctx context.Context, selfie, reference []byte) (float64, error)
}

type matchResult struct {
	Confidence   float64 `json:"confidence"`
	IsSamePerson string  `json:"isSamePerson"`
}

type verificationResponse struct {
	IDCard       matchResult `json:"idcard"`
	Selfie       matchResult `json:"selfie"`
	Total        matchResult `json:"total"`
	TimeProcess  float64     `json:"time_process"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// IAppClient calls the iApp face + ID card verification endpoint.
type IAppClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewIAppClient(apiKey, baseURL string, timeout time.Duration) *IAppClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &IAppClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *IAppClient) Name() string { return "iapp" }

func (c *IAppClient) Compare(ctx context.Context, selfie, reference []byte) (float64, error) {
	if c.apiKey == "" {
		return 0, ErrMissingAPIKey
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	// file0 = selfie, file1 = document photo
	if err := writePart(w, "file0", "selfie.jpg", selfie); err != nil {
		return 0, err
	}
	if err := writePart(w, "file1", "reference.jpg", reference); err != nil {
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error("Face match request failed", err, nil)
		return 0, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e verificationResponse
		if json.Unmarshal(body, &e) == nil && e.ErrorMessage != "" {
			return 0, fmt.Errorf("face match error (%d): %s", resp.StatusCode, e.ErrorMessage)
		}
		return 0, fmt.Errorf("face match http error (%d): %s", resp.StatusCode, string(body))
	}

	var out verificationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, err
	}
	if out.ErrorMessage != "" {
		return 0, errors.New(out.ErrorMessage)
	}

	score := Normalize(out.Total.Confidence)
	logger.Debug("Face match completed", map[string]interface{}{
		"score":          score,
		"is_same_person": out.Total.IsSamePerson,
		"time_process":   out.TimeProcess,
	})
	return score, nil
}

func writePart(w *multipart.Writer, field, filename string, data []byte) error {
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	_, err = fw.Write(data)
	return err
}

// Normalize maps a provider confidence onto [0,1]; values above 1 are read as percentages.
func Normalize(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		v = v / 100
	}
	if v > 1 {
		return 1
	}
	return v
}

// Static always returns the same score. Used when no provider is configured.
type Static struct {
	Score float64
}

func (s Static) Name() string { return "static:" + strconv.FormatFloat(s.Score, 'f', -1, 64) }

func (s Static) Compare(context.Context, []byte, []byte) (float64, error) {
	return Normalize(s.Score), nil
}
