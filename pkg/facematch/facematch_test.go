package facematch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIAppClient_Compare(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		f, _, err := r.FormFile("file0")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "selfie-bytes", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total":{"confidence":92.5,"isSamePerson":"true"},"time_process":0.4}`))
	}))
	defer server.Close()

	client := NewIAppClient("secret", server.URL, 0)
	score, err := client.Compare(context.Background(), []byte("selfie-bytes"), []byte("ref-bytes"))
	require.NoError(t, err)
	assert.InDelta(t, 0.925, score, 1e-9)
}

func TestIAppClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_message":"face not found"}`))
	}))
	defer server.Close()

	_, err := NewIAppClient("secret", server.URL, 0).Compare(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "face not found")

	_, err = NewIAppClient("", server.URL, 0).Compare(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.87, 0.87},
		{87, 0.87},
		{-1, 0},
		{250, 1},
		{1, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Normalize(tt.in), 1e-9)
	}
}
