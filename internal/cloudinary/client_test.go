package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{
		"timestamp": "1700000000",
		"folder":    "reports",
		"api_key":   "key",
		"public_id": "",
	})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=reports&timestamp=1700000000secret")))
	assert.Equal(t, want, got)
}

func TestUploadRaw(t *testing.T) {
	var (
		gotPath  string
		gotForm  map[string]string
		gotBytes []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotForm = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotForm[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		gotBytes, _ = io.ReadAll(f)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"public_id":"rollcall/reports/r1.pdf","secure_url":"https://cdn.example/r1.pdf","resource_type":"raw","bytes":3}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "rollcall/reports")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.UploadRaw(context.Background(), []byte("pdf"), "r1.pdf", "r1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/r1.pdf", res.SecureURL)
	assert.Equal(t, "/demo/raw/upload", gotPath)
	assert.Equal(t, []byte("pdf"), gotBytes)
	assert.Equal(t, "rollcall/reports", gotForm["folder"])
	assert.Equal(t, "1700000000", gotForm["timestamp"])
	assert.Equal(t, c.sign(map[string]string{
		"folder":    "rollcall/reports",
		"public_id": "r1.pdf",
		"timestamp": "1700000000",
	}), gotForm["signature"])
}

func TestUploadRawError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err := c.UploadRaw(context.Background(), []byte("x"), "x.pdf", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
