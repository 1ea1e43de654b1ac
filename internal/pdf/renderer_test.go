package pdf

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fileNamePattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.pdf$`)

type recordingReporter struct {
	mu      sync.Mutex
	methods []string
}

func (r *recordingReporter) Log(method string, err error, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods = append(r.methods, method)
}

func TestGenerate_Success(t *testing.T) {
	var gotTemplate string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pdf/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotTemplate = body.Template

		w.WriteHeader(http.StatusOK)
		w.Write([]byte{0x25, 0x50, 0x44, 0x46})
	}))
	defer server.Close()

	reporter := &recordingReporter{}
	renderer := NewRenderer(server.URL+"/", reporter)

	doc, err := renderer.Generate(context.Background(), "A B")
	require.NoError(t, err)

	assert.Equal(t, "A B", gotTemplate)
	assert.Equal(t, []byte{0x25, 0x50, 0x44, 0x46}, doc.Content)
	assert.Regexp(t, fileNamePattern, doc.FileName)
	assert.Empty(t, reporter.methods)
}

func TestGenerate_UniqueFileNames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF"))
	}))
	defer server.Close()

	renderer := NewRenderer(server.URL, nil)

	first, err := renderer.Generate(context.Background(), "x")
	require.NoError(t, err)
	second, err := renderer.Generate(context.Background(), "x")
	require.NoError(t, err)

	assert.NotEqual(t, first.FileName, second.FileName)
}

func TestGenerate_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	reporter := &recordingReporter{}
	renderer := NewRenderer(server.URL, reporter)

	doc, err := renderer.Generate(context.Background(), "x")
	assert.Nil(t, doc)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "Bad Gateway", statusErr.Status)
	assert.Equal(t, []string{"generatePdf"}, reporter.methods)
}

func TestGenerate_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	reporter := &recordingReporter{}
	renderer := NewRenderer(url, reporter)

	doc, err := renderer.Generate(context.Background(), "x")
	assert.Nil(t, doc)
	assert.Error(t, err)
	assert.Equal(t, []string{"generatePdf"}, reporter.methods)
}
