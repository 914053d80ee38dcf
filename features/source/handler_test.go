package source_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ragseed/features/source"
	"ragseed/internal/seed"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		CorrelationID string `json:"correlationId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CorrelationID)
	return resp.Error.Code, resp.Error.Message
}

func TestHandler_Create(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)
		h := source.NewHandler(source.NewService(repo, t.TempDir()), 0)

		req := httptest.NewRequest("POST", "/sources", strings.NewReader(`{"url":"https://example.com"}`))
		w := httptest.NewRecorder()
		h.Create(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"path":"https://example.com"`)
		assert.Contains(t, w.Body.String(), `"type":"url"`)
	})

	t.Run("Invalid URL", func(t *testing.T) {
		h := source.NewHandler(source.NewService(new(MockRepo), t.TempDir()), 0)

		req := httptest.NewRequest("POST", "/sources", strings.NewReader(`{"url":"example.com"}`))
		w := httptest.NewRecorder()
		h.Create(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		code, _ := decodeError(t, w)
		assert.Equal(t, "VALIDATION_ERROR", code)
	})

	t.Run("Bad JSON", func(t *testing.T) {
		h := source.NewHandler(source.NewService(new(MockRepo), t.TempDir()), 0)

		req := httptest.NewRequest("POST", "/sources", strings.NewReader(`{`))
		w := httptest.NewRecorder()
		h.Create(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Repo Error", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))
		h := source.NewHandler(source.NewService(repo, t.TempDir()), 0)

		req := httptest.NewRequest("POST", "/sources", strings.NewReader(`{"url":"http://example.com"}`))
		w := httptest.NewRecorder()
		h.Create(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		code, msg := decodeError(t, w)
		assert.Equal(t, "INTERNAL_ERROR", code)
		assert.Equal(t, "Internal Server Error", msg)
	})
}

func multipartBody(t *testing.T, field, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestHandler_Upload(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)
		h := source.NewHandler(source.NewService(repo, t.TempDir()), 1<<20)

		body, ct := multipartBody(t, "file", "notes.md", "# Notes")
		req := httptest.NewRequest("POST", "/sources/upload", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		h.Upload(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"original_name":"notes.md"`)
	})

	t.Run("Missing File", func(t *testing.T) {
		h := source.NewHandler(source.NewService(new(MockRepo), t.TempDir()), 1<<20)

		body, ct := multipartBody(t, "other", "notes.md", "x")
		req := httptest.NewRequest("POST", "/sources/upload", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		h.Upload(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Too Large", func(t *testing.T) {
		h := source.NewHandler(source.NewService(new(MockRepo), t.TempDir()), 16)

		body, ct := multipartBody(t, "file", "big.txt", strings.Repeat("x", 1024))
		req := httptest.NewRequest("POST", "/sources/upload", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		h.Upload(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		_, msg := decodeError(t, w)
		assert.Equal(t, "File too large", msg)
	})
}

func TestHandler_List(t *testing.T) {
	t.Run("Empty Is Array", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("List", mock.Anything).Return(nil, nil)
		h := source.NewHandler(source.NewService(repo, ""), 0)

		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest("GET", "/sources", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":[],"meta":{"count":0}}`, w.Body.String())
	})

	t.Run("Error", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("List", mock.Anything).Return(nil, errors.New("db down"))
		h := source.NewHandler(source.NewService(repo, ""), 0)

		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest("GET", "/sources", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandler_Get(t *testing.T) {
	repo := new(MockRepo)
	repo.On("Get", mock.Anything, id1).Return(&seed.Source{ID: id1, Kind: seed.KindFile}, nil)
	repo.On("Get", mock.Anything, id2).Return(nil, source.ErrNotFound)
	h := source.NewHandler(source.NewService(repo, ""), 0)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sources/{id}", h.Get)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/sources/"+id1, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/sources/"+id2, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
