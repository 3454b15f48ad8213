package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testEbookID = "cb8f2136-fae4-4200-85d9-3533c7f8c70d"

func newTestAPIHandler(storage EbookStorage, ids UIDHandler) *APIHandler {
	clock := NewMockClocker()
	es := NewEbookService(zap.NewNop(), storage, nil)
	return NewAPIHandler(zap.NewNop(), &Config{}, &Statistics{started: clock.Now()}, clock, ids, es)
}

func readResponse(t *testing.T, w *httptest.ResponseRecorder) (*http.Response, string) {
	t.Helper()
	res := w.Result()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(data)
}

func idParams(id string) httprouter.Params {
	return httprouter.Params{{Key: "id", Value: id}}
}

// TestIndexHandler ensures the root endpoint greets in plain text.
func TestIndexHandler(t *testing.T) {
	api := newTestAPIHandler(nil, NewMockUIDHandler(true))
	w := httptest.NewRecorder()
	api.Index(w, httptest.NewRequest(http.MethodGet, "/", nil), httprouter.Params{})
	res, body := readResponse(t, w)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Equal(t, "Welcome!", body)
}

// TestStatusHandler ensures api handler can provides its status.
func TestStatusHandler(t *testing.T) {
	api := newTestAPIHandler(nil, NewMockUIDHandler(true))
	w := httptest.NewRecorder()
	api.Status(w, httptest.NewRequest(http.MethodGet, "/status", nil), httprouter.Params{})
	res, body := readResponse(t, w)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	m := make(map[string]interface{})
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	_, ok := m["requestid"]
	assert.True(t, ok)
	assert.Equal(t, "up & running since 0 mins", m["status"])
	assert.Equal(t, "Hello. Ebooks api is available. Enjoy :)", m["message"])
}

// TestGetAllEbooksHandler ensures listing answers with the data envelope.
func TestGetAllEbooksHandler(t *testing.T) {
	t.Run("should pass: empty storage", func(t *testing.T) {
		api := newTestAPIHandler(&MockEbookStorage{
			GetAllFunc: func(ctx context.Context) ([]Ebook, error) {
				return []Ebook{}, nil
			},
		}, NewMockUIDHandler(true))
		w := httptest.NewRecorder()
		api.GetAllEbooks(w, httptest.NewRequest(http.MethodGet, "/ebooks", nil), httprouter.Params{})
		res, body := readResponse(t, w)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"data":[]}`, body)
	})

	t.Run("should pass: stored ebooks keep their ids", func(t *testing.T) {
		api := newTestAPIHandler(&MockEbookStorage{
			GetAllFunc: func(ctx context.Context) ([]Ebook, error) {
				return []Ebook{{ID: testEbookID, Author: "A", Title: "T", Format: "pdf"}}, nil
			},
		}, NewMockUIDHandler(true))
		w := httptest.NewRecorder()
		api.GetAllEbooks(w, httptest.NewRequest(http.MethodGet, "/ebooks", nil), httprouter.Params{})
		res, body := readResponse(t, w)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.JSONEq(t, `{"data":[{"id":"`+testEbookID+`","author":"A","title":"T","format":"pdf"}]}`, body)
	})

	t.Run("should fail: storage failure", func(t *testing.T) {
		api := newTestAPIHandler(&MockEbookStorage{
			GetAllFunc: func(ctx context.Context) ([]Ebook, error) {
				return nil, errors.New("storage failure")
			},
		}, NewMockUIDHandler(true))
		w := httptest.NewRecorder()
		api.GetAllEbooks(w, httptest.NewRequest(http.MethodGet, "/ebooks", nil), httprouter.Params{})
		res, body := readResponse(t, w)
		assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
		assert.Empty(t, body)
	})
}

// TestGetOneEbookHandler ensures fetching an ebook omits its id.
func TestGetOneEbookHandler(t *testing.T) {
	var called bool
	mockStorage := &MockEbookStorage{
		GetOneFunc: func(ctx context.Context, id string) (Ebook, error) {
			called = true
			if id == testEbookID {
				return Ebook{ID: id, Author: "A", Title: "T", Format: "pdf"}, nil
			}
			if id == "broken" {
				return Ebook{}, errors.New("storage failure")
			}
			return Ebook{}, ErrEbookNotFound
		},
	}

	testCases := []struct {
		name   string
		id     string
		valid  bool
		status int
		body   string
		called bool
	}{
		{"should pass: existing ebook", testEbookID, true, http.StatusOK, `{"author":"A","title":"T","format":"pdf"}`, true},
		{"should fail: unknown ebook", "8d1f5b0e-7e0c-4a61-9c52-4a0f6b1f3c11", true, http.StatusNotFound, "", true},
		{"should fail: invalid id", "not-a-uuid", false, http.StatusNotFound, "", false},
		{"should fail: storage failure", "broken", true, http.StatusInternalServerError, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			called = false
			api := newTestAPIHandler(mockStorage, NewMockUIDHandler(tc.valid))
			w := httptest.NewRecorder()
			api.GetOneEbook(w, httptest.NewRequest(http.MethodGet, "/ebooks/"+tc.id, nil), idParams(tc.id))
			res, body := readResponse(t, w)
			assert.Equal(t, tc.status, res.StatusCode)
			assert.Equal(t, tc.called, called)
			if tc.body == "" {
				assert.Empty(t, body)
				return
			}
			assert.JSONEq(t, tc.body, body)
			assert.NotContains(t, body, `"id"`)
		})
	}
}

// TestCreateEbookHandler ensures api handler can create an ebook.
//
//nolint:funlen
func TestCreateEbookHandler(t *testing.T) {
	t.Run("should pass: valid payload", func(t *testing.T) {
		var stored Ebook
		api := newTestAPIHandler(&MockEbookStorage{
			AddFunc: func(ctx context.Context, ebook Ebook) (Ebook, error) {
				ebook.ID = testEbookID
				stored = ebook
				return ebook, nil
			},
		}, NewMockUIDHandler(true))
		req := httptest.NewRequest(http.MethodPost, "/ebooks", strings.NewReader(`{"author":"Jerome Amon","title":"Go","format":"epub"}`))
		w := httptest.NewRecorder()
		api.CreateEbook(w, req, httprouter.Params{})
		res, body := readResponse(t, w)
		assert.Equal(t, http.StatusCreated, res.StatusCode)
		assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"id":"`+testEbookID+`","author":"Jerome Amon","title":"Go","format":"epub"}`, body)
		assert.Equal(t, Ebook{ID: testEbookID, Author: "Jerome Amon", Title: "Go", Format: "epub"}, stored)
	})

	t.Run("should pass: client id is ignored", func(t *testing.T) {
		api := newTestAPIHandler(&MockEbookStorage{
			AddFunc: func(ctx context.Context, ebook Ebook) (Ebook, error) {
				ebook.ID = testEbookID
				return ebook, nil
			},
		}, NewMockUIDHandler(true))
		req := httptest.NewRequest(http.MethodPost, "/ebooks", strings.NewReader(`{"id":"mine","author":"A","title":"T","format":"pdf"}`))
		w := httptest.NewRecorder()
		api.CreateEbook(w, req, httprouter.Params{})
		res, body := readResponse(t, w)
		assert.Equal(t, http.StatusCreated, res.StatusCode)
		assert.Contains(t, body, testEbookID)
		assert.NotContains(t, body, "mine")
	})

	t.Run("should fail: invalid payloads", func(t *testing.T) {
		payloads := map[string]string{
			"not json":       `author=A`,
			"empty object":   `{ }`,
			"empty body":     ``,
			"json array":     `[{"author":"A","title":"T","format":"pdf"}]`,
			"missing author": `{"title":"T","format":"pdf"}`,
			"missing title":  `{"author":"A","format":"pdf"}`,
			"missing format": `{"author":"A","title":"T"}`,
			"empty author":   `{"author":"","title":"T","format":"pdf"}`,
			"unknown field":  `{"author":"A","title":"T","format":"pdf","pages":10}`,
			"trailing data":  `{"author":"A","title":"T","format":"pdf"}{}`,
			"wrong type":     `{"author":1,"title":"T","format":"pdf"}`,
			"uppercase keys": `{"AUTHOR":"A","Title":"T","FORMAT":"pdf"}`,
			"invalid utf-8":  "{\"author\":\"\xff\xfe\",\"title\":\"T\",\"format\":\"pdf\"}",
		}
		var called bool
		api := newTestAPIHandler(&MockEbookStorage{
			AddFunc: func(ctx context.Context, ebook Ebook) (Ebook, error) {
				called = true
				return ebook, nil
			},
		}, NewMockUIDHandler(true))
		for name, payload := range payloads {
			t.Run(name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodPost, "/ebooks", strings.NewReader(payload))
				w := httptest.NewRecorder()
				api.CreateEbook(w, req, httprouter.Params{})
				res, body := readResponse(t, w)
				assert.Equal(t, http.StatusBadRequest, res.StatusCode)
				assert.Empty(t, body)
			})
		}
		assert.False(t, called)
	})

	t.Run("should fail: storage insertion failure", func(t *testing.T) {
		api := newTestAPIHandler(&MockEbookStorage{
			AddFunc: func(ctx context.Context, ebook Ebook) (Ebook, error) {
				return Ebook{}, errors.New("storage failure")
			},
		}, NewMockUIDHandler(true))
		req := httptest.NewRequest(http.MethodPost, "/ebooks", strings.NewReader(`{"author":"A","title":"T","format":"pdf"}`))
		w := httptest.NewRecorder()
		api.CreateEbook(w, req, httprouter.Params{})
		res, body := readResponse(t, w)
		assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
		assert.Empty(t, body)
	})
}

// TestUpdateEbookHandler ensures an ebook is replaced as a whole and
// that the payload is checked before the ebook lookup.
func TestUpdateEbookHandler(t *testing.T) {
	var called bool
	mockStorage := &MockEbookStorage{
		ReplaceFunc: func(ctx context.Context, id string, ebook Ebook) (Ebook, error) {
			called = true
			if id != testEbookID {
				return Ebook{}, ErrEbookNotFound
			}
			ebook.ID = id
			return ebook, nil
		},
	}
	unknownID := "8d1f5b0e-7e0c-4a61-9c52-4a0f6b1f3c11"

	testCases := []struct {
		name    string
		id      string
		valid   bool
		payload string
		status  int
		body    string
		called  bool
	}{
		{"should pass: existing ebook", testEbookID, true, `{"author":"B","title":"U","format":"epub"}`, http.StatusOK, `{"author":"B","title":"U","format":"epub"}`, true},
		{"should fail: unknown ebook", unknownID, true, `{"author":"B","title":"U","format":"epub"}`, http.StatusNotFound, "", true},
		{"should fail: invalid payload on unknown ebook", unknownID, true, `{"author":"B"}`, http.StatusBadRequest, "", false},
		{"should fail: invalid payload on invalid id", "bad", false, `nope`, http.StatusBadRequest, "", false},
		{"should fail: invalid id", "bad", false, `{"author":"B","title":"U","format":"epub"}`, http.StatusNotFound, "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			called = false
			api := newTestAPIHandler(mockStorage, NewMockUIDHandler(tc.valid))
			req := httptest.NewRequest(http.MethodPut, "/ebooks/"+tc.id, strings.NewReader(tc.payload))
			w := httptest.NewRecorder()
			api.UpdateEbook(w, req, idParams(tc.id))
			res, body := readResponse(t, w)
			assert.Equal(t, tc.status, res.StatusCode)
			assert.Equal(t, tc.called, called)
			if tc.body == "" {
				assert.Empty(t, body)
				return
			}
			assert.JSONEq(t, tc.body, body)
		})
	}

	t.Run("should fail: storage failure", func(t *testing.T) {
		api := newTestAPIHandler(&MockEbookStorage{
			ReplaceFunc: func(ctx context.Context, id string, ebook Ebook) (Ebook, error) {
				return Ebook{}, errors.New("storage failure")
			},
		}, NewMockUIDHandler(true))
		req := httptest.NewRequest(http.MethodPut, "/ebooks/"+testEbookID, strings.NewReader(`{"author":"B","title":"U","format":"epub"}`))
		w := httptest.NewRecorder()
		api.UpdateEbook(w, req, idParams(testEbookID))
		res, body := readResponse(t, w)
		assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
		assert.Empty(t, body)
	})
}

// TestDeleteOneEbookHandler ensures deletion answers with an empty body.
func TestDeleteOneEbookHandler(t *testing.T) {
	var called bool
	mockStorage := &MockEbookStorage{
		RemoveFunc: func(ctx context.Context, id string) (Ebook, error) {
			called = true
			switch id {
			case testEbookID:
				return Ebook{ID: id, Author: "A", Title: "T", Format: "pdf"}, nil
			case "broken":
				return Ebook{}, errors.New("storage failure")
			}
			return Ebook{}, ErrEbookNotFound
		},
	}

	testCases := []struct {
		name   string
		id     string
		valid  bool
		status int
		called bool
	}{
		{"should pass: existing ebook", testEbookID, true, http.StatusOK, true},
		{"should fail: unknown ebook", "8d1f5b0e-7e0c-4a61-9c52-4a0f6b1f3c11", true, http.StatusNotFound, true},
		{"should fail: invalid id", "bad", false, http.StatusNotFound, false},
		{"should fail: storage failure", "broken", true, http.StatusInternalServerError, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			called = false
			api := newTestAPIHandler(mockStorage, NewMockUIDHandler(tc.valid))
			w := httptest.NewRecorder()
			api.DeleteOneEbook(w, httptest.NewRequest(http.MethodDelete, "/ebooks/"+tc.id, nil), idParams(tc.id))
			res, body := readResponse(t, w)
			assert.Equal(t, tc.status, res.StatusCode)
			assert.Equal(t, tc.called, called)
			assert.Empty(t, body)
		})
	}
}

// TestNotFoundHandler ensures unknown routes get an empty 404.
func TestNotFoundHandler(t *testing.T) {
	api := newTestAPIHandler(nil, NewMockUIDHandler(true))
	w := httptest.NewRecorder()
	api.NotFound().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	res, body := readResponse(t, w)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Empty(t, body)
}

// TestWriteErrorResponseOnDoneContext ensures a cancelled request is recorded as 499.
func TestWriteErrorResponseOnDoneContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := httptest.NewRecorder()
	err := WriteErrorResponse(ctx, w, http.StatusNotFound)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusClientClosedRequest, w.Code)
}
