package manual_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"manualgen/features/manual"
	"manualgen/internal/pipeline"
)

type formFile struct {
	name, contentType, body string
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	for _, f := range files {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="files"; filename="%s"`, f.name)}
		h["Content-Type"] = []string{f.contentType}
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newHandler(gen *MockGenerator) *manual.Handler {
	return manual.NewHandler(manual.NewService(gen, nil, time.Minute), 1<<20)
}

func TestHandler_Generate_JSON(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Run", mock.Anything, mock.MatchedBy(func(req pipeline.Request) bool {
		return req.Topic == "kettle" && req.GenerateImages && len(req.Attachments) == 2 &&
			req.Attachments[0].Filename == "front.png" && req.Attachments[1].Filename == "sheet.pdf"
	})).Return(illustratedResult(), nil)

	req := multipartRequest(t, "/manuals", map[string]string{"topic": "  kettle  "},
		formFile{"front.png", "image/png", "png-bytes"},
		formFile{"sheet.pdf", "application/pdf", "pdf-bytes"},
	)
	w := httptest.NewRecorder()
	newHandler(gen).Generate(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data manual.Manual `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Data.Markdown, "![Section illustration 1]")
	assert.Len(t, resp.Data.ImageURLs, 1)
	assert.Len(t, resp.Data.Sections, 2)
	assert.NotEmpty(t, resp.Data.HTML)
	gen.AssertExpectations(t)
}

func TestHandler_Generate_MarkdownDownload(t *testing.T) {
	tests := []struct {
		name   string
		target string
		accept string
	}{
		{"Query", "/generate-manual?format=markdown", ""},
		{"Accept Header", "/generate-manual", "text/markdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(MockGenerator)
			gen.On("Run", mock.Anything, mock.Anything).Return(illustratedResult(), nil)

			req := multipartRequest(t, tt.target, map[string]string{"topic": "kettle"})
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			w := httptest.NewRecorder()
			newHandler(gen).Generate(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))
			assert.Equal(t, `attachment; filename="manual.md"`, w.Header().Get("Content-Disposition"))
			assert.Equal(t, illustratedResult().Markdown, w.Body.String())
		})
	}
}

func TestHandler_Generate_GenerateImagesFlag(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"true", true},
		{"1", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"OFF", false},
	}

	for _, tt := range tests {
		t.Run("Value "+tt.value, func(t *testing.T) {
			gen := new(MockGenerator)
			gen.On("Run", mock.Anything, mock.MatchedBy(func(req pipeline.Request) bool {
				return req.GenerateImages == tt.want
			})).Return(&pipeline.Result{Markdown: kettleManual, Manual: pipeline.NewManual(kettleManual)}, nil)

			fields := map[string]string{"topic": "kettle"}
			if tt.value != "" {
				fields["generate_images"] = tt.value
			}
			w := httptest.NewRecorder()
			newHandler(gen).Generate(w, multipartRequest(t, "/manuals", fields))

			assert.Equal(t, http.StatusOK, w.Code)
			gen.AssertExpectations(t)
		})
	}
}

func TestHandler_Generate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		timeout string
	}{
		{"Blank Topic No Files", map[string]string{"topic": "   "}, ""},
		{"Bad Flag", map[string]string{"topic": "kettle", "generate_images": "maybe"}, ""},
		{"Bad Timeout", map[string]string{"topic": "kettle"}, "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(MockGenerator)
			req := multipartRequest(t, "/manuals", tt.fields)
			if tt.timeout != "" {
				req.Header.Set(manual.TimeoutHeader, tt.timeout)
			}
			w := httptest.NewRecorder()
			newHandler(gen).Generate(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
			gen.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_Generate_FilesWithoutTopic(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Run", mock.Anything, mock.MatchedBy(func(req pipeline.Request) bool {
		return req.Topic == "" && len(req.Attachments) == 1
	})).Return(illustratedResult(), nil)

	req := multipartRequest(t, "/manuals", nil, formFile{"front.jpg", "image/jpeg", "jpeg-bytes"})
	w := httptest.NewRecorder()
	newHandler(gen).Generate(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	gen.AssertExpectations(t)
}

func TestHandler_Generate_URLEncodedForm(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Run", mock.Anything, mock.MatchedBy(func(req pipeline.Request) bool {
		return req.Topic == "kettle" && !req.GenerateImages
	})).Return(&pipeline.Result{Markdown: kettleManual, Manual: pipeline.NewManual(kettleManual)}, nil)

	req := httptest.NewRequest("POST", "/manuals", strings.NewReader("topic=kettle&generate_images=false"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	newHandler(gen).Generate(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	gen.AssertExpectations(t)
}

func TestHandler_Generate_TooLarge(t *testing.T) {
	gen := new(MockGenerator)
	handler := manual.NewHandler(manual.NewService(gen, nil, time.Minute), 1024)

	req := multipartRequest(t, "/manuals", map[string]string{"topic": "kettle"},
		formFile{"big.bin", "application/octet-stream", strings.Repeat("x", 4096)})
	w := httptest.NewRecorder()
	handler.Generate(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestHandler_Generate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"Extraction", fmt.Errorf("%w: %w", pipeline.ErrExtraction, errors.New("quota")), http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"Synthesis", fmt.Errorf("%w: empty", pipeline.ErrSynthesis), http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"Timeout", fmt.Errorf("%w: %w", pipeline.ErrExtraction, context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{"Empty Input", pipeline.ErrEmptyInput, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"Unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(MockGenerator)
			gen.On("Run", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := httptest.NewRecorder()
			newHandler(gen).Generate(w, multipartRequest(t, "/manuals", map[string]string{"topic": "kettle"}))

			assert.Equal(t, tt.status, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["error"].(map[string]interface{})["code"])
		})
	}
}
