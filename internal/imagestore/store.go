package imagestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"manualgen/internal/llm"
)

type Encoding string

const (
	EncodingDataURL Encoding = "inline-base64-data-url"
	EncodingFile    Encoding = "saved-file-reference"
)

const (
	ModeInline = "inline"
	ModeFile   = "file"
)

var ErrEmptyImage = errors.New("image has no data")

// mediaType returns the declared type or, when missing, the sniffed one.
func mediaType(img llm.Image) string {
	if img.MediaType != "" {
		return img.MediaType
	}
	return mimetype.Detect(img.Data).String()
}

// DataURLStore embeds image bytes directly in the reference.
type DataURLStore struct{}

func NewDataURLStore() *DataURLStore {
	return &DataURLStore{}
}

func (s *DataURLStore) Save(_ context.Context, img llm.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", ErrEmptyImage
	}
	return fmt.Sprintf("data:%s;base64,%s", mediaType(img), base64.StdEncoding.EncodeToString(img.Data)), nil
}

func (s *DataURLStore) Encoding() Encoding {
	return EncodingDataURL
}

// FileStore writes each image under dir with a generated name and returns a
// URL path below urlPrefix.
type FileStore struct {
	dir       string
	urlPrefix string
}

func NewFileStore(dir, urlPrefix string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &FileStore{dir: dir, urlPrefix: "/" + strings.Trim(urlPrefix, "/") + "/"}, nil
}

func (s *FileStore) Save(ctx context.Context, img llm.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := ".png"
	if m := mimetype.Lookup(mediaType(img)); m != nil && m.Extension() != "" {
		ext = m.Extension()
	}
	name := uuid.New().String() + ext

	if err := os.WriteFile(filepath.Join(s.dir, name), img.Data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	slog.DebugContext(ctx, "image saved", "name", name, "bytes", len(img.Data))
	return path.Join(s.urlPrefix, name), nil
}

func (s *FileStore) Encoding() Encoding {
	return EncodingFile
}

func (s *FileStore) URLPrefix() string {
	return s.urlPrefix
}

// Handler serves saved images. Directory listings are refused.
func (s *FileStore) Handler() http.Handler {
	fs := http.FileServer(http.Dir(s.dir))
	return http.StripPrefix(strings.TrimSuffix(s.urlPrefix, "/"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	}))
}
