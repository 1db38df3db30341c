package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

var ErrRead = errors.New("failed to read attachment")

// Attachment is an uploaded file held in memory for submission to a model.
type Attachment struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Upload is an inbound file handle. File may already have been partially
// consumed by upstream middleware.
type Upload struct {
	Filename    string
	ContentType string
	File        io.ReadSeeker
}

// Normalize reads every upload into memory, preserving input order.
// Reads run concurrently, but any single failure aborts the whole batch.
// A declared content type is carried through unchanged; only an upload that
// declares none has its type detected from the content.
func Normalize(ctx context.Context, uploads []Upload) ([]Attachment, error) {
	out := make([]Attachment, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	for i, up := range uploads {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			att, err := read(up)
			if err != nil {
				return fmt.Errorf("%w %q: %v", ErrRead, up.Filename, err)
			}
			out[i] = att
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func read(up Upload) (Attachment, error) {
	if up.File == nil {
		return Attachment{}, errors.New("nil file handle")
	}
	if _, err := up.File.Seek(0, io.SeekStart); err != nil {
		return Attachment{}, err
	}
	data, err := io.ReadAll(up.File)
	if err != nil {
		return Attachment{}, err
	}

	mediaType := up.ContentType
	if mediaType == "" {
		// No declared type to carry through, so fall back to detection.
		mediaType = mimetype.Detect(data).String()
		slog.Debug("attachment declared no content type", "filename", up.Filename, "detected", mediaType)
	}

	return Attachment{
		Filename:  up.Filename,
		MediaType: mediaType,
		Data:      data,
	}, nil
}

// FromMultipart opens each multipart file header as an Upload. The returned
// closer releases every opened file.
func FromMultipart(headers []*multipart.FileHeader) ([]Upload, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			if err := f.Close(); err != nil {
				slog.Warn("failed to close uploaded file", "error", err)
			}
		}
	}

	uploads := make([]Upload, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("%w %q: %v", ErrRead, h.Filename, err)
		}
		files = append(files, f)
		uploads = append(uploads, Upload{
			Filename:    h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			File:        f,
		})
	}
	return uploads, closeAll, nil
}
