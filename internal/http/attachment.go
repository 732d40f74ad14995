package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"healthmate/pkg"
)

// readAttachment returns the uploaded "file" part, or nil when none was
// sent.
func readAttachment(r *http.Request, limit int64) (*pkg.Attachment, error) {
	f, hdr, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("upload exceeds %d bytes", limit)
	}
	return &pkg.Attachment{
		Name:      hdr.Filename,
		MediaType: pkg.MediaTypeFor(hdr.Filename, data),
		Data:      data,
	}, nil
}
