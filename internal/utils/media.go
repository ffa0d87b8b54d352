package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// FetchRange downloads limit bytes of url starting at offset. Servers that
// ignore the Range header are handled by discarding the head of the body.
// Reading past the end yields an empty chunk.
func FetchRange(ctx context.Context, hc *http.Client, url string, offset int64, limit int) ([]byte, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+int64(limit)-1))

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusRequestedRangeNotSatisfiable:
		return nil, nil
	case http.StatusPartialContent:
	case http.StatusOK:
		if _, err := io.CopyN(io.Discard, resp.Body, offset); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, err
		}
	default:
		return nil, fmt.Errorf("download failed: %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, int64(limit)))
}
