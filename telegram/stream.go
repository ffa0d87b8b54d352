package telegram

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// StreamChunkSize is the fixed size of streamed chunks, 1 MiB.
const StreamChunkSize = 1024 * 1024

// ChunkCount is the number of chunks a file of size bytes spans.
func ChunkCount(size int64) int64 {
	if size <= 0 {
		return 0
	}
	return (size + StreamChunkSize - 1) / StreamChunkSize
}

// ChunkRange resolves a requested chunk window. A negative offset counts back
// from the end of the file, which needs the total size (size <= 0 means
// unknown). A zero limit streams to the end. count is -1 when the end is
// unknown.
func ChunkRange(size, offset, limit int64) (first, count int64, err error) {
	if limit < 0 {
		return 0, 0, ErrInvalidChunk
	}
	if offset < 0 {
		if size <= 0 {
			return 0, 0, ErrUnknownFileSize
		}
		offset += ChunkCount(size)
		if offset < 0 {
			offset = 0
		}
	}

	if size <= 0 {
		if limit == 0 {
			return offset, -1, nil
		}
		return offset, limit, nil
	}

	remaining := ChunkCount(size) - offset
	if remaining < 0 {
		remaining = 0
	}
	if limit == 0 || limit > remaining {
		limit = remaining
	}
	return offset, limit, nil
}

// MediaStream yields the chunks of one file in order. It cannot be restarted
// and runs at most one fetch at a time.
type MediaStream struct {
	mu      sync.Mutex
	fetcher FileFetcher
	file    FileInfo
	next    int64
	left    int64 // -1 = until a short chunk
	done    bool
}

// StreamMedia streams a file chunk by chunk. src may be a *Message, a Media
// value, a FileInfo or a bare file id string. limit caps the number of chunks
// (0 = all) and offset skips chunks, negative offsets counting from the end.
func (c *Client) StreamMedia(ctx context.Context, src any, limit, offset int64) (*MediaStream, error) {
	if c.fetcher == nil {
		return nil, ErrNoTransport
	}
	file, err := fileOf(src)
	if err != nil {
		return nil, err
	}
	first, count, err := ChunkRange(file.FileSize, offset, limit)
	if err != nil {
		return nil, err
	}
	c.Log.Debug("streaming %s from chunk %d (%d chunk(s))", file.FileID, first, count)
	return &MediaStream{fetcher: c.fetcher, file: file, next: first, left: count, done: count == 0}, nil
}

func fileOf(src any) (FileInfo, error) {
	switch v := src.(type) {
	case *Message:
		m, ok := v.Media()
		if !ok {
			return FileInfo{}, ErrNoMedia
		}
		return m.File(), nil
	case Media:
		return v.File(), nil
	case FileInfo:
		return v, nil
	case *FileInfo:
		return *v, nil
	case string:
		if v == "" {
			return FileInfo{}, ErrNoMedia
		}
		return FileInfo{FileID: v}, nil
	}
	return FileInfo{}, errors.Wrapf(ErrNoMedia, "unsupported source %T", src)
}

// Next returns the next chunk, or io.EOF once the window is exhausted.
func (s *MediaStream) Next(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil, io.EOF
	}

	chunk, err := s.fetcher.FetchChunk(ctx, s.file, s.next*StreamChunkSize, StreamChunkSize)
	if err != nil {
		s.done = true
		return nil, errors.Wrapf(err, "fetching chunk %d", s.next)
	}
	s.next++
	if s.left > 0 {
		s.left--
	}
	if s.left == 0 || len(chunk) < StreamChunkSize {
		s.done = true
	}
	if len(chunk) == 0 {
		return nil, io.EOF
	}
	return chunk, nil
}

// Position is the index of the chunk Next would fetch.
func (s *MediaStream) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Drain writes the rest of the stream into w.
func (s *MediaStream) Drain(ctx context.Context, w io.Writer) (int64, error) {
	var n int64
	for {
		chunk, err := s.Next(ctx)
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		wn, err := w.Write(chunk)
		n += int64(wn)
		if err != nil {
			return n, err
		}
	}
}
