package telegram_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarnathcjd/waitfor/telegram"
)

func TestChunkRange(t *testing.T) {
	const mb = telegram.StreamChunkSize
	tests := []struct {
		name          string
		size          int64
		offset, limit int64
		first, count  int64
		err           error
	}{
		{name: "whole file", size: 10 * mb, first: 0, count: 10},
		{name: "negative offset", size: 10 * mb, offset: -3, first: 7, count: 3},
		{name: "partial last chunk", size: 10*mb + 1, offset: -1, first: 10, count: 1},
		{name: "limit caps", size: 10 * mb, offset: 2, limit: 4, first: 2, count: 4},
		{name: "limit past end", size: 3 * mb, offset: 1, limit: 9, first: 1, count: 2},
		{name: "offset past end", size: 3 * mb, offset: 5, first: 5, count: 0},
		{name: "offset before start", size: 2 * mb, offset: -9, first: 0, count: 2},
		{name: "unknown size", offset: 4, first: 4, count: -1},
		{name: "unknown size with limit", offset: 4, limit: 2, first: 4, count: 2},
		{name: "unknown size negative offset", offset: -1, err: telegram.ErrUnknownFileSize},
		{name: "negative limit", size: mb, limit: -1, err: telegram.ErrInvalidChunk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, count, err := telegram.ChunkRange(tt.size, tt.offset, tt.limit)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.count, count)
		})
	}
}

// memFetcher serves a file from memory and records the offsets asked for.
type memFetcher struct {
	mu      sync.Mutex
	data    []byte
	offsets []int64
	failAt  int64
}

func (f *memFetcher) FetchChunk(_ context.Context, _ telegram.FileInfo, offset int64, limit int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, offset)
	if f.failAt > 0 && offset == f.failAt {
		return nil, errors.New("FILE_REFERENCE_EXPIRED")
	}
	if offset >= int64(len(f.data)) {
		return nil, nil
	}
	end := min(offset+int64(limit), int64(len(f.data)))
	return f.data[offset:end], nil
}

func fileMessage(size int) *telegram.Message {
	msg := chatMessage(1, 1, 1, "")
	msg.Attachment = &telegram.Document{FileInfo: telegram.FileInfo{FileID: "doc", FileSize: int64(size)}}
	return msg
}

func TestStreamMediaFromNegativeOffset(t *testing.T) {
	size := 4*telegram.StreamChunkSize + 10
	data := bytes.Repeat([]byte{7}, size)
	fetcher := &memFetcher{data: data}
	c := newClient(t, telegram.ClientConfig{FileFetcher: fetcher})

	s, err := c.StreamMedia(context.Background(), fileMessage(size), 0, -2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, s.Position())

	var buf bytes.Buffer
	n, err := s.Drain(context.Background(), &buf)
	require.NoError(t, err)
	assert.EqualValues(t, telegram.StreamChunkSize+10, n)
	assert.Equal(t, []int64{3 * telegram.StreamChunkSize, 4 * telegram.StreamChunkSize}, fetcher.offsets)

	_, err = s.Next(context.Background())
	assert.Equal(t, io.EOF, err, "a drained stream does not restart")
}

func TestStreamMediaLimitAndUnknownSize(t *testing.T) {
	fetcher := &memFetcher{data: make([]byte, 3*telegram.StreamChunkSize)}
	c := newClient(t, telegram.ClientConfig{FileFetcher: fetcher})

	s, err := c.StreamMedia(context.Background(), "file-id", 1, 1)
	require.NoError(t, err)
	chunk, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, chunk, telegram.StreamChunkSize)
	_, err = s.Next(context.Background())
	assert.Equal(t, io.EOF, err)

	_, err = c.StreamMedia(context.Background(), "file-id", 0, -1)
	assert.ErrorIs(t, err, telegram.ErrUnknownFileSize)
}

func TestStreamMediaErrors(t *testing.T) {
	c := newClient(t)
	_, err := c.StreamMedia(context.Background(), fileMessage(10), 0, 0)
	assert.ErrorIs(t, err, telegram.ErrNoTransport)

	fetcher := &memFetcher{data: make([]byte, 3*telegram.StreamChunkSize), failAt: telegram.StreamChunkSize}
	c = newClient(t, telegram.ClientConfig{FileFetcher: fetcher})
	_, err = c.StreamMedia(context.Background(), chatMessage(1, 1, 1, "no media"), 0, 0)
	assert.ErrorIs(t, err, telegram.ErrNoMedia)

	s, err := c.StreamMedia(context.Background(), telegram.FileInfo{FileID: "x", FileSize: 3 * telegram.StreamChunkSize}, 0, 0)
	require.NoError(t, err)
	_, err = s.Next(context.Background())
	require.NoError(t, err)
	_, err = s.Next(context.Background())
	assert.ErrorContains(t, err, "FILE_REFERENCE_EXPIRED")
	_, err = s.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}
