package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileServicePut(t *testing.T) {
	dir := t.TempDir()
	s := NewFileService(dir, "http://cdn.local/media/", 16)
	ctx := context.Background()

	url, err := s.Put(ctx, "messages/u1/m1/a.png", "image/png", strings.NewReader("png-bytes"), 9)
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.local/media/messages/u1/m1/a.png", url)

	raw, err := os.ReadFile(filepath.Join(dir, "messages", "u1", "m1", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(raw))
}

func TestFileServiceRejects(t *testing.T) {
	dir := t.TempDir()
	s := NewFileService(dir, "http://cdn.local", 4)
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
		body string
		size int64
	}{
		{"declared too large", "messages/u/m/a", "abc", 10},
		{"actual too large", "messages/u/m/b", "abcdefgh", 2},
		{"escape", "../outside", "a", 1},
		{"empty key", "", "a", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Put(ctx, tt.key, "", strings.NewReader(tt.body), tt.size)
			assert.ErrorIs(t, err, entities.ErrInvalidArgument)
		})
	}

	// 失败时不留下临时文件
	entries, err := os.ReadDir(filepath.Join(dir, "messages", "u", "m"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
