// Package services 本地磁盘对象存储，存放消息媒体文件。
package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 文件服务
type FileService struct {
	UploadDir string // 本地上传目录
	BaseURL   string // 本地文件访问基础 URL
	MaxSize   int64  // 最大文件大小（字节），0 表示不限
}

var _ ports.ObjectStore = (*FileService)(nil)

func NewFileService(uploadDir, baseURL string, maxSize int64) *FileService {
	return &FileService{
		UploadDir: uploadDir,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		MaxSize:   maxSize,
	}
}

// 把对象键映射为本地路径，拒绝越出上传目录的键
func (s *FileService) localPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: bad object key %q", entities.ErrInvalidArgument, key)
	}
	return filepath.Join(s.UploadDir, filepath.FromSlash(clean)), nil
}

// Put 保存文件：先写临时文件再改名，读者不会看到半截文件
func (s *FileService) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error) {
	if s.MaxSize > 0 && size > s.MaxSize {
		return "", fmt.Errorf("%w: file size exceeds limit: %d bytes", entities.ErrInvalidArgument, s.MaxSize)
	}
	dst, err := s.localPath(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := dst + "." + uuid.NewString() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	src := r
	if s.MaxSize > 0 {
		src = io.LimitReader(r, s.MaxSize+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err == nil && s.MaxSize > 0 && n > s.MaxSize {
		err = fmt.Errorf("%w: file size exceeds limit: %d bytes", entities.ErrInvalidArgument, s.MaxSize)
	}
	if err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	logger.L().Info("media stored", zap.String("key", key), zap.String("contentType", contentType), zap.Int64("size", n))
	return s.BaseURL + "/" + strings.TrimPrefix(path.Clean("/"+key), "/"), nil
}
