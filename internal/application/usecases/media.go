package usecases

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/auth"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/valueobjects"
)

// UploadRequest 媒体上传参数
type UploadRequest struct {
	MessageID   string
	Kind        string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Media 媒体上传：字节进对象存储，URL 作为消息负载
type Media struct {
	objects ports.ObjectStore
	maxSize int64
}

func NewMedia(objects ports.ObjectStore, maxSize int64) *Media {
	return &Media{objects: objects, maxSize: maxSize}
}

// ObjectKey messages/{userId}/{messageId}/{filename}
func ObjectKey(userID, msgID, filename string) string {
	return path.Join("messages", userID, msgID, filename)
}

// Upload 校验类型与大小后上传，返回访问 URL
func (m *Media) Upload(ctx context.Context, sess *auth.Session, req UploadRequest) (string, error) {
	uid, err := sess.Principal()
	if err != nil {
		return "", err
	}
	kind, err := valueobjects.NewContentKind(req.Kind)
	if err != nil || !kind.IsMedia() {
		return "", fmt.Errorf("%w: kind must be image, gif, video or audio", entities.ErrInvalidArgument)
	}
	if !kind.AcceptsMIME(req.ContentType) {
		return "", fmt.Errorf("%w: content type %q does not match kind %s", entities.ErrInvalidArgument, req.ContentType, kind)
	}
	if m.maxSize > 0 && req.Size > m.maxSize {
		return "", fmt.Errorf("%w: file exceeds %d bytes", entities.ErrInvalidArgument, m.maxSize)
	}
	name := path.Base(strings.ReplaceAll(req.Filename, "\\", "/"))
	if name == "." || name == "/" || name == "" || req.MessageID == "" || strings.Contains(req.MessageID, "/") {
		return "", fmt.Errorf("%w: filename and message id are required", entities.ErrInvalidArgument)
	}
	url, err := m.objects.Put(ctx, ObjectKey(uid, req.MessageID, name), req.ContentType, req.Body, req.Size)
	if err != nil {
		return "", entities.Transient("upload media", err)
	}
	return url, nil
}
