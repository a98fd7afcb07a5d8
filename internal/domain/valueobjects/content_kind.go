package valueobjects

import (
	"errors"
	"strings"
)

// ContentKind 消息内容类型值对象
type ContentKind string

const (
	ContentKindText  ContentKind = "text"
	ContentKindImage ContentKind = "image"
	ContentKindVideo ContentKind = "video"
	ContentKindAudio ContentKind = "audio"
	ContentKindGIF   ContentKind = "gif" // 动图
)

// NewContentKind 解析内容类型，空串视为文本
func NewContentKind(value string) (ContentKind, error) {
	if value == "" {
		return ContentKindText, nil
	}
	kind := ContentKind(strings.ToLower(value))
	if !kind.IsValid() {
		return "", errors.New("invalid content kind")
	}
	return kind, nil
}

// IsValid 验证内容类型是否有效
func (k ContentKind) IsValid() bool {
	switch k {
	case ContentKindText, ContentKindImage, ContentKindVideo, ContentKindAudio, ContentKindGIF:
		return true
	default:
		return false
	}
}

func (k ContentKind) String() string {
	return string(k)
}

// IsMedia 负载是否为指向对象存储的 URL
func (k ContentKind) IsMedia() bool {
	return k != ContentKindText && k != ""
}

// AcceptsMIME 上传的媒体 MIME 是否与类型匹配（gif 按图片处理）
func (k ContentKind) AcceptsMIME(mime string) bool {
	mime = strings.ToLower(mime)
	switch k {
	case ContentKindImage:
		return strings.HasPrefix(mime, "image/")
	case ContentKindGIF:
		return mime == "image/gif"
	case ContentKindVideo:
		return strings.HasPrefix(mime, "video/")
	case ContentKindAudio:
		return strings.HasPrefix(mime, "audio/")
	default:
		return false
	}
}
