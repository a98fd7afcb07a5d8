package entities

import (
	"errors"
	"fmt"
)

// 错误分类。存储与用例层统一用 errors.Is 判断。
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTransientStore   = errors.New("transient store failure")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrConflict         = errors.New("conflict")

	// 超出宽限期同时也是一种 PermissionDenied
	ErrEditWindowExpired = fmt.Errorf("%w: edit window expired", ErrPermissionDenied)

	ErrBlockedWord = fmt.Errorf("%w: content contains a blocked word", ErrPermissionDenied)
	ErrUserBlocked = fmt.Errorf("%w: recipient has blocked the sender", ErrPermissionDenied)
)

var classified = []error{
	ErrUnauthenticated, ErrNotFound, ErrPermissionDenied,
	ErrTransientStore, ErrInvalidArgument, ErrConflict,
}

// Transient 将存储层 I/O 错误归类为 ErrTransientStore，已归类的错误原样返回。
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range classified {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransientStore, err)
}
