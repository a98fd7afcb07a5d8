package valueobjects

import "errors"

// AttemptAction 屏蔽词拦截记录的处理结果
type AttemptAction string

const (
	AttemptActionNone    AttemptAction = ""        // 未处理
	AttemptActionBlocked AttemptAction = "blocked" // 拉黑发送方
	AttemptActionIgnored AttemptAction = "ignored" // 忽略
)

// NewAttemptAction 创建处理结果值对象，只接受 blocked / ignored
func NewAttemptAction(value string) (AttemptAction, error) {
	a := AttemptAction(value)
	if a != AttemptActionBlocked && a != AttemptActionIgnored {
		return "", errors.New("invalid attempt action")
	}
	return a, nil
}

// IsResolved 是否已处理
func (a AttemptAction) IsResolved() bool {
	return a == AttemptActionBlocked || a == AttemptActionIgnored
}
