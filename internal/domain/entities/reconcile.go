package entities

// Reconcile 合并已提交与待发送两个视图：
// 先放入已提交消息，待发送消息仅在 ID 不存在时补入（已提交优先），
// 最后按时间戳升序、ID 次序排序。纯函数，不修改入参。
func Reconcile(committed, pending []*Message) []*Message {
	byID := make(map[string]*Message, len(committed)+len(pending))
	for _, m := range committed {
		if m == nil {
			continue
		}
		if prev, ok := byID[m.ID]; ok && prev.Committed && !m.Committed {
			continue
		}
		byID[m.ID] = m
	}
	for _, m := range pending {
		if m == nil {
			continue
		}
		if _, ok := byID[m.ID]; ok {
			continue
		}
		byID[m.ID] = m
	}
	out := make([]*Message, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	SortMessages(out)
	return out
}

// FilterConversation 过滤出属于 convID 的消息
func FilterConversation(msgs []*Message, convID string) []*Message {
	out := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		if m != nil && m.ConversationID == convID {
			out = append(out, m)
		}
	}
	return out
}

// UnionByID 合并多路查询结果，同一 ID 后出现者覆盖先出现者
func UnionByID(sources ...[]*Message) []*Message {
	byID := map[string]int{}
	var out []*Message
	for _, src := range sources {
		for _, m := range src {
			if m == nil {
				continue
			}
			if i, ok := byID[m.ID]; ok {
				out[i] = m
				continue
			}
			byID[m.ID] = len(out)
			out = append(out, m)
		}
	}
	return out
}
