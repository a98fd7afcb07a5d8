package http

import (
	"errors"
	"net/http"

	"github.com/GabrielFerreiraTelles/comu/internal/application/usecases"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/models"

	"github.com/gin-gonic/gin"
)

// 写消息：校验后进入待发送队列，离线也可成功
func (h *Handlers) compose(c *gin.Context) {
	var req usecases.ComposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.Outbox.Compose(c.Request.Context(), SessionFrom(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handlers) listPending(c *gin.Context) {
	uid, err := SessionFrom(c).Principal()
	if err != nil {
		fail(c, err)
		return
	}
	msgs, err := h.Queue.ListBySender(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	if msgs == nil {
		msgs = []*entities.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// 撤销一条待发送消息，幂等
func (h *Handlers) cancelPending(c *gin.Context) {
	ctx := c.Request.Context()
	uid, err := SessionFrom(c).Principal()
	if err != nil {
		fail(c, err)
		return
	}
	m, err := h.Queue.Get(ctx, c.Param("id"))
	if errors.Is(err, entities.ErrNotFound) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	if m.SenderID != uid {
		fail(c, entities.ErrPermissionDenied)
		return
	}
	if err := h.Queue.Remove(ctx, m.ID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// 冲刷待发送队列，逐条结果在报告里，整体失败才返回错误状态
func (h *Handlers) flush(c *gin.Context) {
	report, err := h.Pump.Drain(c.Request.Context(), SessionFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.FromReport(report, ErrorCode))
}

func (h *Handlers) editMessage(c *gin.Context) {
	var req models.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.Editor.Edit(c.Request.Context(), SessionFrom(c), c.Param("id"), req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handlers) deleteMessage(c *gin.Context) {
	if err := h.Editor.Delete(c.Request.Context(), SessionFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) addReaction(c *gin.Context) {
	var req models.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.Reactions.Add(c.Request.Context(), SessionFrom(c), c.Param("id"), req.Emoji)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handlers) removeReaction(c *gin.Context) {
	m, err := h.Reactions.Remove(c.Request.Context(), SessionFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handlers) markRead(c *gin.Context) {
	if err := h.Receipts.MarkRead(c.Request.Context(), SessionFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// 上传媒体：multipart 字段 messageId、kind、file
func (h *Handlers) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()
	url, err := h.Media.Upload(c.Request.Context(), SessionFrom(c), usecases.UploadRequest{
		MessageID:   c.PostForm("messageId"),
		Kind:        c.PostForm("kind"),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.UploadResponse{URL: url})
}
