package http

import (
	"errors"
	"net/http"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/models"

	"github.com/gin-gonic/gin"
)

// 发起会话：按对方 ID 或用户码
func (h *Handlers) startConversation(c *gin.Context) {
	var req models.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx, sess := c.Request.Context(), SessionFrom(c)
	var (
		conv *entities.Conversation
		err  error
	)
	switch {
	case req.OtherID != "":
		conv, err = h.Conversations.FindOrCreate(ctx, sess, req.OtherID)
	case req.Code != "":
		conv, err = h.Conversations.FindOrCreateByCode(ctx, sess, req.Code)
	default:
		badRequest(c, errors.New("otherId or code is required"))
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *Handlers) listConversations(c *gin.Context) {
	list, err := h.Conversations.List(c.Request.Context(), SessionFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

func (h *Handlers) getConversation(c *gin.Context) {
	conv, err := h.Conversations.Get(c.Request.Context(), SessionFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *Handlers) deleteConversation(c *gin.Context) {
	if err := h.Conversations.Delete(c.Request.Context(), SessionFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// 会话消息：已提交与待发送合并后的视图
func (h *Handlers) conversationMessages(c *gin.Context) {
	msgs, err := h.View.Conversation(c.Request.Context(), SessionFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if msgs == nil {
		msgs = []*entities.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handlers) markConversationRead(c *gin.Context) {
	n, err := h.Receipts.MarkConversationRead(c.Request.Context(), SessionFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

func (h *Handlers) listPins(c *gin.Context) {
	ids, err := h.Pins.List(c.Request.Context(), SessionFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pinned": ids})
}

func (h *Handlers) pin(c *gin.Context) {
	if err := h.Pins.Pin(c.Request.Context(), SessionFrom(c), c.Param("id"), c.Param("msgId")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) unpin(c *gin.Context) {
	if err := h.Pins.Unpin(c.Request.Context(), SessionFrom(c), c.Param("id"), c.Param("msgId")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) setTyping(c *gin.Context) {
	var req models.TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Typing.Set(c.Request.Context(), SessionFrom(c), c.Param("id"), req.Typing); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
