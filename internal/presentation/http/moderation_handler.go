package http

import (
	"net/http"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) listBlocks(c *gin.Context) {
	list, err := h.Moderation.Blocked(c.Request.Context(), SessionFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []*entities.BlockedUser{}
	}
	c.JSON(http.StatusOK, gin.H{"blocked": list})
}

func (h *Handlers) block(c *gin.Context) {
	if err := h.Moderation.Block(c.Request.Context(), SessionFrom(c), c.Param("userId")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) unblock(c *gin.Context) {
	if err := h.Moderation.Unblock(c.Request.Context(), SessionFrom(c), c.Param("userId")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// 待处理的屏蔽词拦截记录
func (h *Handlers) listAttempts(c *gin.Context) {
	list, err := h.Moderation.PendingAttempts(c.Request.Context(), SessionFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []*entities.BlockedAttempt{}
	}
	c.JSON(http.StatusOK, gin.H{"attempts": list})
}

func (h *Handlers) resolveAttempt(c *gin.Context) {
	var req models.ResolveAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Moderation.Resolve(c.Request.Context(), SessionFrom(c), c.Param("id"), req.Action); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
