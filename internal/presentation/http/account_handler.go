package http

import (
	"net/http"

	"github.com/GabrielFerreiraTelles/comu/internal/models"

	"github.com/gin-gonic/gin"
)

// 注册
func (h *Handlers) createAccount(c *gin.Context) {
	var req models.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.Accounts.CreateAccount(c.Request.Context(), req.Email, req.Password, req.Nickname)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// 登录
func (h *Handlers) signIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tok, sess, u, err := h.Accounts.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SessionResponse{Token: tok, ExpiresAt: sess.ExpiresAt.UnixMilli(), User: u})
}

// 登出
func (h *Handlers) signOut(c *gin.Context) {
	if err := h.Accounts.SignOut(c.Request.Context(), SessionFrom(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) me(c *gin.Context) {
	u, err := h.Identity.Resolve(c.Request.Context(), SessionFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handlers) setBlockedWords(c *gin.Context) {
	var req models.BlockedWordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	words, err := h.Moderation.SetBlockedWords(c.Request.Context(), SessionFrom(c), req.Words)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"words": words})
}
