package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/pkg/oauth"
	"github.com/qs3c/lingo_go_server/internal/pkg/response"
	"github.com/qs3c/lingo_go_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	stateStore  *oauth.StateStore
	frontendURL string
}

func NewAuthHandler(authService *service.AuthService, stateStore *oauth.StateStore, frontendURL string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		stateStore:  stateStore,
		frontendURL: frontendURL,
	}
}

// Register 用户注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailExists):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrUsernameExists):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "注册成功，请查收验证邮件", resp)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.AuthError(c, err.Error())
		case errors.Is(err, service.ErrEmailNotVerified):
			response.AuthError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}

// VerifyEmail 验证邮箱
// POST /api/v1/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.VerifyEmail(req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidVerifyCode):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "邮箱验证成功", resp)
}

// GithubAuth 跳转 GitHub 授权页
// GET /api/v1/auth/github?redirect_uri=xxx
func (h *AuthHandler) GithubAuth(c *gin.Context) {
	redirectURI := c.Query("redirect_uri")

	state, err := h.stateStore.GenerateState(c.Request.Context(), redirectURI)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.authService.GetGithubAuthURL(state))
}

// GithubCallback GitHub OAuth 回调
// GET /api/v1/auth/github/callback?code=xxx&state=xxx
func (h *AuthHandler) GithubCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		response.ParamError(c, "缺少授权码")
		return
	}

	redirectURI, err := h.stateStore.ValidateState(c.Request.Context(), state)
	if err != nil {
		response.AuthError(c, "授权状态无效或已过期")
		return
	}

	resp, err := h.authService.GithubCallback(c.Request.Context(), code)
	if err != nil {
		response.ServerError(c, "GitHub 登录失败")
		return
	}

	// 前端回调地址存在时带 token 跳回，否则直接返回 JSON
	if redirectURI == "" {
		redirectURI = h.frontendURL
	}
	if redirectURI != "" {
		c.Redirect(http.StatusTemporaryRedirect, fmt.Sprintf("%s?token=%s", redirectURI, resp.Token))
		return
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}
