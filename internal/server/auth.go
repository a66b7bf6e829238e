package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/checkvibe/gatekeeper/internal/audit/domain"
	authdomain "github.com/checkvibe/gatekeeper/internal/auth/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) Login(c *gin.Context) {
	var req authdomain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		AbortWithError(c, badRequest("Email and password are required"))
		return
	}

	req.UserAgent = c.Request.UserAgent()
	req.IPAddress = c.ClientIP()
	result, err := s.authsvc.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, authdomain.ErrInvalidCredentials) {
			s.recordAudit(c, auditdomain.Entry{
				Action:     auditdomain.ActionLoginFailed,
				TargetType: auditdomain.TargetTypeUser,
				Metadata:   map[string]any{"email": strings.ToLower(strings.TrimSpace(req.Email))},
			})
		}
		AbortWithError(c, err)
		return
	}

	userID, _ := snowflake.ParseString(result.User.ID)
	s.recordAudit(c, auditdomain.Entry{
		UserID:     userID,
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    result.User.ID,
		Action:     auditdomain.ActionLogin,
		TargetType: auditdomain.TargetTypeUser,
		TargetID:   result.User.ID,
		Metadata:   map[string]any{"session_id": result.SessionID.String()},
	})

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{
		"user":       result.User,
		"expires_at": result.ExpiresAt,
	})
}

// Logout revokes the current session. A missing or stale cookie still clears.
func (s *Server) Logout(c *gin.Context) {
	if token, ok := s.sessions.ReadToken(c); ok {
		ctx := c.Request.Context()
		session, _ := s.authsvc.Authenticate(ctx, token)
		err := s.authsvc.Logout(ctx, token)
		if err != nil && !errors.Is(err, authdomain.ErrInvalidSession) {
			AbortWithError(c, err)
			return
		}
		if err == nil && session != nil {
			s.recordAudit(c, auditdomain.Entry{
				UserID:     session.UserID,
				ActorType:  auditdomain.ActorTypeUser,
				ActorID:    session.UserID.String(),
				Action:     auditdomain.ActionLogout,
				TargetType: auditdomain.TargetTypeUser,
				TargetID:   session.UserID.String(),
				Metadata:   map[string]any{"session_id": session.ID.String()},
			})
		}
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	ac, ok := mustAuthContext(c)
	if !ok {
		return
	}

	user, err := s.authsvc.GetUser(c.Request.Context(), ac.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{
		"user":        user.View(),
		"auth_method": ac.Method,
		"scopes":      ac.Scopes,
	}
	if ac.IsAPIKey() {
		resp["key_id"] = ac.KeyID.String()
	}
	c.JSON(http.StatusOK, resp)
}
