package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	apikeydomain "github.com/checkvibe/gatekeeper/internal/apikey/domain"
	auditdomain "github.com/checkvibe/gatekeeper/internal/audit/domain"
	usagedomain "github.com/checkvibe/gatekeeper/internal/usage/domain"
	"github.com/checkvibe/gatekeeper/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListAPIKeys(c *gin.Context) {
	ac, ok := mustAuthContext(c)
	if !ok {
		return
	}

	keys, err := s.apiKeySvc.List(c.Request.Context(), ac.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

func (s *Server) CreateAPIKey(c *gin.Context) {
	ac, ok := mustAuthContext(c)
	if !ok {
		return
	}

	var req apikeydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.apiKeySvc.Create(c.Request.Context(), ac.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.Entry{
		UserID:     ac.UserID,
		Action:     auditdomain.ActionAPIKeyCreated,
		TargetType: auditdomain.TargetTypeAPIKey,
		TargetID:   resp.ID,
		Metadata: map[string]any{
			"name":       resp.Name,
			"key_prefix": resp.KeyPrefix,
			"scopes":     resp.Scopes,
			"expires_at": resp.ExpiresAt,
		},
	})

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) UpdateAPIKey(c *gin.Context) {
	ac, ok := mustAuthContext(c)
	if !ok {
		return
	}

	var req apikeydomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.apiKeySvc.Update(c.Request.Context(), ac.UserID, strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.Entry{
		UserID:     ac.UserID,
		Action:     auditdomain.ActionAPIKeyUpdated,
		TargetType: auditdomain.TargetTypeAPIKey,
		TargetID:   resp.ID,
		Metadata:   map[string]any{"fields": updatedFields(req)},
	})

	c.JSON(http.StatusOK, resp)
}

func (s *Server) RevokeAPIKey(c *gin.Context) {
	ac, ok := mustAuthContext(c)
	if !ok {
		return
	}

	keyID := strings.TrimSpace(c.Param("id"))
	err := s.apiKeySvc.Revoke(c.Request.Context(), ac.UserID, keyID)
	if err != nil {
		if errors.Is(err, apikeydomain.ErrNotFound) || errors.Is(err, apikeydomain.ErrInvalidKeyID) {
			err = &apiError{status: http.StatusNotFound, message: "Key not found or already revoked"}
		}
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.Entry{
		UserID:     ac.UserID,
		Action:     auditdomain.ActionAPIKeyRevoked,
		TargetType: auditdomain.TargetTypeAPIKey,
		TargetID:   keyID,
	})

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) GetAPIKeyUsage(c *gin.Context) {
	ac, ok := mustAuthContext(c)
	if !ok {
		return
	}

	var filter usagedomain.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		AbortWithError(c, badRequest("Invalid usage filter"))
		return
	}
	var page pagination.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, badRequest("limit and offset must be integers"))
		return
	}

	result, err := s.usageSvc.Query(c.Request.Context(), ac.UserID, strings.TrimSpace(c.Param("id")), filter, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) GetAPIKeyActivity(c *gin.Context) {
	ac, ok := mustAuthContext(c)
	if !ok {
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, badRequest("limit must be an integer"))
			return
		}
		limit = parsed
	}

	logs, err := s.usageSvc.Activity(c.Request.Context(), ac.UserID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if logs == nil {
		logs = []usagedomain.ActivityEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func updatedFields(req apikeydomain.UpdateRequest) []string {
	fields := make([]string, 0, 4)
	if req.Name != nil {
		fields = append(fields, "name")
	}
	if req.Scopes != nil {
		fields = append(fields, "scopes")
	}
	if req.AllowedDomains.Set {
		fields = append(fields, "allowed_domains")
	}
	if req.AllowedIPs.Set {
		fields = append(fields, "allowed_ips")
	}
	return fields
}
