package server

import (
	"net/http"

	auditdomain "github.com/checkvibe/gatekeeper/internal/audit/domain"
	"github.com/checkvibe/gatekeeper/internal/observability/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// recordAudit writes an audit entry for the current request. Audit failures
// never fail the request.
func (s *Server) recordAudit(c *gin.Context, entry auditdomain.Entry) {
	if s.auditSvc == nil {
		return
	}
	if entry.IPAddress == "" {
		entry.IPAddress = c.ClientIP()
	}
	if entry.UserAgent == "" {
		entry.UserAgent = c.Request.UserAgent()
	}
	if err := s.auditSvc.AuditLog(c.Request.Context(), entry); err != nil {
		logger.FromContext(c.Request.Context()).Warn("audit log write failed",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	ac, ok := mustAuthContext(c)
	if !ok {
		return
	}
	if s.auditSvc == nil {
		c.JSON(http.StatusOK, auditdomain.ListAuditLogResponse{AuditLogs: []auditdomain.AuditLog{}})
		return
	}

	var req auditdomain.ListAuditLogRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, badRequest("Invalid audit log filter"))
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), ac.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
