package server

import (
	"errors"
	"net/http"

	auditdomain "github.com/checkvibe/gatekeeper/internal/audit/domain"
	"github.com/checkvibe/gatekeeper/internal/authn"
	"github.com/checkvibe/gatekeeper/internal/targeturl"
	"github.com/gin-gonic/gin"
)

type validateTargetRequest struct {
	URL string `json:"url"`
}

// ValidateTarget vets a scan target before it is handed to the scanner.
func (s *Server) ValidateTarget(c *gin.Context) {
	ac, ok := mustAuthContext(c)
	if !ok {
		return
	}

	var req validateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()
	target, err := targeturl.Validate(req.URL)
	if err != nil {
		s.recordTargetValidation(c, req.URL, err)
		AbortWithError(c, err)
		return
	}

	if err := authn.RequireDomain(ac, target.Hostname()); err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{"valid": true, "url": target.String()}
	if s.targetResolver != nil {
		resolution, err := s.targetResolver.ResolveAndValidate(ctx, req.URL)
		if err != nil {
			s.recordTargetValidation(c, req.URL, err)
			AbortWithError(c, err)
			return
		}
		addrs := make([]string, 0, len(resolution.Addrs))
		for _, addr := range resolution.Addrs {
			addrs = append(addrs, addr.String())
		}
		resp["addresses"] = addrs
	}

	s.obsMetrics.RecordTargetValidation(ctx, true, "")
	c.JSON(http.StatusOK, resp)
}

func (s *Server) recordTargetValidation(c *gin.Context, rawURL string, err error) {
	reason := "error"
	var validation *targeturl.ValidationError
	if errors.As(err, &validation) {
		reason = targetRejectReason(validation.Message)
	}
	s.obsMetrics.RecordTargetValidation(c.Request.Context(), false, reason)

	// Attempts to reach internal infrastructure are kept in the audit trail.
	if reason == "internal" || reason == "private_address" {
		s.recordAudit(c, auditdomain.Entry{
			Action:     auditdomain.ActionTargetRejected,
			TargetType: auditdomain.TargetTypeURL,
			Metadata:   map[string]any{"url": rawURL, "reason": reason},
		})
	}
}

func targetRejectReason(message string) string {
	switch message {
	case targeturl.MsgRequired:
		return "required"
	case targeturl.MsgTooLong:
		return "too_long"
	case targeturl.MsgInvalidFormat:
		return "invalid_format"
	case targeturl.MsgSchemeNotAllow:
		return "scheme"
	case targeturl.MsgInternal:
		return "internal"
	case targeturl.MsgUnresolvable:
		return "unresolvable"
	case targeturl.MsgResolvesToIP:
		return "private_address"
	default:
		return "other"
	}
}
