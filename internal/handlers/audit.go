package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/esalinasbarros/zmartboard/internal/services"
	"github.com/esalinasbarros/zmartboard/pkg/response"
)

// AuditHandler exposes audit log queries to platform admins.
type AuditHandler struct {
	audit   *services.AuditService
	members *services.MembershipService
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(audit *services.AuditService, members *services.MembershipService) (*AuditHandler, error) {
	if audit == nil {
		return nil, errors.New("audit handler: audit service is required")
	}
	if members == nil {
		return nil, errors.New("audit handler: membership service is required")
	}
	return &AuditHandler{audit: audit, members: members}, nil
}

// GET /api/audit (platform admins only)
func (h *AuditHandler) List(c *gin.Context) {
	ctx := requestContext(c)

	if _, err := h.members.RequireSystemAdmin(ctx, currentUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	page := parseIntQuery(c, "page", 1)
	per := parseIntQuery(c, "per_page", 50)

	var filters services.AuditFilters
	filters.UserID = c.Query("user_id")
	filters.Action = c.Query("action")
	filters.Result = c.Query("result")
	filters.Resource = c.Query("resource")

	if s := c.Query("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			filters.Since = &t
		}
	}
	if u := c.Query("until"); u != "" {
		if t, err := time.Parse(time.RFC3339, u); err == nil {
			filters.Until = &t
		}
	}

	logs, total, err := h.audit.List(ctx, services.AuditListOptions{Page: page, PageSize: per, Filters: filters})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{Page: page, PerPage: per, Total: int(total)})
}
