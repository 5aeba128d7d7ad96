package handler

import (
	"log/slog"

	"finance-portal/internal/service"
	"finance-portal/internal/util"

	"github.com/gin-gonic/gin"
)

type MemberHandler struct {
	Members *service.MemberService
	Log     *slog.Logger
}

func NewMemberHandler(members *service.MemberService, log *slog.Logger) *MemberHandler {
	return &MemberHandler{Members: members, Log: log}
}

// List GET /api/members?query=&page=
func (h *MemberHandler) List(c *gin.Context) {
	page, err := h.Members.FilteredMembers(c.Request.Context(), c.Query("query"), queryInt(c, "page", 1))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	items := make([]gin.H, 0, len(page.Rows))
	for _, m := range page.Rows {
		items = append(items, gin.H{
			"id":        m.ID,
			"nameFull":  m.NameFull,
			"nameFirst": m.NameFirst,
			"nameLast":  m.NameLast,
			"email":     m.Email,
			"address":   m.Address,
			"city":      m.City,
			"postal":    m.Postal,
			"createdAt": m.CreatedAt,
		})
	}
	util.Success(c, util.Response{"data": items, "pagination": page.Pagination})
}
