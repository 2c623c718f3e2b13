package handlers

import (
	"errors"
	nethttp "net/http"
	"strconv"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/pagination"
	"github.com/Lucas-Zerino/grows-gateway/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

// listOutbox exposes outbox records for audit, mainly terminally failed ones
// that need manual inspection.
func (h *Handler) listOutbox(c *gin.Context) {
	status := entity.OutboxStatus(c.DefaultQuery("status", string(entity.OutboxFailed)))
	switch status {
	case entity.OutboxPending, entity.OutboxProcessing, entity.OutboxCompleted, entity.OutboxFailed:
	default:
		response.RespondError(c, nethttp.StatusBadRequest, "invalid status")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	cursor := c.Query("cursor")

	records, err := h.outbox.ListByStatus(c.Request.Context(), status, limit, cursor)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			response.RespondError(c, nethttp.StatusBadRequest, "invalid cursor")
			return
		}
		response.RespondError(c, nethttp.StatusInternalServerError, "list failed")
		return
	}

	meta := &response.Meta{}
	if len(records) > 0 && (limit <= 0 || len(records) == limit) {
		last := records[len(records)-1]
		meta.NextCursor = pagination.Encode(last.CreatedAt, last.ID)
	}
	response.RespondOK(c, nethttp.StatusOK, records, meta)
}
