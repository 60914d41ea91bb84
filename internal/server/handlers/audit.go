package handlers

import (
	"net/http"

	"github.com/svckit/svckit/internal/audit"
	"github.com/svckit/svckit/internal/core"
	"github.com/svckit/svckit/internal/store"
)

// Audit exposes the persisted audit trail, newest first.
type Audit struct {
	store *store.Store
}

// NewAudit creates the audit handler set.
func NewAudit(s *store.Store) *Audit {
	return &Audit{store: s}
}

// AuditListResponse wraps an audit trail page.
type AuditListResponse struct {
	Items []audit.Record `json:"items"`
	Page  core.Page      `json:"page"`
}

func (h *Audit) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	records, total, err := h.store.ListAuditRecords(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuditListResponse{
		Items: records,
		Page:  core.Page{Page: page, PageSize: pageSize, Total: total},
	})
}
