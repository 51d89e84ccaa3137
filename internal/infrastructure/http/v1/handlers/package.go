package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	appctx "cannapos/internal/core/context"
	"cannapos/internal/core/entity"
	"cannapos/internal/domain/compliance"
	"cannapos/internal/infrastructure/http/v1/dto"
)

// PackageHandler serves /packages and /adjustments.
type PackageHandler struct {
	BaseHandler
	svc *compliance.Service
}

// NewPackageHandler creates a package handler.
func NewPackageHandler(svc *compliance.Service) *PackageHandler {
	return &PackageHandler{svc: svc}
}

// Drift handles GET /packages/drift.
func (h *PackageHandler) Drift(c *gin.Context) {
	var q dto.DriftQuery
	if !h.BindQuery(c, &q) {
		return
	}
	key, err := compliance.ParseSortKey(q.Sort)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	ctx := c.Request.Context()
	page, err := h.svc.Drift(ctx, compliance.DriftFilter{
		DispensaryID: appctx.GetDispensaryID(ctx),
		SortKey:      key,
		Desc:         q.Desc,
		Limit:        q.Limit,
		Offset:       q.Offset,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, page)
}

// Pending handles GET /packages/adjustments.
func (h *PackageHandler) Pending(c *gin.Context) {
	ctx := c.Request.Context()
	rows, err := h.svc.PendingAdjustments(ctx, appctx.GetDispensaryID(ctx))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if rows == nil {
		rows = []*entity.AdjustPackage{}
	}
	h.OK(c, rows)
}

// Adjust handles POST /packages/:id/adjust.
func (h *PackageHandler) Adjust(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustRequest
	if !h.BindJSON(c, &req) {
		return
	}
	a, err := h.svc.Adjust(c.Request.Context(), compliance.AdjustInput{
		PackageID:     id,
		NewQty:        req.NewQty,
		Reason:        req.Reason,
		Notes:         req.Notes,
		NeedMetrcSync: req.NeedMetrcSync,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, a)
}

// Reconcile handles POST /adjustments/:id/reconcile.
func (h *PackageHandler) Reconcile(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.Reconcile(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, a)
}

// CancelReconcile handles DELETE /adjustments/:id.
func (h *PackageHandler) CancelReconcile(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.CancelReconcile(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, dto.SuccessResponse{Success: true})
}

// Finish handles POST /packages/:id/finish.
func (h *PackageHandler) Finish(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.FinishRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p, err := h.svc.Finish(c.Request.Context(), id, req.ActualDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, p)
}

// Reactivate handles POST /packages/:id/reactivate.
func (h *PackageHandler) Reactivate(c *gin.Context) { h.transition(c, h.svc.Reactivate) }

// Hold handles POST /packages/:id/hold.
func (h *PackageHandler) Hold(c *gin.Context) { h.transition(c, h.svc.Hold) }

// Unhold handles POST /packages/:id/unhold.
func (h *PackageHandler) Unhold(c *gin.Context) { h.transition(c, h.svc.Unhold) }

// FinishEmpty handles POST /packages/finish-empty.
func (h *PackageHandler) FinishEmpty(c *gin.Context) {
	var req dto.FinishRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	n, err := h.svc.FinishEmpty(ctx, appctx.GetDispensaryID(ctx), req.ActualDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, dto.CountResponse{Count: n})
}

// Sync handles POST /packages/sync.
func (h *PackageHandler) Sync(c *gin.Context) {
	ctx := c.Request.Context()
	run, err := h.svc.SyncPackages(ctx, appctx.GetDispensaryID(ctx), appctx.GetUserID(ctx))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, run)
}

func (h *PackageHandler) transition(c *gin.Context, fn func(ctx context.Context, id int64) (*entity.Package, error)) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, p)
}
