package handler

import (
	"errors"
	"net/http"

	"github.com/ludwigramirez-source/nexus-sub002/internal/calendar"
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/shopspring/decimal"
)

func (h *Handler) GetWeeklyView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start string `validate:"required,datetime=2006-01-02"`
		End   string `validate:"required,datetime=2006-01-02"`
	}
	req.Start = r.URL.Query().Get("start")
	req.End = r.URL.Query().Get("end")

	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	start, err := calendar.ParseDay(req.Start, h.location)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	end, err := calendar.ParseDay(req.End, h.location)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	weeks, err := h.coordinator.Ledger().WeeklyView(r.Context(), start, end)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取分配视图成功", weeks)
}

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	a := r.Context().Value(AssignmentCtx).(*domain.Assignment)
	h.successResponse(w, r, "获取分配成功", a)
}

func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AllocatedHours *decimal.Decimal `json:"allocatedHours"`
		Notes          *string          `json:"notes" validate:"omitempty,max=500"`
		Status         *string          `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	patch := domain.AssignmentPatch{
		AllocatedHours: req.AllocatedHours,
		Notes:          req.Notes,
	}
	if req.Status != nil {
		status := domain.AssignmentStatus(*req.Status)
		patch.Status = &status
	}

	a := r.Context().Value(AssignmentCtx).(*domain.Assignment)
	actor := actorFromRequest(r)

	// ?buffered=true 时合并短时间内的连续修改，稍后统一写入
	// 暂存前先校验，否则错误只会在写入时出现在日志里
	if h.edits != nil && r.URL.Query().Get("buffered") == "true" {
		if err := h.coordinator.ValidatePatch(patch); err != nil {
			h.domainError(w, r, err)
			return
		}
		if err := h.edits.Submit(a.ID, patch, actor); err != nil {
			h.domainError(w, r, err)
			return
		}
		h.successResponse(w, r, "修改已暂存", nil)
		return
	}

	result, err := h.coordinator.UpdateAssignment(r.Context(), a.ID, patch, actor)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新分配成功", result)
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	a := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	result, err := h.coordinator.DeleteAssignment(r.Context(), a.ID, actorFromRequest(r))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.errorResponse(w, r, "分配不存在")
			return
		}
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除分配成功", result)
}
