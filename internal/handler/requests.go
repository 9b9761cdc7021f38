package handler

import (
	"errors"
	"net/http"

	"github.com/ludwigramirez-source/nexus-sub002/internal/calendar"
	"github.com/ludwigramirez-source/nexus-sub002/internal/coordinator"
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/shopspring/decimal"
)

type dayRequest struct {
	Enabled bool            `json:"enabled"`
	Hours   decimal.Decimal `json:"hours"`
}

// distributionRequest 快速模式使用 hoursPerDay 和 totalHours，高级模式使用 days
type distributionRequest struct {
	Mode        string          `json:"mode" validate:"required,oneof=quick advanced"`
	AnchorDate  string          `json:"anchorDate" validate:"required,datetime=2006-01-02"`
	HoursPerDay decimal.Decimal `json:"hoursPerDay"`
	TotalHours  decimal.Decimal `json:"totalHours"`
	Days        []dayRequest    `json:"days"`
}

func (h *Handler) toDistributionConfig(req distributionRequest) (domain.DistributionConfig, error) {
	anchor, err := calendar.ParseDay(req.AnchorDate, h.location)
	if err != nil {
		return nil, errors.New("锚点日期格式错误")
	}

	switch domain.DistributionMode(req.Mode) {
	case domain.DistributionModeQuick:
		return domain.QuickConfig{
			Anchor:      anchor,
			HoursPerDay: req.HoursPerDay,
			TotalHours:  req.TotalHours,
		}, nil
	case domain.DistributionModeAdvanced:
		if len(req.Days) != calendar.WeekLength {
			return nil, errors.New("高级模式需要提供 5 天的配置")
		}
		cfg := domain.AdvancedConfig{Anchor: anchor}
		for i, day := range req.Days {
			cfg.Days[i] = domain.DaySelection{Enabled: day.Enabled, Hours: day.Hours}
		}
		return cfg, nil
	default:
		return nil, errors.New("不支持的分配模式")
	}
}

func (h *Handler) PreviewPlan(w http.ResponseWriter, r *http.Request) {
	var req distributionRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	cfg, err := h.toDistributionConfig(req)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	request := r.Context().Value(RequestCtx).(*domain.Request)

	plan, err := h.coordinator.Preview(request, cfg)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "生成分配计划成功", struct {
		*domain.DistributionPlan
		TotalHours decimal.Decimal `json:"totalHours"`
	}{plan, plan.TotalHours()})
}

func (h *Handler) ConfirmPlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		distributionRequest
		UserID int64  `json:"userID" validate:"required,gt=0"`
		Notes  string `json:"notes" validate:"max=500"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	cfg, err := h.toDistributionConfig(req.distributionRequest)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	member, err := h.store.GetTeamMemberByID(r.Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.errorResponse(w, r, "成员不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	request := r.Context().Value(RequestCtx).(*domain.Request)

	result, err := h.coordinator.ConfirmPlan(r.Context(), coordinator.ConfirmInput{
		Config:  cfg,
		Request: request,
		Member:  member,
		ActorID: actorFromRequest(r),
		Notes:   req.Notes,
	})
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "分配成功", result)
}

func (h *Handler) GetRequestAssignments(w http.ResponseWriter, r *http.Request) {
	request := r.Context().Value(RequestCtx).(*domain.Request)

	summary, err := h.coordinator.Ledger().Summarize(r.Context(), request)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取需求分配情况成功", summary)
}

func (h *Handler) GetUnassignedRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.pool.List(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取待分配需求成功", requests)
}
