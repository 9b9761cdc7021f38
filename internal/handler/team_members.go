package handler

import (
	"net/http"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/calendar"
	"github.com/ludwigramirez-source/nexus-sub002/internal/capacity"
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
)

// GetUtilization 返回成员某一天以及所在周的利用率，date 为空时使用今天
func (h *Handler) GetUtilization(w http.ResponseWriter, r *http.Request) {
	member := r.Context().Value(TeamMemberCtx).(*domain.TeamMember)

	date := calendar.NormalizeDay(time.Now().In(h.location))
	if s := r.URL.Query().Get("date"); s != "" {
		parsed, err := calendar.ParseDay(s, h.location)
		if err != nil {
			h.errorResponse(w, r, "日期格式错误")
			return
		}
		date = parsed
	}

	day, err := h.evaluator.DayUtilization(r.Context(), member, date)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	week, err := h.evaluator.WeekUtilization(r.Context(), member, date)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取成员利用率成功", struct {
		Day  *capacity.Utilization `json:"day"`
		Week *capacity.Utilization `json:"week"`
	}{day, week})
}
