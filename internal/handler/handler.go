package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/ludwigramirez-source/nexus-sub002/internal/capacity"
	"github.com/ludwigramirez-source/nexus-sub002/internal/config"
	"github.com/ludwigramirez-source/nexus-sub002/internal/coordinator"
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/ludwigramirez-source/nexus-sub002/internal/editbuffer"
)

// Store 是 handler 加载实体时用到的查询
type Store interface {
	GetRequestByID(ctx context.Context, id int64) (*domain.Request, error)
	GetAssignmentByID(ctx context.Context, id int64) (*domain.Assignment, error)
	GetTeamMemberByID(ctx context.Context, id int64) (*domain.TeamMember, error)
}

// RequestLister 列出待分配队列中的需求
type RequestLister interface {
	List(ctx context.Context) ([]*domain.Request, error)
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	translator  ut.Translator
	location    *time.Location
	store       Store
	coordinator *coordinator.Coordinator
	evaluator   *capacity.Evaluator
	pool        RequestLister
	edits       *editbuffer.Buffer
	metrics     http.Handler

	Mux *chi.Mux
}

type Dependencies struct {
	Store       Store
	Coordinator *coordinator.Coordinator
	Pool        RequestLister
	// Edits 为空时 PATCH 请求总是同步写入
	Edits *editbuffer.Buffer
	// Metrics 为空时不注册 /metrics
	Metrics http.Handler
}

func NewHandler(cfg *config.Config, deps Dependencies) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		translator:  trans,
		location:    loc,
		store:       deps.Store,
		coordinator: deps.Coordinator,
		evaluator:   capacity.NewEvaluator(deps.Coordinator.Ledger()),
		pool:        deps.Pool,
		edits:       deps.Edits,
		metrics:     deps.Metrics,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	if h.metrics != nil {
		h.Mux.Method(http.MethodGet, "/metrics", h.metrics)
	}

	// 以下 API 必须携带有效的令牌
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/requests", func(r chi.Router) {
			r.Get("/unassigned", h.GetUnassignedRequests)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.requestInfo)
				r.Post("/plan-preview", h.PreviewPlan)
				r.Post("/assignments", h.ConfirmPlan)
				r.Get("/assignments", h.GetRequestAssignments)
			})
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.GetWeeklyView)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.assignmentInfo)
				r.Get("/", h.GetAssignment)
				r.Patch("/", h.UpdateAssignment)
				r.Delete("/", h.DeleteAssignment)
			})
		})

		r.Route("/team-members/{id}", func(r chi.Router) {
			r.Use(h.teamMemberInfo)
			r.Get("/utilization", h.GetUtilization)
		})
	})
}
