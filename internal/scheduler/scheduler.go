package scheduler

import (
	"fmt"

	"github.com/ludwigramirez-source/nexus-sub002/internal/calendar"
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/ludwigramirez-source/nexus-sub002/internal/utils"
	"github.com/shopspring/decimal"
)

// Scheduler 根据配置计算逐日的工时分配计划，不产生任何副作用
type Scheduler struct {
	parameters *Parameters
}

func New(parameters *Parameters) *Scheduler {
	defaults := DefaultParameters()
	if parameters == nil {
		return &Scheduler{parameters: defaults}
	}

	p := *parameters
	if !p.MaxHoursPerDay.IsPositive() {
		p.MaxHoursPerDay = defaults.MaxHoursPerDay
	}
	// 配置只能收紧单日上限，不能放宽
	p.MaxHoursPerDay = decimal.Min(p.MaxHoursPerDay, domain.MaxHoursPerDay)
	if p.MaxPlanDays <= 0 {
		p.MaxPlanDays = defaults.MaxPlanDays
	}

	return &Scheduler{
		parameters: &p,
	}
}

func (s *Scheduler) MaxHoursPerDay() decimal.Decimal {
	return s.parameters.MaxHoursPerDay
}

// Validate 只校验配置本身，不生成计划
func (s *Scheduler) Validate(cfg domain.DistributionConfig, estimated decimal.Decimal) error {
	switch c := cfg.(type) {
	case domain.QuickConfig:
		if err := utils.ValidateQuickConfig(c, estimated, s.parameters.MaxHoursPerDay); err != nil {
			return err
		}
		if days := estimateDays(c.TotalHours, c.HoursPerDay); days > s.parameters.MaxPlanDays {
			return domain.NewValidationError("分配计划需要 %d 个工作日，超过上限 %d", days, s.parameters.MaxPlanDays)
		}
		return nil
	case domain.AdvancedConfig:
		return utils.ValidateAdvancedConfig(c, estimated, s.parameters.MaxHoursPerDay)
	default:
		return domain.NewValidationError("不支持的分配模式")
	}
}

// Plan 校验配置并生成分配计划
func (s *Scheduler) Plan(cfg domain.DistributionConfig, estimated decimal.Decimal) (*domain.DistributionPlan, error) {
	if err := s.Validate(cfg, estimated); err != nil {
		return nil, err
	}

	var plan *domain.DistributionPlan
	switch c := cfg.(type) {
	case domain.QuickConfig:
		plan = s.distributeQuick(c)
	case domain.AdvancedConfig:
		plan = s.distributeAdvanced(c)
	default:
		// Validate 已经拦截了未知类型
		return nil, fmt.Errorf("unknown distribution config %T", cfg)
	}

	// 还需要检查一下结果是否满足约束条件
	if err := utils.ValidatePlan(plan, estimated, s.parameters.MaxHoursPerDay); err != nil {
		return nil, err
	}

	return plan, nil
}

/**
 * 快速模式：从锚点开始按时间顺序遍历工作日
 * 每天分配 min(hoursPerDay, remaining, maxHoursPerDay)，直到剩余工时为 0
 * 每一天只会被访问一次，最多需要 ceil(totalHours / hoursPerDay) 个工作日
 */
func (s *Scheduler) distributeQuick(cfg domain.QuickConfig) *domain.DistributionPlan {
	perDay := decimal.Min(cfg.HoursPerDay, s.parameters.MaxHoursPerDay)
	remaining := cfg.TotalHours

	plan := &domain.DistributionPlan{
		Mode:    domain.DistributionModeQuick,
		Entries: make([]domain.PlanEntry, 0, estimateDays(cfg.TotalHours, perDay)),
	}

	walker := calendar.NewWalker(cfg.Anchor)
	for remaining.IsPositive() {
		hours := decimal.Min(perDay, remaining)
		plan.Entries = append(plan.Entries, domain.PlanEntry{
			Date:  walker.Next(),
			Hours: hours,
		})
		remaining = remaining.Sub(hours)
	}

	return plan
}

// 高级模式：固定 5 个工作日的窗口，只取启用的日期，工时由调用方给定
func (s *Scheduler) distributeAdvanced(cfg domain.AdvancedConfig) *domain.DistributionPlan {
	window := calendar.BusinessDays(cfg.Anchor, calendar.WeekLength)

	plan := &domain.DistributionPlan{
		Mode:    domain.DistributionModeAdvanced,
		Entries: make([]domain.PlanEntry, 0, calendar.WeekLength),
	}

	for i, day := range cfg.Days {
		if !day.Enabled {
			continue
		}
		plan.Entries = append(plan.Entries, domain.PlanEntry{
			Date:  window[i],
			Hours: day.Hours,
		})
	}

	return plan
}

func estimateDays(total, perDay decimal.Decimal) int {
	if !perDay.IsPositive() {
		return 0
	}
	return int(total.Div(perDay).Ceil().IntPart())
}
