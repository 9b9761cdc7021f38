package utils

import (
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/shopspring/decimal"
)

// ValidateHours 检查单日工时是否在 (0, maxPerDay] 范围内
func ValidateHours(hours decimal.Decimal, maxPerDay decimal.Decimal) error {
	if !hours.IsPositive() {
		return domain.NewValidationError("工时必须大于 0")
	}
	if hours.GreaterThan(maxPerDay) {
		return domain.NewValidationError("单日工时不能超过 %s 小时", maxPerDay.String())
	}
	return nil
}

// ValidateEstimateCeiling 检查总工时没有超过预估工时，超出时返回具体的超出量
func ValidateEstimateCeiling(total decimal.Decimal, estimated decimal.Decimal) error {
	if total.GreaterThan(estimated) {
		return domain.NewExceedsEstimateError(total.Sub(estimated))
	}
	return nil
}

func ValidateQuickConfig(cfg domain.QuickConfig, estimated decimal.Decimal, maxPerDay decimal.Decimal) error {
	if !cfg.HoursPerDay.IsPositive() {
		return domain.NewValidationError("每日工时必须大于 0")
	}
	if cfg.HoursPerDay.GreaterThan(maxPerDay) {
		return domain.NewValidationError("每日工时不能超过 %s 小时", maxPerDay.String())
	}
	if !cfg.TotalHours.IsPositive() {
		return domain.NewValidationError("总工时必须大于 0")
	}

	return ValidateEstimateCeiling(cfg.TotalHours, estimated)
}

func ValidateAdvancedConfig(cfg domain.AdvancedConfig, estimated decimal.Decimal, maxPerDay decimal.Decimal) error {
	total := decimal.Zero
	enabled := 0

	for i, day := range cfg.Days {
		if !day.Enabled {
			continue
		}
		enabled++

		if !day.Hours.IsPositive() {
			return domain.NewValidationError("第 %d 天的工时必须大于 0", i+1)
		}
		if day.Hours.GreaterThan(maxPerDay) {
			return domain.NewValidationError("第 %d 天的工时不能超过 %s 小时", i+1, maxPerDay.String())
		}

		total = total.Add(day.Hours)
	}

	if enabled == 0 {
		return domain.NewValidationError("至少需要选择一天")
	}

	return ValidateEstimateCeiling(total, estimated)
}

// ValidatePlan 对最终生成的计划再做一次检查，防止计划和配置不一致
func ValidatePlan(plan *domain.DistributionPlan, estimated decimal.Decimal, maxPerDay decimal.Decimal) error {
	if len(plan.Entries) == 0 {
		return domain.NewValidationError("分配计划为空")
	}

	seen := make(map[string]bool)
	for _, entry := range plan.Entries {
		if err := ValidateHours(entry.Hours, maxPerDay); err != nil {
			return err
		}

		key := entry.Date.Format("2006-01-02")
		if seen[key] {
			return domain.NewValidationError("分配计划中存在重复的日期 %s", key)
		}
		seen[key] = true
	}

	return ValidateEstimateCeiling(plan.TotalHours(), estimated)
}

func ValidateAssignmentPatch(patch domain.AssignmentPatch, maxPerDay decimal.Decimal) error {
	if patch.IsEmpty() {
		return domain.NewValidationError("没有需要修改的字段")
	}
	if patch.AllocatedHours != nil {
		if err := ValidateHours(*patch.AllocatedHours, maxPerDay); err != nil {
			return err
		}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.NewValidationError("无效的分配状态 %s", *patch.Status)
	}
	return nil
}
