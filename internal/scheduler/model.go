package scheduler

import (
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/shopspring/decimal"
)

// 分配计划参数
type Parameters struct {
	MaxHoursPerDay decimal.Decimal // 单日工时上限，不能超过 domain.MaxHoursPerDay
	MaxPlanDays    int             // 快速模式一次最多生成的工作日数量
}

func DefaultParameters() *Parameters {
	return &Parameters{
		MaxHoursPerDay: domain.MaxHoursPerDay,
		MaxPlanDays:    260, // 大约一年的工作日
	}
}
