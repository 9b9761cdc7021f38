package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DistributionMode string

const (
	DistributionModeQuick    DistributionMode = "quick"
	DistributionModeAdvanced DistributionMode = "advanced"
)

// DistributionConfig 只有 QuickConfig 和 AdvancedConfig 两种实现
type DistributionConfig interface {
	Mode() DistributionMode
	AnchorDate() time.Time
}

// QuickConfig 按固定速率逐日分配
type QuickConfig struct {
	Anchor      time.Time       `json:"anchorDate"`
	HoursPerDay decimal.Decimal `json:"hoursPerDay"`
	TotalHours  decimal.Decimal `json:"totalHours"`
}

func (c QuickConfig) Mode() DistributionMode { return DistributionModeQuick }
func (c QuickConfig) AnchorDate() time.Time  { return c.Anchor }

// DaySelection 高级模式下某一天的手动配置
type DaySelection struct {
	Enabled bool            `json:"enabled"`
	Hours   decimal.Decimal `json:"hours"`
}

// AdvancedConfig 固定 5 个工作日的窗口，每天可单独启用并指定工时
type AdvancedConfig struct {
	Anchor time.Time       `json:"anchorDate"`
	Days   [5]DaySelection `json:"days"`
}

func (c AdvancedConfig) Mode() DistributionMode { return DistributionModeAdvanced }
func (c AdvancedConfig) AnchorDate() time.Time  { return c.Anchor }

type PlanEntry struct {
	Date  time.Time       `json:"date"`
	Hours decimal.Decimal `json:"hours"`
}

// DistributionPlan 不会被持久化，只有校验通过后才能转换为 Assignment
type DistributionPlan struct {
	Mode    DistributionMode `json:"mode"`
	Entries []PlanEntry      `json:"entries"`
}

func (p *DistributionPlan) TotalHours() decimal.Decimal {
	total := decimal.Zero
	for _, e := range p.Entries {
		total = total.Add(e.Hours)
	}
	return total
}
