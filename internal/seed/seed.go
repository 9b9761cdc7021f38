package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/ludwigramirez-source/nexus-sub002/internal/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	CreateTeamMember(ctx context.Context, member *domain.TeamMember) error
	CreateRequest(ctx context.Context, req *domain.Request) error
}

// Members 插入 n 个随机成员，返回成功插入的数量
func Members(ctx context.Context, r Repository, n int, emailDomain string) int {
	cnt := 0
	for i := 0; i < n; i++ {
		member := utils.GenerateRandomTeamMember(emailDomain)
		if err := r.CreateTeamMember(ctx, member); err != nil {
			slog.Error("无法插入成员", slog.String("error", err.Error()))
			continue
		}
		cnt++
	}
	return cnt
}

// Requests 插入 n 个随机需求，返回成功插入的数量
func Requests(ctx context.Context, r Repository, n int) int {
	cnt := 0
	for i := 0; i < n; i++ {
		req := utils.GenerateRandomRequest()
		if err := r.CreateRequest(ctx, req); err != nil {
			slog.Error("无法插入需求", slog.String("error", err.Error()))
			continue
		}
		cnt++
	}
	return cnt
}

// CSV 的每一行是一个成员或一个需求，由 kind 列区分
var csvHeaders = []string{"kind", "name", "email", "hours", "type", "priority", "status"}

var requestStatuses = []domain.RequestStatus{
	domain.RequestStatusBacklog,
	domain.RequestStatusPlanned,
	domain.RequestStatusInProgress,
	domain.RequestStatusReview,
	domain.RequestStatusDone,
	domain.RequestStatusCancelled,
}

var requestPriorities = []domain.RequestPriority{
	domain.RequestPriorityLow,
	domain.RequestPriorityMedium,
	domain.RequestPriorityHigh,
	domain.RequestPriorityCritical,
}

type CSVResult struct {
	Members  int
	Requests int
	Skipped  int
}

// CSV 从 CSV 文件中导入真实数据，格式错误的行会被跳过并记录日志
func CSV(ctx context.Context, r Repository, src io.Reader) (*CSVResult, error) {
	reader := csv.NewReader(src)

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ToLower(headers[i]))
	}
	for _, required := range csvHeaders[:4] {
		if !slices.Contains(headers, required) {
			return nil, fmt.Errorf("没有找到 %s 列", required)
		}
	}

	result := &CSVResult{}
	line := 1
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return result, fmt.Errorf("读取第 %d 行失败: %w", line+1, err)
		}
		line++

		record := make(map[string]string, len(headers))
		for i, value := range row {
			if i < len(headers) {
				record[headers[i]] = strings.TrimSpace(value)
			}
		}

		if err := importRecord(ctx, r, record, result); err != nil {
			slog.Error("跳过无效的行", slog.Int("line", line), slog.String("error", err.Error()))
			result.Skipped++
		}
	}

	slog.Info("插入数据完成", slog.Int("members", result.Members), slog.Int("requests", result.Requests), slog.Int("skipped", result.Skipped))
	return result, nil
}

func importRecord(ctx context.Context, r Repository, record map[string]string, result *CSVResult) error {
	hours, err := decimal.NewFromString(record["hours"])
	if err != nil || !hours.IsPositive() {
		return fmt.Errorf("工时 %q 无效", record["hours"])
	}
	if record["name"] == "" {
		return errors.New("名称不能为空")
	}

	switch record["kind"] {
	case "member":
		if record["email"] == "" {
			return errors.New("成员邮箱不能为空")
		}
		member := &domain.TeamMember{
			FullName:       record["name"],
			Email:          record["email"],
			WeeklyCapacity: hours,
			IsActive:       true,
		}
		if err := r.CreateTeamMember(ctx, member); err != nil {
			return err
		}
		result.Members++
	case "request":
		status := domain.RequestStatus(record["status"])
		if status == "" {
			status = domain.RequestStatusBacklog
		}
		if !slices.Contains(requestStatuses, status) {
			return fmt.Errorf("未知的需求状态 %q", status)
		}
		priority := domain.RequestPriority(record["priority"])
		if priority == "" {
			priority = domain.RequestPriorityMedium
		}
		if !slices.Contains(requestPriorities, priority) {
			return fmt.Errorf("未知的优先级 %q", priority)
		}
		req := &domain.Request{
			Title:          record["name"],
			Type:           record["type"],
			Priority:       priority,
			EstimatedHours: hours,
			Status:         status,
		}
		if err := r.CreateRequest(ctx, req); err != nil {
			return err
		}
		result.Requests++
	default:
		return fmt.Errorf("未知的类型 %q", record["kind"])
	}

	return nil
}
