package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound            = errors.New("记录不存在")
	ErrConcurrencyConflict = errors.New("该需求正在被其他人修改，请稍后重试")
)

// ValidationError 在写入任何数据之前返回，Excess 仅在超出预估工时时非零
type ValidationError struct {
	Message string
	Excess  decimal.Decimal
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NewExceedsEstimateError 返回包含具体超出工时的错误
func NewExceedsEstimateError(excess decimal.Decimal) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf("分配工时超出预估工时 %s 小时（exceeds estimate by %s hours）", excess.String(), excess.String()),
		Excess:  excess,
	}
}

// PersistenceError 存储层的 I/O 错误（包括超时）
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
