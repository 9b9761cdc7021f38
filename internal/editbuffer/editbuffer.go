package editbuffer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
)

// UpdateFunc 将合并后的修改写入，一般是 coordinator.UpdateAssignment
type UpdateFunc func(ctx context.Context, assignmentID int64, patch domain.AssignmentPatch, actorID int64) error

type pendingEdit struct {
	patch   domain.AssignmentPatch
	actorID int64
	timer   *time.Timer
}

// Buffer 合并同一分配上的连续修改，在一段时间内没有新修改后才写入一次
type Buffer struct {
	mu         sync.Mutex
	pending    map[int64]*pendingEdit
	quiescence time.Duration
	update     UpdateFunc
	log        *slog.Logger
	closed     bool
	wg         sync.WaitGroup
}

func New(quiescence time.Duration, update UpdateFunc, logger *slog.Logger) *Buffer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Buffer{
		pending:    make(map[int64]*pendingEdit),
		quiescence: quiescence,
		update:     update,
		log:        logger,
	}
}

// Submit 记录一次修改，新的字段覆盖旧的字段，并重新开始计时
func (b *Buffer) Submit(assignmentID int64, patch domain.AssignmentPatch, actorID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return domain.NewValidationError("修改缓冲区已关闭")
	}

	edit, exists := b.pending[assignmentID]
	if exists {
		edit.timer.Stop()
		edit.patch = edit.patch.Merge(patch)
		edit.actorID = actorID
	} else {
		edit = &pendingEdit{patch: patch, actorID: actorID}
		b.pending[assignmentID] = edit
	}

	edit.timer = time.AfterFunc(b.quiescence, func() {
		b.flushOne(assignmentID, edit)
	})

	return nil
}

// Pending 返回尚未写入的修改数量
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Buffer) flushOne(assignmentID int64, edit *pendingEdit) {
	b.mu.Lock()
	// 计时器触发前可能已经被新的修改替换或已被 Flush 写入
	if current, ok := b.pending[assignmentID]; !ok || current != edit {
		b.mu.Unlock()
		return
	}
	delete(b.pending, assignmentID)
	b.wg.Add(1)
	b.mu.Unlock()

	defer b.wg.Done()
	b.write(context.Background(), assignmentID, edit)
}

func (b *Buffer) write(ctx context.Context, assignmentID int64, edit *pendingEdit) {
	if edit.patch.IsEmpty() {
		return
	}
	if err := b.update(ctx, assignmentID, edit.patch, edit.actorID); err != nil {
		b.log.Error("editbuffer: 写入修改失败", slog.Int64("assignment_id", assignmentID), slog.Any("error", err))
	}
}

// Flush 立即写入所有尚未写入的修改
func (b *Buffer) Flush(ctx context.Context) {
	b.mu.Lock()
	drained := b.pending
	b.pending = make(map[int64]*pendingEdit)
	for _, edit := range drained {
		edit.timer.Stop()
	}
	b.mu.Unlock()

	for id, edit := range drained {
		b.write(ctx, id, edit)
	}

	// 等待已经触发的计时器写完
	b.wg.Wait()
}

// Close 写入剩余的修改，之后的 Submit 会返回错误
func (b *Buffer) Close(ctx context.Context) {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.Flush(ctx)
}
