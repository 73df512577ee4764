package application

import "context"

// SlotCache は時間枠の残数表示キャッシュ
type SlotCache interface {
	GetRemaining(ctx context.Context, slotID string) (int, error)
	SetRemaining(ctx context.Context, slotID string, remaining int) error
	Invalidate(ctx context.Context, slotID string) error
}

// OutboxNotifier は通知中継に新しい行があることを知らせる（ブロックしない）
type OutboxNotifier interface {
	Notify()
}
