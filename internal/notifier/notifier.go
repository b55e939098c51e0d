package notifier

import "context"

// Message 一条待投递的通知消息
type Message struct {
	RecipientName  string
	RecipientEmail string
	Subject        string
	Body           string
}

// Notifier 通知投递接口
// 投递渠道对调度子系统不可见，便于替换为邮件/站内信/IM 等实现
type Notifier interface {
	Notify(ctx context.Context, msg *Message) error
}

// NopNotifier 空实现（测试与降级运行使用）
type NopNotifier struct{}

// NewNop 创建 NopNotifier
func NewNop() *NopNotifier { return &NopNotifier{} }

// Notify 丢弃消息
func (n *NopNotifier) Notify(_ context.Context, _ *Message) error { return nil }
