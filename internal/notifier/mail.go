package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/SantaKoska/Artistry-Hub-sub000/config"
)

// MailNotifier 基于 SMTP 的邮件投递实现
type MailNotifier struct {
	cfg    *config.MailConfig
	logger *zap.Logger
}

// NewMail 创建 MailNotifier
func NewMail(cfg *config.MailConfig, logger *zap.Logger) *MailNotifier {
	return &MailNotifier{cfg: cfg, logger: logger}
}

// Notify 发送一封纯文本邮件
// SMTP 未配置主机时退化为日志输出，开发环境无需本地邮件服务
func (m *MailNotifier) Notify(ctx context.Context, msg *Message) error {
	if m.cfg.SMTPHost == "" {
		m.logger.Info("邮件通道未配置，降级为日志输出",
			zap.String("recipient", msg.RecipientEmail),
			zap.String("subject", msg.Subject))
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.RecipientEmail)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{msg.RecipientEmail}, []byte(b.String())); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}
