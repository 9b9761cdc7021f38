package notifier

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templatesFS embed.FS

// ErrSkip 表示事件不需要发送邮件，消息应直接确认
var ErrSkip = errors.New("notifier: nothing to send")

type mailTemplate struct {
	file    string
	subject string
}

var mailTemplates = map[string]mailTemplate{
	domain.EventAssignmentCreated: {file: "assignment_created.html", subject: "Nexus - 新的工时分配"},
	domain.EventAssignmentDeleted: {file: "assignment_deleted.html", subject: "Nexus - 工时分配已取消"},
}

// Sender 是 mail.Client 中发送邮件的部分
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Notifier struct {
	from      string
	sender    Sender
	templates *template.Template
	log       *slog.Logger
}

func New(from string, sender Sender, logger *slog.Logger) (*Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Notifier{
		from:      from,
		sender:    sender,
		templates: tmpl,
		log:       logger,
	}, nil
}

// BuildMessage 根据事件构建邮件，不需要通知的事件返回 ErrSkip
func (n *Notifier) BuildMessage(evt *domain.AssignmentEvent) (*mail.Msg, error) {
	mt, ok := mailTemplates[evt.Type]
	if !ok {
		return nil, ErrSkip
	}
	if evt.Member == nil || evt.Member.Email == "" || evt.Assignment == nil {
		return nil, ErrSkip
	}

	data := domain.AssignmentMailData{
		FullName: evt.Member.FullName,
		Date:     evt.Assignment.AssignedDate.Format("2006-01-02"),
		Hours:    evt.Assignment.AllocatedHours.String(),
	}
	if evt.Request != nil {
		data.RequestTitle = evt.Request.Title
	} else {
		data.RequestTitle = fmt.Sprintf("#%d", evt.Assignment.RequestID)
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(evt.Member.Email); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}
	if err := msg.SetBodyHTMLTemplate(n.templates.Lookup(mt.file), data); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}
	msg.Subject(mt.subject)

	return msg, nil
}

// Handle 处理一条消息，requeue 表示发送失败后消息是否应该重新入队
func (n *Notifier) Handle(ctx context.Context, body []byte) (requeue bool, err error) {
	var evt domain.AssignmentEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return false, fmt.Errorf("事件反序列化失败: %w", err)
	}

	msg, err := n.BuildMessage(&evt)
	if err != nil {
		if errors.Is(err, ErrSkip) {
			n.log.Debug("事件无需发送邮件", slog.String("type", evt.Type), slog.String("id", evt.ID))
			return false, nil
		}
		return false, err
	}

	if err := n.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return true, fmt.Errorf("邮件发送失败: %w", err)
	}

	n.log.Info("邮件已发送", slog.String("type", evt.Type), slog.String("to", evt.Member.Email))
	return false, nil
}
