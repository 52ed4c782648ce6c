package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"shopnotify/pkg/logger"
)

// implicitTLSPort SMTPS端口，连接建立时即为TLS
const implicitTLSPort = 465

// ErrStartTLSUnsupported 服务器不支持STARTTLS，拒绝明文发送
var ErrStartTLSUnsupported = errors.New("smtp server does not support STARTTLS")

// Config 邮件配置
type Config struct {
	Host     string // SMTP服务器地址
	Port     int    // SMTP服务器端口
	Username string // 邮箱账号
	Password string // 邮箱密码
	From     string // 发件人
	FromName string // 发件人名称
}

// EmailType 邮件类型
type EmailType string

const (
	// TypeIntegrationDisabled 店铺对接被停用通知
	TypeIntegrationDisabled EmailType = "integration_disabled"
)

var templates = map[EmailType]*template.Template{
	TypeIntegrationDisabled: template.Must(template.New(string(TypeIntegrationDisabled)).Parse(
		`<p>스토어 <b>{{.StoreName}}</b> 연동이 중지되었습니다.</p>` +
			`<p>사유: {{.Reason}}</p>` +
			`<p>중지 시각: {{.OccurredAt.Format "2006-01-02 15:04"}}</p>` +
			`<p>스토어 인증 정보를 확인한 후 다시 연동해 주세요.</p>`)),
}

// EmailData 邮件数据
type EmailData struct {
	To         string    // 收件人
	Subject    string    // 邮件主题
	StoreName  string    // 店铺名称
	Reason     string    // 原因
	OccurredAt time.Time // 发生时间
}

// Service 邮件服务
type Service struct {
	config Config
	logger *logger.Logger
	send   func(to, subject, body string) error
}

// NewService 创建邮件服务
func NewService(config Config, logger *logger.Logger) *Service {
	s := &Service{
		config: config,
		logger: logger,
	}
	s.send = s.sendSMTP
	return s
}

// SendEmail 发送邮件
func (s *Service) SendEmail(emailType EmailType, data EmailData) error {
	tmpl, ok := templates[emailType]
	if !ok {
		return fmt.Errorf("未知的邮件类型: %s", emailType)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, data); err != nil {
		return fmt.Errorf("渲染邮件模板失败: %w", err)
	}

	return s.send(data.To, data.Subject, buf.String())
}

// NotifyIntegrationDisabled 通知工作区所有者店铺对接已停用
func (s *Service) NotifyIntegrationDisabled(ctx context.Context, to []string, storeName, reason string) error {
	var failed []string
	for _, addr := range to {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.SendEmail(TypeIntegrationDisabled, EmailData{
			To:         addr,
			Subject:    fmt.Sprintf("[shopnotify] %s 스토어 연동 중지 안내", storeName),
			StoreName:  storeName,
			Reason:     reason,
			OccurredAt: time.Now(),
		})
		if err != nil {
			s.logger.Error("发送停用通知失败", "to", addr, "error", err)
			failed = append(failed, addr)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("发送邮件失败: %s", strings.Join(failed, ", "))
	}
	return nil
}

// sendSMTP 通过SMTP发送邮件
func (s *Service) sendSMTP(to, subject, body string) error {
	headers := [][2]string{
		{"From", fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var message strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&message, "%s: %s\r\n", h[0], h[1])
	}
	message.WriteString("\r\n" + body)

	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	client, err := s.dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP认证失败: %w", err)
	}
	if err = client.Mail(s.config.From); err != nil {
		return fmt.Errorf("设置发件人失败: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("设置收件人失败: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("准备发送数据失败: %w", err)
	}
	if _, err = w.Write([]byte(message.String())); err != nil {
		return fmt.Errorf("写入邮件内容失败: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	s.logger.Info("邮件已发送", "to", to)
	return nil
}

// dial 465端口使用隐式TLS，其余端口先建立明文连接再通过STARTTLS升级
func (s *Service) dial(addr string) (*smtp.Client, error) {
	tlsConfig := &tls.Config{ServerName: s.config.Host}

	if s.config.Port == implicitTLSPort {
		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("创建TLS连接失败: %w", err)
		}
		client, err := smtp.NewClient(conn, s.config.Host)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("创建SMTP客户端失败: %w", err)
		}
		return client, nil
	}

	client, err := smtp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("连接SMTP服务器失败: %w", err)
	}
	if ok, _ := client.Extension("STARTTLS"); !ok {
		client.Close()
		return nil, ErrStartTLSUnsupported
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		client.Close()
		return nil, fmt.Errorf("STARTTLS握手失败: %w", err)
	}
	return client, nil
}
