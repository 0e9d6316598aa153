package notify

import (
	"crypto/tls"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/fieldops/console/pkg/metrics"
)

// EmailSender abstracts the SMTP transport.
type EmailSender interface {
	Send(to, subject, htmlBody string) error
	Host() string
}

// MailConfig holds the SMTP transport settings. An empty Host leaves
// the email channel unconfigured and every email outcome is "skipped".
type MailConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	SenderAddress      string `yaml:"senderAddress"`
	SenderName         string `yaml:"senderName"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
}

type smtpSender struct {
	dialer        *gomail.Dialer
	senderAddress string
	senderName    string
}

// NewSMTPSender builds the gomail-backed email transport. Delivery is
// best-effort: one dial-and-send per call, no retries; a failed send is
// reported to the caller and dropped.
func NewSMTPSender(cfg MailConfig, log *zap.SugaredLogger) EmailSender {
	log.Infow("Initializing SMTP sender", "host", cfg.Host, "port", cfg.Port, "user", cfg.User)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if cfg.InsecureSkipVerify {
		log.Warn("InsecureSkipVerify is enabled for the SMTP TLS connection")
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	senderAddr := cfg.SenderAddress
	if senderAddr == "" {
		senderAddr = "noreply@fieldops.example.com"
	}
	senderName := cfg.SenderName
	if senderName == "" {
		senderName = "FieldOps Console"
	}

	return &smtpSender{
		dialer:        d,
		senderAddress: senderAddr,
		senderName:    senderName,
	}
}

func (s *smtpSender) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.senderAddress, s.senderName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(msg); err != nil {
		metrics.MailSendFailure.WithLabelValues(s.Host()).Inc()
		return err
	}
	metrics.MailSendSuccess.WithLabelValues(s.Host()).Inc()
	return nil
}

func (s *smtpSender) Host() string {
	return s.dialer.Host
}
