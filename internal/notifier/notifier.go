package notifier

import (
	"fmt"

	"github.com/ibeckermayer/naverpost/internal/config"
	"github.com/ibeckermayer/naverpost/internal/notifier/providers"
	"github.com/ibeckermayer/naverpost/internal/report"
)

//go:generate mockgen -destination=mock_sender_test.go -package=notifier . Sender

// Notifier handles sending run reports
type Notifier struct {
	sender Sender
	to     string
}

// Sender defines the interface for email sending
type Sender interface {
	Send(to, subject, htmlBody, plainBody string) error
}

// New creates a new notifier that mails to the given address
func New(sender Sender, to string) *Notifier {
	return &Notifier{sender: sender, to: to}
}

// NewFromConfig creates a notifier based on configuration
func NewFromConfig(cfg config.EmailConfig) (*Notifier, error) {
	var sender Sender

	switch cfg.Provider {
	case "smtp":
		sender = providers.NewSMTPSender(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPass,
			cfg.FromAddr,
		)
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Provider)
	}

	if cfg.ToAddr == "" {
		return nil, fmt.Errorf("email to_address is empty")
	}

	return New(sender, cfg.ToAddr), nil
}

// SendReport mails a rendered run report
func (n *Notifier) SendReport(r *report.Report) error {
	if err := n.sender.Send(n.to, r.Subject, r.HTMLBody, r.PlainBody); err != nil {
		return fmt.Errorf("failed to send report for run %s: %w", r.RunID, err)
	}
	return nil
}
