package services

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"invomitra/internal/common"
	"invomitra/internal/config"
)

// InvoiceEmail is an outbound invoice message.
type InvoiceEmail struct {
	To         string
	Subject    string
	HTML       string
	Filename   string
	Attachment []byte
}

type EmailService interface {
	SendInvoice(ctx context.Context, msg InvoiceEmail) (string, error)
}

type resendEmailService struct {
	client    *resend.Client
	fromEmail string
	logger    *zap.Logger
}

// NewEmailService returns a Resend-backed sender. Without an API key every
// send fails with a configuration error.
func NewEmailService(cfg config.Resend, logger *zap.Logger) EmailService {
	var client *resend.Client
	if cfg.APIKey != "" {
		client = resend.NewClient(cfg.APIKey)
	}
	return &resendEmailService{client: client, fromEmail: cfg.FromEmail, logger: logger}
}

func (s *resendEmailService) SendInvoice(ctx context.Context, msg InvoiceEmail) (string, error) {
	if s.client == nil {
		return "", common.NewError(common.KindConfig, "Email delivery is not configured")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Attachments: []*resend.Attachment{
			{Content: msg.Attachment, Filename: msg.Filename},
		},
		Tags: []resend.Tag{{Name: "category", Value: "invoice"}},
	}

	var sent *resend.SendEmailResponse
	send := func() error {
		var err error
		sent, err = s.client.Emails.Send(params)
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(send, backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx)); err != nil {
		s.logger.Error("failed to send invoice email", zap.String("to", msg.To), zap.Error(err))
		return "", common.WrapError(common.KindUnavailable, "Failed to send email", errors.Wrap(err, "resend"))
	}

	s.logger.Info("invoice email sent", zap.String("email_id", sent.Id), zap.String("to", msg.To))
	return sent.Id, nil
}
