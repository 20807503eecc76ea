package notifications

import (
	"context"
	"fmt"

	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
	"github.com/sokonihq/sokoni-backend/pkg/mailer"
)

// OrderEmail carries the fields the order mail templates render.
type OrderEmail struct {
	OrderNumber string
	TotalAmount float64
	BuyerName   string
	BuyerEmail  string
}

// Service sends transactional order emails. Every method is best-effort:
// failures are logged and swallowed so a mail outage never breaks an
// order mutation.
type Service interface {
	OrderConfirmation(ctx context.Context, email OrderEmail)
	AdminOrderAlert(ctx context.Context, email OrderEmail)
}

type service struct {
	mail       mailer.Mailer
	log        *logger.Logger
	adminEmail string
}

// NewService wires the notification service. adminEmail receives
// new-order alerts.
func NewService(mail mailer.Mailer, log *logger.Logger, adminEmail string) (Service, error) {
	if mail == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mailer required")
	}
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{mail: mail, log: log, adminEmail: adminEmail}, nil
}

func (s *service) OrderConfirmation(ctx context.Context, email OrderEmail) {
	subject := fmt.Sprintf("Order %s confirmed", email.OrderNumber)
	err := s.mail.SendTemplated(ctx, email.BuyerEmail, subject, mailer.TemplateOrderConfirmation, email)
	if err != nil {
		s.log.Warn(s.log.WithField(ctx, "order_number", email.OrderNumber),
			"order confirmation email failed: "+err.Error())
	}
}

func (s *service) AdminOrderAlert(ctx context.Context, email OrderEmail) {
	if s.adminEmail == "" {
		return
	}
	subject := fmt.Sprintf("New order %s", email.OrderNumber)
	err := s.mail.SendTemplated(ctx, s.adminEmail, subject, mailer.TemplateAdminOrderAlert, email)
	if err != nil {
		s.log.Warn(s.log.WithField(ctx, "order_number", email.OrderNumber),
			"admin order alert email failed: "+err.Error())
	}
}
