package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/careloop/referral-backend/internal/clients/sendgrid"
	"github.com/careloop/referral-backend/internal/logger"
	"github.com/careloop/referral-backend/internal/types"
)

// ReferralMailer notifies a provider contact that a referral was made on a
// client's behalf. Delivery failures never fail the referral.
type ReferralMailer interface {
	SendReferralNotice(ctx context.Context, client *types.Client, resource *types.ResourceRecord, entry *types.ReferralEntry, toEmail string) error
}

type referralMailer struct {
	log  *logger.Logger
	mail sendgrid.Client
}

func NewReferralMailer(baseLog *logger.Logger, mail sendgrid.Client) ReferralMailer {
	return &referralMailer{
		log:  baseLog.With("service", "ReferralMailer"),
		mail: mail,
	}
}

func (m *referralMailer) SendReferralNotice(ctx context.Context, client *types.Client, resource *types.ResourceRecord, entry *types.ReferralEntry, toEmail string) error {
	if m.mail == nil {
		return fmt.Errorf("mail client not configured")
	}

	var body strings.Builder
	fmt.Fprintf(&body, "A new referral has been created for %s.\n\n", client.DisplayName())
	fmt.Fprintf(&body, "Organization: %s\n", resource.Organization)
	if resource.ProgramType != "" {
		fmt.Fprintf(&body, "Program: %s\n", resource.ProgramType)
	}
	if resource.Contact != "" {
		fmt.Fprintf(&body, "Contact: %s\n", resource.Contact)
	}
	fmt.Fprintf(&body, "Status: %s\n", entry.Status)
	fmt.Fprintf(&body, "Date: %s\n", entry.AddedDate.Format("2006-01-02"))
	if entry.Notes != "" {
		fmt.Fprintf(&body, "\nNotes:\n%s\n", entry.Notes)
	}

	res, err := m.mail.Send(ctx, sendgrid.SendEmailRequest{
		ToEmail:   toEmail,
		Subject:   fmt.Sprintf("Referral notice: %s", resource.Organization),
		PlainBody: body.String(),
	})
	if err != nil {
		return fmt.Errorf("send referral notice: %w", err)
	}
	m.log.Info("Referral notice sent", "to", toEmail, "message_id", res.MessageID)
	return nil
}
