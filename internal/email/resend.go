package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ErrRateLimited is returned when the provider throttles us. The job stays
// retryable.
var ErrRateLimited = errors.New("email provider rate limited")

type message struct {
	To      string
	Subject string
	HTML    string
	// EventID is attached as a header so provider logs can be traced back
	// to the registration that caused the send.
	EventID string
}

func (s *Service) sendViaResend(ctx context.Context, msg message) error {
	if s.resendClient == nil {
		return errors.New("resend client not initialized")
	}

	req := &resend.SendEmailRequest{
		From:    s.config.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if msg.EventID != "" {
		req.Headers = map[string]string{"X-Eventreg-Event-ID": msg.EventID}
	}

	sent, err := s.resendClient.Emails.SendWithContext(ctx, req)
	if err != nil {
		var limited *resend.RateLimitError
		if errors.As(err, &limited) {
			s.logger.Warn().
				Str("limit", limited.Limit).
				Str("remaining", limited.Remaining).
				Str("reset", limited.Reset).
				Msg("resend rate limit hit")
			return fmt.Errorf("%w: resets in %ss: %w", ErrRateLimited, limited.Reset, err)
		}
		return fmt.Errorf("resend send: %w", err)
	}

	s.logger.Info().
		Str("email_id", sent.Id).
		Str("event_id", msg.EventID).
		Msg("registration email sent")
	return nil
}
