package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventreg/internal/config"
	"github.com/Togather-Foundation/eventreg/internal/domain/ids"
	"github.com/Togather-Foundation/eventreg/internal/metrics"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

const (
	ProviderResend = "resend"
	ProviderLog    = "log"

	// DateLayout renders event dates in notification emails.
	DateLayout = "January 02, 2006 at 03:04 PM"
)

// ErrInvalidRecipient marks an address no retry can fix.
var ErrInvalidRecipient = errors.New("invalid recipient email")

//go:embed templates/*.html
var templateFS embed.FS

// Service renders and delivers registration emails
type Service struct {
	config       config.EmailConfig
	provider     string
	resendClient *resend.Client
	templates    *template.Template
	baseURL      string
	logger       zerolog.Logger
}

// RegistrationNotice is the data needed for a registration email.
type RegistrationNotice struct {
	To            string
	Name          string
	EventID       string
	EventTitle    string
	EventLocation string
	EventDate     time.Time
}

type templateData struct {
	Name          string
	EventTitle    string
	EventLocation string
	EventDate     string
	EventURL      string
	CurrentYear   int
}

// NewService creates an email service. baseURL is used to link back to the
// event and may be empty.
func NewService(cfg config.EmailConfig, baseURL string, logger zerolog.Logger) (*Service, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	svc := &Service{
		config:    cfg,
		provider:  cfg.Provider,
		templates: templates,
		baseURL:   baseURL,
		logger:    logger.With().Str("component", "email").Logger(),
	}
	if svc.provider == "" {
		svc.provider = ProviderLog
	}

	if !cfg.Enabled {
		return svc, nil
	}
	if err := validateEmailAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender email in config: %w", err)
	}
	switch svc.provider {
	case ProviderResend:
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("resend provider requires an API key")
		}
		svc.resendClient = resend.NewClient(cfg.ResendAPIKey)
	case ProviderLog:
	default:
		return nil, fmt.Errorf("unsupported email provider %q (must be %q or %q)", svc.provider, ProviderResend, ProviderLog)
	}
	return svc, nil
}

// SendRegistrationConfirmed tells a user their seat is confirmed.
func (s *Service) SendRegistrationConfirmed(ctx context.Context, n RegistrationNotice) error {
	return s.sendNotice(ctx, n, "registration_confirmed.html", "Registration Confirmed: "+oneLine(n.EventTitle))
}

// SendRegistrationCancelled tells a user they are no longer registered.
func (s *Service) SendRegistrationCancelled(ctx context.Context, n RegistrationNotice) error {
	return s.sendNotice(ctx, n, "registration_cancelled.html", "Unregistered from: "+oneLine(n.EventTitle))
}

func (s *Service) sendNotice(ctx context.Context, n RegistrationNotice, templateName, subject string) error {
	if err := validateEmailAddress(n.To); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}

	body, err := s.render(templateName, templateData{
		Name:          n.Name,
		EventTitle:    n.EventTitle,
		EventLocation: n.EventLocation,
		EventDate:     FormatEventDate(n.EventDate),
		EventURL:      s.eventURL(n.EventID),
		CurrentYear:   time.Now().Year(),
	})
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", templateName, err)
	}

	return s.deliver(ctx, message{To: n.To, Subject: subject, HTML: body, EventID: n.EventID})
}

func (s *Service) deliver(ctx context.Context, msg message) error {
	if !s.config.Enabled {
		s.logger.Info().
			Str("to", msg.To).
			Str("subject", msg.Subject).
			Msg("email service disabled, skipping email")
		return nil
	}

	var err error
	switch s.provider {
	case ProviderResend:
		err = s.sendViaResend(ctx, msg)
	default:
		s.logger.Info().
			Str("to", msg.To).
			Str("subject", msg.Subject).
			Str("event_id", msg.EventID).
			Int("body_bytes", len(msg.HTML)).
			Msg("email logged")
	}

	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.EmailsSent.WithLabelValues(s.provider, result).Inc()
	return err
}

func (s *Service) render(name string, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) eventURL(eventID string) string {
	if s.baseURL == "" || eventID == "" {
		return ""
	}
	link, err := ids.ResourceURL(s.baseURL, "events", eventID)
	if err != nil {
		return ""
	}
	if err := validateLinkURL(link); err != nil {
		return ""
	}
	return link
}

// FormatEventDate renders t in UTC using DateLayout.
func FormatEventDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// validateEmailAddress validates an email address for format and header injection attempts
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}

// validateLinkURL only allows http(s) links with a host into email bodies.
func validateLinkURL(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
