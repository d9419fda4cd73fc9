package service

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// Mailer delivers invitation emails
type Mailer interface {
	SendInviteEmail(ctx context.Context, invite InviteEmail) error
}

// InviteEmail is the content of a family invitation
type InviteEmail struct {
	To          string
	FamilyName  string
	InviterName string
	Code        string
}

// sesSender is the part of the SES client used here
type sesSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends email through Amazon SES. Without a sender address it
// logs and skips every send.
type EmailService struct {
	client     sesSender
	fromEmail  string
	fromName   string
	appBaseURL string
	logger     *zap.SugaredLogger
}

// NewEmailService creates a new email service
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, logger *zap.SugaredLogger) (*EmailService, error) {
	s := &EmailService{
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: strings.TrimSuffix(appBaseURL, "/"),
		logger:     logger,
	}

	if fromEmail == "" {
		logger.Info("email service disabled: SES_FROM_EMAIL not configured")
		return s, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	s.client = sesv2.NewFromConfig(cfg)

	logger.Infow("email service enabled", "from", fromEmail, "region", awsRegion)
	return s, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.client != nil
}

var inviteHTML = template.Must(template.New("invite").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h1>You're invited to {{.FamilyName}} on Lunara</h1>
	<p>{{.InviterName}} has invited you to help plan lessons and cheer on the kids in {{.FamilyName}}.</p>
	<p><a href="{{.Link}}">Accept the invitation</a></p>
	<p>Or use this code after signing in: <strong>{{.Code}}</strong></p>
	<p>This invitation expires in 7 days and can be used once.</p>
</body>
</html>`))

// SendInviteEmail sends a family invitation
func (s *EmailService) SendInviteEmail(ctx context.Context, invite InviteEmail) error {
	if !s.IsEnabled() {
		s.logger.Infow("skipping email send (service disabled)", "kind", "invite", "to", invite.To)
		return nil
	}

	link := fmt.Sprintf("%s/invites/%s", s.appBaseURL, invite.Code)

	var html strings.Builder
	err := inviteHTML.Execute(&html, struct {
		InviteEmail
		Link string
	}{invite, link})
	if err != nil {
		return fmt.Errorf("failed to render invite email: %w", err)
	}

	text := fmt.Sprintf(`%s has invited you to %s on Lunara.

Accept the invitation: %s
Invite code: %s

This invitation expires in 7 days and can be used once.
`, invite.InviterName, invite.FamilyName, link, invite.Code)

	subject := fmt.Sprintf("Join %s on Lunara", invite.FamilyName)
	return s.sendEmail(ctx, invite.To, subject, html.String(), text)
}

func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	s.logger.Infow("email sent", "to", toEmail, "subject", subject, "message_id", aws.ToString(result.MessageId))
	return nil
}
