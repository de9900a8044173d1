// internal/notify/notify.go

// Package notify implements the notification collaborator. Email goes out
// through AWS SES; submissions flagged for follow-up additionally page the
// admin phones through SNS when SMS is enabled.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	"transaction-intake/internal/common/config"
	"transaction-intake/internal/common/logger"
	"transaction-intake/internal/intake/submit"
)

var ErrNoRecipients = errors.New("no recipients configured")

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Service struct {
	cfg       config.NotificationConfig
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewService(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Service{
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
		sesClient: ses.NewFromConfig(awsCfg),
		snsClient: sns.NewFromConfig(awsCfg),
	}, nil
}

// NewServiceWithClients injects the SES/SNS clients; used by tests.
func NewServiceWithClients(cfg config.NotificationConfig, log logger.Logger, sesClient SESService, snsClient SNSService) *Service {
	return &Service{
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
		sesClient: sesClient,
		snsClient: snsClient,
	}
}

// Send delivers one notification and returns a message id. Messages with an
// attachment go through SendRawEmail as a MIME multipart; plain messages use
// the simple SendEmail path.
func (s *Service) Send(ctx context.Context, msg submit.Message) (string, error) {
	if !s.cfg.Email.Enabled {
		s.logger.Info("email channel disabled, skipping", map[string]interface{}{
			"subject": msg.Subject,
		})
		return uuid.New().String(), nil
	}

	to := msg.To
	if len(to) == 0 {
		to = s.cfg.Email.Recipients
	}
	if len(to) == 0 {
		return "", ErrNoRecipients
	}

	var id string
	var err error
	if msg.Attachment != nil {
		id, err = s.sendWithAttachment(ctx, to, msg)
	} else {
		id, err = s.sendPlain(ctx, to, msg)
	}
	if err != nil {
		return "", err
	}

	// Follow-up flagged submissions also page the on-call channel. SMS is a
	// secondary channel: its failure never fails the notification.
	if msg.FollowUp {
		if smsErr := s.SendSMS(ctx, msg.Subject); smsErr != nil {
			s.logger.Warn("follow-up sms failed", map[string]interface{}{
				"error": smsErr,
			})
		}
	}
	return id, nil
}

func (s *Service) sendPlain(ctx context.Context, to []string, msg submit.Message) (string, error) {
	out, err := s.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.cfg.Email.FromEmail),
		Destination: &types.Destination{
			ToAddresses: to,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTMLBody)},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ses send failed: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

func (s *Service) sendWithAttachment(ctx context.Context, to []string, msg submit.Message) (string, error) {
	raw, err := buildRawMessage(s.cfg.Email.FromEmail, to, msg)
	if err != nil {
		return "", fmt.Errorf("build raw message: %w", err)
	}

	out, err := s.sesClient.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(s.cfg.Email.FromEmail),
		Destinations: to,
		RawMessage:   &types.RawMessage{Data: raw},
	})
	if err != nil {
		return "", fmt.Errorf("ses raw send failed: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

// SendSMS pages the configured phone numbers through SNS. Used for
// submissions flagged for follow-up.
func (s *Service) SendSMS(ctx context.Context, body string) error {
	if !s.cfg.SMS.Enabled {
		return nil
	}
	for _, phone := range s.cfg.SMS.Recipients {
		_, err := s.snsClient.Publish(ctx, &sns.PublishInput{
			PhoneNumber: aws.String(phone),
			Message:     aws.String(body),
		})
		if err != nil {
			return fmt.Errorf("sns publish failed for %s: %w", phone, err)
		}
	}
	return nil
}
