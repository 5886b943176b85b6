package delivery

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/securekit/pkg/otp"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// EmailConfig holds the Postmark credentials and sender identity.
type EmailConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN,required"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN,required"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	AppName              string `env:"APP_NAME" envDefault:"securekit"`
}

// EmailChannel delivers codes over Postmark transactional email.
type EmailChannel struct {
	client *postmark.Client
	cfg    EmailConfig
}

// NewEmailChannel creates a Postmark-backed channel. All credentials are
// required up front so a misconfigured service fails at startup, not on the
// first delivery.
func NewEmailChannel(cfg EmailConfig) (*EmailChannel, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}

	return &EmailChannel{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		cfg:    cfg,
	}, nil
}

// SendCode sends the raw code to the destination address. The code appears
// only in the outbound message body and is not retained.
func (c *EmailChannel) SendCode(ctx context.Context, destination, code string, purpose otp.Type) (otp.Receipt, error) {
	if !emailRegex.MatchString(destination) {
		return otp.Receipt{}, fmt.Errorf("%w: %q is not an email address", ErrInvalidDestination, otp.MaskIdentifier(destination))
	}

	resp, err := c.client.SendEmail(ctx, postmark.Email{
		From:     c.cfg.SenderEmail,
		To:       destination,
		Subject:  subjectFor(purpose, c.cfg.AppName),
		Tag:      string(purpose),
		HTMLBody: bodyFor(purpose, code),
	})
	if err != nil {
		return otp.Receipt{}, errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return otp.Receipt{}, errors.Join(ErrSendFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}

	return otp.Receipt{Delivered: true, MessageID: resp.MessageID}, nil
}

func subjectFor(purpose otp.Type, appName string) string {
	switch purpose {
	case otp.TypePasswordReset:
		return appName + ": your password reset code"
	case otp.TypeLogin:
		return appName + ": your login code"
	default:
		return appName + ": your verification code"
	}
}

func bodyFor(purpose otp.Type, code string) string {
	return fmt.Sprintf(
		`<p>Your %s code is:</p><p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p><p>It expires in 10 minutes. If you did not request it, ignore this message.</p>`,
		purposeLabel(purpose), code,
	)
}

func purposeLabel(purpose otp.Type) string {
	switch purpose {
	case otp.TypePasswordReset:
		return "password reset"
	case otp.TypeLogin:
		return "login"
	default:
		return "verification"
	}
}
