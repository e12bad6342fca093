package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender delivers codes as SMS through the Twilio Messages API.
type TwilioSender struct {
	api        messageCreator
	fromNumber string
	codeTTL    time.Duration
}

// NewTwilioSender creates a TwilioSender using account credentials.
func NewTwilioSender(accountSID, authToken, fromNumber string, codeTTL time.Duration) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{api: client.Api, fromNumber: fromNumber, codeTTL: codeTTL}
}

func (t *TwilioSender) Deliver(ctx context.Context, phone, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(t.fromNumber)
	params.SetBody(FormatMessage(code, t.codeTTL))

	if _, err := t.api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	return nil
}
