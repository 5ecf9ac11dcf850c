package provider

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	verify "github.com/twilio/twilio-go/rest/verify/v2"

	"funnel_backend/platform/config"
)

// Twilio implements Provider on top of the Twilio Verify API. Code generation,
// delivery, and expiry live entirely on the provider side; this client only
// triggers dispatches and relays check results.
type Twilio struct {
	client     *twilio.RestClient
	serviceSID string
}

// NewTwilio creates a Twilio Verify provider from configuration.
func NewTwilio(cfg config.SMSConfig) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.GetTwilioAccountSID(),
		Password: cfg.GetTwilioAuthToken(),
	})
	return &Twilio{
		client:     client,
		serviceSID: cfg.GetTwilioVerifyServiceSID(),
	}
}

// Compile-time check that Twilio implements Provider.
var _ Provider = (*Twilio)(nil)

// SendCode dispatches a one-time code via SMS.
func (t *Twilio) SendCode(_ context.Context, phone string) (string, error) {
	params := &verify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel("sms")

	resp, err := t.client.VerifyV2.CreateVerification(t.serviceSID, params)
	if err != nil {
		return "", fmt.Errorf("twilio send verification: %w", err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("twilio send verification: missing sid in response")
	}

	return *resp.Sid, nil
}

// CheckCode verifies a visitor-entered code.
func (t *Twilio) CheckCode(_ context.Context, phone, code string) (bool, error) {
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(phone)
	params.SetCode(code)

	resp, err := t.client.VerifyV2.CreateVerificationCheck(t.serviceSID, params)
	if err != nil {
		return false, fmt.Errorf("twilio check verification: %w", err)
	}
	if resp.Status == nil {
		return false, fmt.Errorf("twilio check verification: missing status in response")
	}

	return *resp.Status == "approved", nil
}
