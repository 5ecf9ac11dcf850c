// Package provider abstracts the external SMS verification provider.
package provider

import "context"

// Provider dispatches one-time codes and checks visitor-entered codes.
// Implementations must treat every call as fallible: the funnel retries with
// its own policy and never assumes a dispatch succeeded.
type Provider interface {
	// SendCode asks the provider to deliver a one-time code to the phone
	// number (E.164). It returns the provider's reference id for the dispatch.
	SendCode(ctx context.Context, phone string) (string, error)
	// CheckCode verifies a visitor-entered code against the outstanding
	// verification for the phone number.
	CheckCode(ctx context.Context, phone, code string) (bool, error)
}

// Noop is a Provider that accepts any code. It backs deployments with phone
// verification disabled and local development without Twilio credentials.
type Noop struct{}

// SendCode pretends the dispatch succeeded.
func (Noop) SendCode(_ context.Context, _ string) (string, error) {
	return "noop", nil
}

// CheckCode accepts every code.
func (Noop) CheckCode(_ context.Context, _, _ string) (bool, error) {
	return true, nil
}
