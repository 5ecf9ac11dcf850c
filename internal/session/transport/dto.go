// Package transport defines the session module's request and response DTOs.
package transport

// CreateSessionRequest is the get-or-create call. A returning visitor presents
// its existing session id; a first visit may carry the page's UTM parameters.
type CreateSessionRequest struct {
	SessionID   string `json:"sessionId"`
	UTMSource   string `json:"utmSource" binding:"max=128"`
	UTMMedium   string `json:"utmMedium" binding:"max=128"`
	UTMCampaign string `json:"utmCampaign" binding:"max=128"`
}

// SessionResponse is the session identity handed back to the client.
type SessionResponse struct {
	SessionID    string `json:"sessionId"`
	Variant      string `json:"variant"`
	EntryVariant string `json:"entryVariant"`
	Created      bool   `json:"created"`
}
