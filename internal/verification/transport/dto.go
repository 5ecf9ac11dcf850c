// Package transport defines request and response DTOs for verification.
package transport

// RequestCodeRequest asks for a one-time code to be sent to a phone number.
type RequestCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// VerifyCodeRequest carries the visitor-entered code.
type VerifyCodeRequest struct {
	Code string `json:"code" binding:"required,min=4,max=10"`
}

// StatusResponse reports the verification outcome of an operation.
type StatusResponse struct {
	Status string `json:"status"`
}
