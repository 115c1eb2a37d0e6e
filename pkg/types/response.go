package types

// SuccessEnvelope wraps every 2xx body. Success mirrors the flag the
// parish front-end has always checked before reading data.
type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// APIError is the public part of a failure. Details are only present for
// codes whose metadata allows them (validation, conflicts).
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every 4xx and 5xx body; Success is always false.
type ErrorEnvelope struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}
