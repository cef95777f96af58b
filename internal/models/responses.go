package models

// ErrorResponse is the uniform error body returned by all handlers.
type ErrorResponse struct {
	Message string `json:"message"`
}

// StatusResponse is a minimal acknowledgement body for state-change calls.
type StatusResponse struct {
	Status string `json:"status"`
}
