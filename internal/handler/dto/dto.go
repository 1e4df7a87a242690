// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// RegisterRequest represents the request body for registering a user.
type RegisterRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginRequest represents the request body for logging in.
type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// CreateJobRequest represents the request body for posting a job.
// Owner, id and timestamps are assigned by the server and not accepted here.
type CreateJobRequest struct {
	Title                   string `json:"title"`
	Company                 string `json:"company"`
	Description             string `json:"description"`
	ApplicationInstructions string `json:"applicationInstructions"`
	Status                  string `json:"status"`
}

// UpdateStatusRequest represents the request body for changing a job's status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
