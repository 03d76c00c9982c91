package handler

import "github.com/dropship/backend/internal/interfaces/http/dto"

// Response envelopes for the generated API docs. Handlers write dto.Response;
// these mirror it with a typed data field.

// APIResponse is a successful response carrying T
// @Description Success envelope with typed data
type APIResponse[T any] struct {
	Success bool `json:"success" example:"true"`
	Data    T    `json:"data"`
}

// PagedResponse is a successful list response with pagination metadata
// @Description Success envelope for paginated lists
type PagedResponse[T any] struct {
	Success bool      `json:"success" example:"true"`
	Data    []T       `json:"data"`
	Meta    *dto.Meta `json:"meta"`
}

// ErrorResponse is the error envelope; Details lists per-field validation failures
// @Description Error envelope
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}
