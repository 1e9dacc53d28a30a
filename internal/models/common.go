package models

import "errors"

// ErrorResponse is a standardized error response for API
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrNotFound is returned by repositories when no row matches, including rows owned by another user
var ErrNotFound = errors.New("record not found")
