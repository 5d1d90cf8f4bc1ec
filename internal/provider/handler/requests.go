package handler

import (
	"strings"

	dErrors "provdir/pkg/domain-errors"
)

// RenameCustomerRequest is the HTTP request body for PATCH /customers/{id}.
type RenameCustomerRequest struct {
	Name string `json:"name"`
}

// Normalize canonicalizes the input before validation.
func (r *RenameCustomerRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RenameCustomerRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	if len(r.Name) > 200 {
		return dErrors.New(dErrors.CodeBadRequest, "name must be at most 200 characters")
	}
	return nil
}
