package utils

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/paymesh/paymesh/types"
)

var validate = validator.New()

// ParsePaymentRequest decodes and validates a PaymentRequest from JSON.
func ParsePaymentRequest(data []byte) (*types.PaymentRequest, error) {
	var req types.PaymentRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidPayload,
			Message: fmt.Sprintf("failed to parse payment request: %v", err),
		}
	}
	if err := validate.Struct(&req); err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidPayload,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}
	return &req, nil
}

// ParseJobConfig decodes and validates a JobConfig from JSON.
func ParseJobConfig(data []byte) (*types.JobConfig, error) {
	var cfg types.JobConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidPayload,
			Message: fmt.Sprintf("failed to parse job config: %v", err),
		}
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidPayload,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}
	return &cfg, nil
}

// ParsePaymentClaim decodes and validates a PaymentClaim from JSON.
func ParsePaymentClaim(data []byte) (*types.PaymentClaim, error) {
	var claim types.PaymentClaim
	if err := json.Unmarshal(data, &claim); err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidPayload,
			Message: fmt.Sprintf("failed to parse payment claim: %v", err),
		}
	}
	if err := validate.Struct(&claim); err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidPayload,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}
	return &claim, nil
}

// NormalizeJSON formats a value with consistent indentation.
func NormalizeJSON(data any) ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}
