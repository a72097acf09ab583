package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type createMemberRequest struct {
	Name       string  `json:"name" validate:"required"`
	WeeklyGoal float64 `json:"weeklyGoal" validate:"required,gt=0"`
}

type updateMemberRequest struct {
	Name       string  `json:"name" validate:"required"`
	WeeklyGoal float64 `json:"weeklyGoal" validate:"required,gt=0"`
}

type createDepositRequest struct {
	WeekNumber int     `json:"weekNumber" validate:"required,min=1"`
	Penalty    float64 `json:"penalty" validate:"gte=0"`
}

type updateDepositRequest struct {
	Penalty float64 `json:"penalty" validate:"gte=0"`
}

type createLoanRequest struct {
	MemberID        string  `json:"memberId" validate:"required"`
	PrincipalAmount float64 `json:"principalAmount" validate:"required,gt=0"`
}

type paymentRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// RequestParser decodes and validates JSON request bodies.
type RequestParser struct {
	validate *validator.Validate
}

func NewRequestParser() *RequestParser {
	return &RequestParser{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Decode reads the request body into dst and validates it. The body is
// limited to 1 MiB; larger or malformed payloads fail with an error the
// caller maps to 400.
func (p *RequestParser) Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	if err := p.validate.Struct(dst); err != nil {
		return fmt.Errorf("validating request body: %w", err)
	}
	return nil
}
