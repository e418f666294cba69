package api

import (
	"github.com/go-playground/validator/v10"
)

type requestValidator struct {
	validate *validator.Validate
}

func NewValidator() *requestValidator {
	return &requestValidator{validate: validator.New()}
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
