package handler

import "github.com/iliyamo/event-booking/internal/service"

// Validator plugs the service validation rules into echo.Context.Validate.
type Validator struct{}

func (Validator) Validate(i interface{}) error { return service.Validate(i) }
