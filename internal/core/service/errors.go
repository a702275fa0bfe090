package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrInvalidInput)
	ErrOrderNotFound    = errors.New("order not found")
	ErrPaymentFailed    = errors.New("payment not successful")
	ErrUpstream         = errors.New("payment provider unavailable")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrPersistence      = errors.New("order persistence failed")
)
