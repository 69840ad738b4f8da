package service

import "errors"

var (
	ErrNotFound            = errors.New("not_found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidSelection    = errors.New("invalid_selection")
	ErrAlreadyPurchased    = errors.New("already_purchased")
	ErrNotRedeemable       = errors.New("not_redeemable")
	ErrAlreadyRedeemed     = errors.New("already_redeemed")
	ErrOutsideMealWindow   = errors.New("outside_meal_window")
	ErrPaymentVerification = errors.New("payment_verification_failed")
	ErrPaymentsDisabled    = errors.New("payments_disabled")
	ErrWeekEnded           = errors.New("week_ended")
	ErrRefundDue           = errors.New("refund_due")
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrEmailTaken          = errors.New("email_taken")
	ErrEmailNotVerified    = errors.New("email_not_verified")
	ErrInvalidOTP          = errors.New("invalid_otp")
	ErrInvalidInput        = errors.New("invalid_input")
)
