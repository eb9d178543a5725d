package util

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailRegistered     = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrNoOrganization      = errors.New("user does not belong to an organization")
	ErrConflict            = errors.New("resource already exists")
	ErrAnswerNotOnQuestion = errors.New("correct answer must be one of the question's answers")
	ErrPaymentNotVerified  = errors.New("payment could not be verified")
	ErrUpstream            = errors.New("upstream provider error")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
)
