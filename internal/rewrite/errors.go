package rewrite

import (
	"fmt"

	"github.com/go-errors/errors"
)

var (
	ErrUnsupportedShape  = errors.New("multi-address transactions are not supported")
	ErrInvalidFee        = errors.New("new fee must be more than the original fee")
	ErrPayerNotFound     = errors.New("payer address not in transaction")
	ErrFeeTooLarge       = errors.New("fee increase exceeds the payer output")
	ErrSigningIncomplete = errors.New("transaction signing is incomplete")
)

// SigningIncompleteError carries the signer's full answer for diagnosis.
type SigningIncompleteError struct {
	Result SignResult
}

func (e *SigningIncompleteError) Error() string {
	return fmt.Sprintf("%s: %+v", ErrSigningIncomplete.Error(), e.Result)
}

func (e *SigningIncompleteError) Unwrap() error {
	return ErrSigningIncomplete
}
