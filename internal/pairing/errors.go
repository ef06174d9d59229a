package pairing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a rejected generation request.
type ErrorKind string

const (
	KindInsufficientPlayers       ErrorKind = "insufficient_players"
	KindInsufficientGenderBalance ErrorKind = "insufficient_gender_balance"
	KindMissingRequiredAttribute  ErrorKind = "missing_required_attribute"
	KindInvalidPolicy             ErrorKind = "invalid_policy"
	KindDuplicatePlayer           ErrorKind = "duplicate_player"
)

var (
	ErrInsufficientPlayers       = errors.New("insufficient players")
	ErrInsufficientGenderBalance = errors.New("insufficient gender balance")
	ErrMissingRequiredAttribute  = errors.New("missing required attribute")
	ErrInvalidPolicy             = errors.New("invalid policy")
	ErrDuplicatePlayer           = errors.New("duplicate player")
)

var kindErrors = map[ErrorKind]error{
	KindInsufficientPlayers:       ErrInsufficientPlayers,
	KindInsufficientGenderBalance: ErrInsufficientGenderBalance,
	KindMissingRequiredAttribute:  ErrMissingRequiredAttribute,
	KindInvalidPolicy:             ErrInvalidPolicy,
	KindDuplicatePlayer:           ErrDuplicatePlayer,
}

// GenerationError is an input validation failure. It is detected before any
// candidate is enumerated, so a GenerationError never comes with matches.
type GenerationError struct {
	Kind      ErrorKind
	Message   string
	PlayerIDs []string
}

func newGenerationError(kind ErrorKind, message string, playerIDs []string) *GenerationError {
	return &GenerationError{Kind: kind, Message: message, PlayerIDs: playerIDs}
}

func (e *GenerationError) Error() string {
	if len(e.PlayerIDs) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.PlayerIDs, ", "))
}

func (e *GenerationError) Unwrap() error {
	return kindErrors[e.Kind]
}

// AsGenerationError extracts a GenerationError from err's chain.
func AsGenerationError(err error) (*GenerationError, bool) {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr, true
	}
	return nil, false
}
