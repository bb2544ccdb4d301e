package credits

import (
	"errors"
	"fmt"
)

// Kind classe les erreurs du module crédits
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindInvalidCoupon Kind = "invalid_coupon"
	KindGateway       Kind = "gateway"
	KindConflict      Kind = "conflict"
	KindForbidden     Kind = "forbidden"
)

// Error porte un Kind, un message affichable et la cause éventuelle.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is compare uniquement le Kind : errors.Is(err, ErrNotFound)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrInvalidCoupon = &Error{Kind: KindInvalidCoupon}
	ErrGateway       = &Error{Kind: KindGateway}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrForbidden     = &Error{Kind: KindForbidden}
)

func ValidationError(msg string) error { return &Error{Kind: KindValidation, Message: msg} }

func NotFoundError(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

func InvalidCouponError(reason string) error {
	return &Error{Kind: KindInvalidCoupon, Message: reason}
}

func GatewayError(msg string, err error) error {
	return &Error{Kind: KindGateway, Message: msg, Err: err}
}

func ConflictError(msg string) error { return &Error{Kind: KindConflict, Message: msg} }

func ForbiddenError(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }

// Message retourne le message affichable d'une erreur du module, ou "" sinon
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
