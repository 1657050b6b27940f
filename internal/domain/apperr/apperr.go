// Package apperr define la taxonomía de errores compartida por los módulos de dominio.
// Los handlers solo conocen estos kinds; cada módulo agrega el detalle con New/Wrap.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnavailable     = errors.New("unavailable")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Error agrega un mensaje legible a uno de los kinds de arriba.
// errors.Is(err, ErrConflict) sigue funcionando a través de Kind.
type Error struct {
	Kind error
	Msg  string
	Err  error // causa opcional (p.ej. error de I/O)
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New crea un error de dominio con mensaje formateado.
func New(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Unavailable envuelve una falla de storage/upstream. No se reintenta aquí.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrUnavailable, Msg: op, Err: err}
}

// KindOf devuelve el kind de err, o nil si no es un error de dominio.
func KindOf(err error) error {
	for _, k := range []error{ErrNotFound, ErrForbidden, ErrConflict, ErrInvalidInput, ErrUnavailable, ErrUnauthenticated} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Storage deja pasar los kinds de dominio y marca el resto como Unavailable.
func Storage(op string, err error) error {
	if err == nil || KindOf(err) != nil {
		return err
	}
	return Unavailable(op, err)
}
