package sql

import (
	"errors"
	"fmt"
)

// error kinds, test with errors.Is
var (
	ErrSyntax               = errors.New("syntax error")
	ErrUnknownFunction      = errors.New("unknown function")
	ErrUnsupportedChartType = errors.New("unsupported chart type")
	ErrMalformedStatement   = errors.New("malformed statement")
	ErrInternal             = errors.New("internal error")
	ErrRewriteFailure       = errors.New("rewrite failure")
	ErrUnknownColumn        = errors.New("unknown column")
	ErrUnknownTable         = errors.New("unknown table")
)

type Error struct {
	Kind  error
	Stage string
	Msg   string
}

func (self *Error) Error() string {
	return fmt.Sprintf("%s(%s): %s", self.Stage, self.Kind, self.Msg)
}

func (self *Error) Unwrap() error {
	return self.Kind
}

func NewError(kind error, stage string, format string, args ...interface{}) error {
	return &Error{
		Kind:  kind,
		Stage: stage,
		Msg:   fmt.Sprintf(format, args...),
	}
}

// KindOf returns the kind of a typed error, nil when err is not one.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}
