package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies failures crossing component boundaries.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindTimeout
	KindEmptyContent
	KindParse
	KindStore
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindEmptyContent:
		return "empty_content"
	case KindParse:
		return "parse"
	case KindStore:
		return "store"
	default:
		return "network"
	}
}

// Error wraps an underlying failure with its kind and the target it concerns.
type Error struct {
	Kind ErrorKind
	Op   string
	URL  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", msg, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", msg, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind so errors.Is(err, ErrTimeout) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.URL == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels usable with errors.Is.
var (
	ErrTimeout      = &Error{Kind: KindTimeout}
	ErrNetwork      = &Error{Kind: KindNetwork}
	ErrEmptyContent = &Error{Kind: KindEmptyContent}
	ErrParse        = &Error{Kind: KindParse}
	ErrStore        = &Error{Kind: KindStore}
)

// NewError wraps err with kind, op and url.
func NewError(kind ErrorKind, op, url string, err error) *Error {
	return &Error{Kind: kind, Op: op, URL: url, Err: err}
}

// KindOf classifies err. Deadlines and net timeouts map to KindTimeout;
// anything unrecognised is treated as a network failure.
func KindOf(err error) ErrorKind {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
