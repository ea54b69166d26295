/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package errdefs

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the caller is expected to react to it.
type Kind string

const (
	// KindInvalidInput covers ambiguous or missing targets and malformed values.
	KindInvalidInput Kind = "InvalidInput"
	// KindConfiguration covers a missing or incomplete delegated credential.
	KindConfiguration Kind = "ConfigurationError"
	// KindAuthorization covers a failed (fail-closed) permission check.
	KindAuthorization Kind = "AuthorizationError"
	// KindNotFound covers a missing target resource or scheduled workflow.
	KindNotFound Kind = "NotFoundError"
	// KindExternalService covers network, authentication and deployment failures.
	KindExternalService Kind = "ExternalServiceError"
	// KindUnsupported covers the wrong invocation context or an untaggable resource type.
	KindUnsupported Kind = "UnsupportedOperation"
)

// Reason narrows a Kind down to the specific condition that produced it.
type Reason string

const (
	// ReasonUnknown is used when the Kind alone describes the failure.
	ReasonUnknown Reason = ""
	// ReasonInvalidDurationFormat marks a timer that is not a duration like 1d, 6h or 2h30m.
	ReasonInvalidDurationFormat Reason = "InvalidDurationFormat"
	// ReasonAmbiguousTarget marks a request naming neither or both of a resource id and a resource group.
	ReasonAmbiguousTarget Reason = "AmbiguousTarget"
	// ReasonIncompleteCredential marks a delegated credential with an empty field.
	ReasonIncompleteCredential Reason = "IncompleteCredential"
	// ReasonAlreadyConfigured marks a configure call that would overwrite a stored credential without force.
	ReasonAlreadyConfigured Reason = "AlreadyConfigured"
	// ReasonNotConfigured marks a delegated request made before any credential was configured.
	ReasonNotConfigured Reason = "NotConfigured"
)

// Error is the error type returned across package boundaries in this module.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, reason Reason, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind that wraps err.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// InvalidInput is shorthand for New(KindInvalidInput, ...).
func InvalidInput(reason Reason, format string, args ...any) *Error {
	return New(KindInvalidInput, reason, format, args...)
}

// NotFound is shorthand for New(KindNotFound, ReasonUnknown, ...).
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, ReasonUnknown, format, args...)
}

// Unsupported is shorthand for New(KindUnsupported, ReasonUnknown, ...).
func Unsupported(format string, args ...any) *Error {
	return New(KindUnsupported, ReasonUnknown, format, args...)
}

// External wraps a collaborator failure as an ExternalServiceError.
func External(err error, format string, args ...any) *Error {
	return Wrap(KindExternalService, err, format, args...)
}

// KindOf returns the Kind of the first Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the Reason of the first Error in err's chain.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonUnknown
}

// IsInvalidInput reports whether err is an InvalidInput error.
func IsInvalidInput(err error) bool { return KindOf(err) == KindInvalidInput }

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool { return KindOf(err) == KindConfiguration }

// IsAuthorization reports whether err is an AuthorizationError.
func IsAuthorization(err error) bool { return KindOf(err) == KindAuthorization }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsExternalService reports whether err is an ExternalServiceError.
func IsExternalService(err error) bool { return KindOf(err) == KindExternalService }

// IsUnsupported reports whether err is an UnsupportedOperation error.
func IsUnsupported(err error) bool { return KindOf(err) == KindUnsupported }

// IgnoreNotFound returns nil on NotFound errors and err otherwise.
func IgnoreNotFound(err error) error {
	if IsNotFound(err) {
		return nil
	}
	return err
}
