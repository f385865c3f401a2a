package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass separates failures the retry loop may retry from those it must
// not. Permanent failures (bad credentials, exhausted quota, unknown model)
// stop retrying the provider immediately; the fallback chain still proceeds
// to other providers.
type ErrorClass int

const (
	ClassTransient ErrorClass = iota
	ClassPermanent
)

func (c ErrorClass) String() string {
	if c == ClassPermanent {
		return "permanent"
	}
	return "transient"
}

// Error is a classified provider failure.
type Error struct {
	Provider string
	Status   int
	Class    ErrorClass
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d, %s)", e.Provider, e.Message, e.Status, e.Class)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Class)
}

func (e *Error) Unwrap() error { return e.Err }

// Permanent reports whether retrying this provider is pointless.
func (e *Error) Permanent() bool { return e.Class == ClassPermanent }

// MalformedResponseError means the response stayed undecodable after cleaning
// and repair. It carries enough of the original text to diagnose what the
// model actually produced.
type MalformedResponseError struct {
	RawLen     int
	CleanedLen int
	Head       string
	Tail       string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("response is not decodable JSON (raw %d bytes, cleaned %d): head %q tail %q",
		e.RawLen, e.CleanedLen, e.Head, e.Tail)
}

// DraftError means the decoded JSON lacks the required project shape or the
// built hierarchy failed validation. The attempt fails; it is not retried.
type DraftError struct {
	Problems []string
}

func (e *DraftError) Error() string {
	return "invalid project draft: " + strings.Join(e.Problems, "; ")
}

// statusClasses maps HTTP status codes to classes, per provider. Codes absent
// from a table fall through to keyword classification.
var statusClasses = map[string]map[int]ErrorClass{
	"anthropic": {
		400: ClassPermanent, // invalid request / unknown model
		401: ClassPermanent,
		403: ClassPermanent,
		404: ClassPermanent,
		413: ClassPermanent,
		429: ClassTransient,
		500: ClassTransient,
		529: ClassTransient, // overloaded
	},
	"openai": {
		400: ClassPermanent,
		401: ClassPermanent,
		403: ClassPermanent,
		404: ClassPermanent, // unknown model
		429: ClassTransient, // rate limit; quota variants caught by keywords first
		500: ClassTransient,
		503: ClassTransient,
	},
	"gemini": {
		400: ClassPermanent, // INVALID_ARGUMENT
		403: ClassPermanent, // PERMISSION_DENIED
		404: ClassPermanent,
		429: ClassTransient, // RESOURCE_EXHAUSTED rate limits
		500: ClassTransient,
		503: ClassTransient,
	},
}

// permanentKeywords override status classification: a 429 that is really an
// exhausted quota must not be retried.
var permanentKeywords = []string{
	"invalid api key",
	"incorrect api key",
	"invalid x-api-key",
	"authentication",
	"unauthorized",
	"permission denied",
	"quota",
	"insufficient_quota",
	"billing",
	"model not found",
	"unknown model",
	"does not exist",
}

// retryableKeywords is the message fallback for errors with no usable status.
var retryableKeywords = []string{
	"network",
	"timeout",
	"fetch",
	"connection",
	"deadline",
	"temporar",
	"unavailable",
	"overloaded",
	"rate limit",
	"reset by peer",
	"eof",
}

// Classify determines the retry class of a failure from providerName's static
// status table plus the message-keyword fallback. Unclassified errors are
// treated as retryable.
func Classify(providerName string, status int, err error) ErrorClass {
	if err == nil {
		return ClassTransient
	}
	msg := strings.ToLower(err.Error())

	for _, kw := range permanentKeywords {
		if strings.Contains(msg, kw) {
			return ClassPermanent
		}
	}
	if table, ok := statusClasses[providerName]; ok {
		if class, ok := table[status]; ok {
			return class
		}
	}
	for _, kw := range retryableKeywords {
		if strings.Contains(msg, kw) {
			return ClassTransient
		}
	}
	return ClassTransient
}

// classifyFailure resolves the class of any error coming out of a generation
// attempt. A malformed response is retryable (the model may emit valid JSON on
// the next try); an invalid draft fails the attempt without further retries on
// this provider.
func classifyFailure(providerName string, err error) ErrorClass {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Class
	}
	var merr *MalformedResponseError
	if errors.As(err, &merr) {
		return ClassTransient
	}
	var derr *DraftError
	if errors.As(err, &derr) {
		return ClassPermanent
	}
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrInvalidCredentials) {
		return ClassPermanent
	}
	return Classify(providerName, 0, err)
}

// newAPIError builds a classified Error from an HTTP-level failure.
func newAPIError(providerName string, status int, message string, err error) *Error {
	if err == nil {
		err = errors.New(message)
	}
	return &Error{
		Provider: providerName,
		Status:   status,
		Class:    Classify(providerName, status, err),
		Message:  message,
		Err:      err,
	}
}
