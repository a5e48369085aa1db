package app

import (
	"context"
	"errors"
	"strings"

	"github.com/vbonduro/floodzone/internal/api"
	"github.com/vbonduro/floodzone/internal/geocode"
	"github.com/vbonduro/floodzone/internal/session"
)

// ErrValidation marks form input rejected before any network call.
var ErrValidation = errors.New("invalid input")

const (
	connectionMessage = "could not reach the server, check your connection"
	notFoundMessage   = "address not found"
)

// AlertMessage turns err into the text shown to the user. Validation errors
// show their own text, backend errors show the server message, and anything
// without a usable message shows fallback.
func AlertMessage(err error, fallback string) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, session.ErrValidation):
		return validationText(err)
	case errors.Is(err, geocode.ErrNoResults):
		return notFoundMessage
	case errors.Is(err, api.ErrTransport):
		return connectionMessage
	}
	if msg := api.ServerMessage(err); msg != "" {
		return msg
	}
	return fallback
}

// validationText drops the wrapping prefix so "invalid input: email is
// required" reads "email is required".
func validationText(err error) string {
	msg := err.Error()
	for _, base := range []error{ErrValidation, session.ErrValidation} {
		if rest, ok := strings.CutPrefix(msg, base.Error()+": "); ok {
			return rest
		}
	}
	return msg
}
