package domain

import (
	"context"
	"errors"

	"solarspy/pkg/powerwall"
	"solarspy/pkg/sevenseg"
)

type ErrorKind string

const (
	ERROR_KIND_NONE         ErrorKind = ""
	ERROR_KIND_CONFIG       ErrorKind = "config"
	ERROR_KIND_CONNECTIVITY ErrorKind = "connectivity"
	ERROR_KIND_AUTH         ErrorKind = "auth"
	ERROR_KIND_GATEWAY      ErrorKind = "gateway"
	ERROR_KIND_RENDER       ErrorKind = "render"
	ERROR_KIND_HARDWARE_IO  ErrorKind = "hardware_io"
	ERROR_KIND_TIMEOUT      ErrorKind = "timeout"
	ERROR_KIND_UNKNOWN      ErrorKind = "unknown"
)

func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ERROR_KIND_NONE
	case errors.Is(err, powerwall.ErrConfig):
		return ERROR_KIND_CONFIG
	case errors.Is(err, powerwall.ErrConnectivity):
		return ERROR_KIND_CONNECTIVITY
	case errors.Is(err, powerwall.ErrAuth):
		return ERROR_KIND_AUTH
	case errors.Is(err, powerwall.ErrGateway):
		return ERROR_KIND_GATEWAY
	case errors.Is(err, sevenseg.ErrInsufficientDigits), errors.Is(err, sevenseg.ErrUnsupportedChar):
		return ERROR_KIND_RENDER
	case errors.Is(err, sevenseg.ErrHardwareIO):
		return ERROR_KIND_HARDWARE_IO
	case errors.Is(err, context.DeadlineExceeded):
		return ERROR_KIND_TIMEOUT
	default:
		return ERROR_KIND_UNKNOWN
	}
}
