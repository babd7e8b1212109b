package models

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("already exists")
	ErrRemoteUnavailable     = errors.New("remote store unavailable")
	ErrPartialDelivery       = errors.New("image was not delivered to every recipient")
	ErrPermissionDenied      = errors.New("contacts permission denied")
	ErrUnsupportedCapability = errors.New("capability not supported on device")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
)
