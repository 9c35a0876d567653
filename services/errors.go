package services

import "errors"

var (
	ErrConfigurationMissing = errors.New("store is not configured")
	ErrMalformedInput       = errors.New("malformed input")
	ErrMalformedDate        = errors.New("malformed date")
	ErrMissingID            = errors.New("conversation id is required")
	ErrRevisionConflict     = errors.New("revision conflict")
	ErrAlreadyExists        = errors.New("document already exists")
	ErrRemoteUnavailable    = errors.New("remote store unavailable")
)

// isConflict は書き込みが他の書き込みと衝突したかどうかを返します。
func isConflict(err error) bool {
	return errors.Is(err, ErrRevisionConflict) || errors.Is(err, ErrAlreadyExists)
}
