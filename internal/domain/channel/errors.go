package channel

import "errors"

var (
	// ErrAuthExpired indicates the stored credential is no longer accepted.
	// Never retried within a pass; surfaced for an operator to re-authorize.
	ErrAuthExpired = errors.New("channel: authentication expired")
	// ErrNetwork indicates the remote could not be reached or timed out
	ErrNetwork = errors.New("channel: network failure")
	// ErrRateLimited indicates the remote throttled the request
	ErrRateLimited = errors.New("channel: rate limited by remote")
	// ErrRejectedByRemote indicates the remote explicitly refused an update.
	// The wrapping error carries the remote's raw message.
	ErrRejectedByRemote = errors.New("channel: update rejected by remote")
	// ErrProductNotFound indicates the remote has no listing for the key
	ErrProductNotFound = errors.New("channel: product not found on remote")

	// Authorization flow errors
	ErrAuthNotSupported = errors.New("channel: authorization flow not supported")
	ErrInvalidAuthCode  = errors.New("channel: invalid authorization code")
	ErrAuthCodeExpired  = errors.New("channel: authorization code expired")

	ErrNotRegistered      = errors.New("channel: channel not registered")
	ErrCredentialNotFound = errors.New("channel: no stored credential")
)

// IsTransient reports whether an error is worth retrying within the same
// pass. Auth failures are deliberately excluded.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrRateLimited)
}
