package superjwt

import (
	"errors"

	"github.com/MrEthical07/superjwt/indexer"
)

var (
	// ErrMissingParameters is returned by Authorize when a required stream key is absent.
	ErrMissingParameters = errors.New("super-jwt: missing required stream payload (network, sender, receiver, asset)")
	// ErrInvalidParameters is returned for non-scalar values or reserved claim names.
	ErrInvalidParameters = errors.New("super-jwt: invalid stream payload")
	// ErrUnsupportedNetwork is returned when the network has no registered indexer.
	ErrUnsupportedNetwork = indexer.ErrUnsupportedNetwork
	// ErrNoActiveStream is returned when the indexer reports no active stream.
	ErrNoActiveStream = errors.New("super-jwt: no stream found to authenticate")
	// ErrInvalidToken is returned by Verify for every verification failure.
	ErrInvalidToken = errors.New("super-jwt: failed to verify token")
	// ErrInvalidSigningOptions is returned when signing options or the secret are unusable.
	ErrInvalidSigningOptions = errors.New("super-jwt: invalid signing options")
	// ErrAuthorityNotReady is returned when an Authority was not built through Builder.Build.
	ErrAuthorityNotReady = errors.New("super-jwt: authority not initialized")
)
