package superjwt

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventAuthorizeSuccess  = "authorize_success"
	auditEventAuthorizeRejected = "authorize_rejected"
	auditEventAuthorizeNoStream = "authorize_no_stream"
	auditEventVerifySuccess     = "verify_success"
	auditEventVerifyFailure     = "verify_failure"
)

// AuditErrorCode is the stable error label carried by AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrMissingParameters   AuditErrorCode = "missing_parameters"
	auditErrInvalidParameters   AuditErrorCode = "invalid_parameters"
	auditErrUnsupportedNetwork  AuditErrorCode = "unsupported_network"
	auditErrNoActiveStream      AuditErrorCode = "no_active_stream"
	auditErrInvalidToken        AuditErrorCode = "invalid_token"
	auditErrInvalidSigningInput AuditErrorCode = "invalid_signing_options"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (a *Authority) emitAudit(
	ctx context.Context,
	eventType string,
	requestID string,
	fields map[string]any,
	err error,
) {
	if a == nil || a.audit == nil {
		return
	}

	claims := Claims(fields)
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		RequestID: requestID,
		Network:   claims.Network(),
		Sender:    claims.Sender(),
		Receiver:  claims.Receiver(),
		Asset:     claims.Asset(),
		Success:   err == nil,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	a.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrMissingParameters):
		return auditErrMissingParameters
	case errors.Is(err, ErrInvalidParameters):
		return auditErrInvalidParameters
	case errors.Is(err, ErrUnsupportedNetwork):
		return auditErrUnsupportedNetwork
	case errors.Is(err, ErrNoActiveStream):
		return auditErrNoActiveStream
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrInvalidSigningOptions):
		return auditErrInvalidSigningInput
	default:
		return auditErrInternal
	}
}
