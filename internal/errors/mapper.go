package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

var kindCodes = map[Kind]codes.Code{
	KindValidation:   codes.InvalidArgument,
	KindNotFound:     codes.NotFound,
	KindUnauthorized: codes.PermissionDenied,
	KindConflict:     codes.AlreadyExists,
	KindInsufficient: codes.FailedPrecondition,
	KindRateLimited:  codes.ResourceExhausted,
	KindFraudBlocked: codes.PermissionDenied,
}

// Map converts service/repo/infra errors into gRPC-friendly status errors.
// Keeps transport code clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		code, ok := kindCodes[e.Kind]
		if !ok {
			code = codes.Internal
		}
		return status.Error(code, e.Error())
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, "record not found")

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return status.Error(codes.AlreadyExists, "record already exists")

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
