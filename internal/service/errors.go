package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/housesplit/internal/calculator"
	"github.com/mmynk/housesplit/internal/guard"
	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/internal/storage"
)

// toConnectError maps domain, guard and storage errors to Connect codes.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	var opErr *storage.OpError
	switch {
	case errors.Is(err, models.ErrInvalidExpense),
		errors.Is(err, models.ErrUnknownParticipant),
		errors.Is(err, models.ErrInvalidCard),
		errors.Is(err, models.ErrInvalidCategory),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, calculator.ErrInvalidMonth):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, guard.ErrDisabled),
		errors.Is(err, guard.ErrWrongSecret),
		errors.Is(err, guard.ErrInvalidCapability),
		errors.Is(err, guard.ErrMissingCredential):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.As(err, &opErr), errors.Is(err, storage.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
