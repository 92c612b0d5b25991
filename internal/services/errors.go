package services

import (
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"go-inventory/internal/models"
)

func cartNotFound() error { return models.NotFoundf(models.CodeCartNotFound, "No active cart found") }
func itemNotFound() error { return models.NotFoundf(models.CodeItemNotFound, "Item not found") }
func lineNotFound() error { return models.NotFoundf(models.CodeLineNotFound, "Item not in cart") }

// domainErr passes domain errors through, turns a missing row into notFound
// (when given) and wraps everything else as Internal.
func domainErr(err error, notFound func() error) error {
	if err == nil {
		return nil
	}
	var de *models.Error
	if errors.As(err, &de) {
		return de
	}
	var ce *models.ConflictError
	if errors.As(err, &ce) {
		return ce
	}
	if notFound != nil && errors.Is(err, models.ErrRecordNotFound) {
		return notFound()
	}
	return models.Internal(err)
}

// fail records err on the span and logs internal failures.
func fail(logger *zap.Logger, span trace.Span, op string, err error) error {
	span.RecordError(err)
	if models.KindOf(err) == models.KindInternal {
		span.SetStatus(codes.Error, err.Error())
		logger.Error(op+" failed", zap.Error(err))
	} else {
		logger.Debug(op+" rejected", zap.Error(err))
	}
	return err
}
