package util

import (
	"context"
	"fmt"

	"github.com/infigaming-com/go-fxconvert/errors"
)

type ContextKey string

const (
	CorrelationIdKey ContextKey = "CorrelationId"
	OriginKey        ContextKey = "Origin"
)

func ValueToCtx[T any](ctx context.Context, key ContextKey, value T) context.Context {
	return context.WithValue(ctx, key, value)
}

func ValueFromCtx[T any](ctx context.Context, key ContextKey) (T, error) {
	valueFromCtx := ctx.Value(key)
	if valueFromCtx == nil {
		return *new(T), errors.NewError(errors.ErrCodeValueNotFoundInContext, fmt.Sprintf("%v not found in context", key), nil)
	}
	value, ok := valueFromCtx.(T)
	if !ok {
		return *new(T), errors.NewError(errors.ErrCodeInvalidValueInContext, fmt.Sprintf("%v is not of type %T on context", key, *new(T)), nil)
	}
	return value, nil
}

func CorrelationIdToCtx(ctx context.Context, correlationId string) context.Context {
	return ValueToCtx(ctx, CorrelationIdKey, correlationId)
}

func CorrelationIdFromCtx(ctx context.Context) (string, error) {
	return ValueFromCtx[string](ctx, CorrelationIdKey)
}

// OriginToCtx tags ctx with the id of the context (session) issuing a write,
// so change notifications can skip the writer.
func OriginToCtx(ctx context.Context, origin string) context.Context {
	return ValueToCtx(ctx, OriginKey, origin)
}

func OriginFromCtx(ctx context.Context) (string, error) {
	return ValueFromCtx[string](ctx, OriginKey)
}
