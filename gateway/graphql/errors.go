package graphql

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/c360/eventgraph/errors"
)

// Error codes carried in the "code" extension of every resolver error.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeDeadlineExceeded = "DEADLINE_EXCEEDED"
	CodeCancelled        = "CANCELLED"
	CodeTransient        = "TRANSIENT_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
)

// errorCode classifies a resolver error for clients and metrics.
func errorCode(err error) string {
	switch {
	case errors.IsNotFound(err):
		return CodeNotFound
	case stderrors.Is(err, context.DeadlineExceeded):
		return CodeDeadlineExceeded
	case stderrors.Is(err, context.Canceled):
		return CodeCancelled
	case errors.IsInvalid(err):
		return CodeInvalidInput
	case errors.IsFatal(err):
		return CodeInternal
	case errors.IsTransient(err):
		return CodeTransient
	default:
		return CodeInternal
	}
}

// presentError turns resolver errors into gqlerrors with a code extension.
// Errors produced by the GraphQL layer itself (validation, parsing) already
// carry their own message and pass through with no code.
func presentError(ctx context.Context, err error) *gqlerror.Error {
	gqlErr := graphql.DefaultErrorPresenter(ctx, err)

	cause := gqlErr.Err
	if cause == nil {
		return gqlErr
	}

	code := errorCode(cause)
	if gqlErr.Extensions == nil {
		gqlErr.Extensions = map[string]interface{}{}
	}
	gqlErr.Extensions["code"] = code

	switch code {
	case CodeNotFound:
		if nf, ok := errors.AsNotFound(cause); ok {
			gqlErr.Message = nf.Error()
			gqlErr.Extensions["kind"] = nf.Kind
			gqlErr.Extensions["id"] = nf.ID
		}
	case CodeInternal:
		if errors.IsFatal(cause) {
			gqlErr.Message = "internal server error"
		}
	}
	return gqlErr
}

// recoverFunc converts a resolver panic into an internal error and logs the stack.
func recoverFunc(logger *slog.Logger) graphql.RecoverFunc {
	return func(ctx context.Context, p interface{}) error {
		logger.Error("Resolver panic", "panic", p, "stack", string(debug.Stack()))
		return errors.WrapFatal(fmt.Errorf("panic: %v", p), "Gateway", "resolve", "resolver")
	}
}
