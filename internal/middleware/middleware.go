package middleware

import (
	"context"
	"fmt"
	"time"

	twigerrors "twig/internal/errors"
	"twig/internal/logging"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RunE matches cobra.Command.RunE.
type RunE func(cmd *cobra.Command, args []string) error

type Middleware func(RunE) RunE

func Chain(h RunE, middlewares ...Middleware) RunE {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func InvocationID(next RunE) RunE {
	return func(cmd *cobra.Command, args []string) error {
		id := uuid.New().String()
		cmd.SetContext(logging.ContextWithInvocation(commandContext(cmd), id))
		return next(cmd, args)
	}
}

func Logger(logger *logging.Logger) Middleware {
	return func(next RunE) RunE {
		return func(cmd *cobra.Command, args []string) error {
			start := time.Now()

			err := next(cmd, args)

			fields := []zap.Field{
				zap.String("command", cmd.Name()),
				zap.Strings("args", args),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
				if t := twigerrors.TypeOf(err); t != "" {
					fields = append(fields, zap.String("error_type", string(t)))
				}
			}
			logger.WithInvocation(commandContext(cmd)).Debug("command completed", fields...)
			return err
		}
	}
}

func Recover(logger *logging.Logger) Middleware {
	return func(next RunE) RunE {
		return func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.WithInvocation(commandContext(cmd)).Error("panic recovered",
						zap.String("command", cmd.Name()),
						zap.Any("error", r),
					)
					err = fmt.Errorf("internal error: %v", r)
				}
			}()
			return next(cmd, args)
		}
	}
}
