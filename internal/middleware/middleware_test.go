package middleware

import (
	"errors"
	"fmt"
	"testing"

	twigerrors "twig/internal/errors"
	"twig/internal/logging"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestChain(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next RunE) RunE {
			return func(cmd *cobra.Command, args []string) error {
				order = append(order, name)
				return next(cmd, args)
			}
		}
	}

	h := Chain(func(cmd *cobra.Command, args []string) error {
		order = append(order, "handler")
		return nil
	}, mark("inner"), mark("outer"))

	require.NoError(t, h(&cobra.Command{Use: "test"}, nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestInvocationID(t *testing.T) {
	var seen string
	h := InvocationID(func(cmd *cobra.Command, args []string) error {
		seen = logging.InvocationFrom(cmd.Context())
		return nil
	})

	require.NoError(t, h(&cobra.Command{Use: "test"}, nil))
	assert.Len(t, seen, 36)
}

func TestRecover(t *testing.T) {
	logger := logging.NewNop()
	h := Chain(func(cmd *cobra.Command, args []string) error {
		panic("boom")
	}, Recover(logger))

	err := h(&cobra.Command{Use: "test"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestLoggerPassesErrorThrough(t *testing.T) {
	want := errors.New("failed")
	h := Chain(func(cmd *cobra.Command, args []string) error {
		return want
	}, Logger(logging.NewNop()), InvocationID)

	assert.ErrorIs(t, h(&cobra.Command{Use: "test"}, []string{"x"}), want)
}

func TestLoggerRecordsErrorType(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := &logging.Logger{Logger: zap.New(core)}

	h := Chain(func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("switching: %w", twigerrors.UnknownBranch("topic"))
	}, Logger(logger), InvocationID)

	err := h(&cobra.Command{Use: "checkout"}, []string{"topic"})
	assert.ErrorIs(t, err, twigerrors.ErrUnknownBranch)

	entries := logs.FilterMessage("command completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "checkout", fields["command"])
	assert.Equal(t, string(twigerrors.ErrorTypeUnknownBranch), fields["error_type"])
	assert.Len(t, fields["invocation_id"], 36)
}
