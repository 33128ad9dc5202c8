// Package diag classifies analysis failures for logs, metrics and exit codes.
package diag

import (
	"context"
	"errors"
	"net"
	"os"

	"github.com/ppiankov/repcheck/internal/corpus"
	"github.com/ppiankov/repcheck/internal/model"
	"github.com/ppiankov/repcheck/internal/pipeline"
	"github.com/ppiankov/repcheck/internal/repeats"
	"github.com/ppiankov/repcheck/internal/score"
)

// Code is a coarse error class
type Code string

const (
	CodeOK            Code = "ok"
	CodeUnknown       Code = "unknown"
	CodeConfig        Code = "config"
	CodeIO            Code = "io"
	CodeInconsistency Code = "inconsistency"
	CodeCancel        Code = "cancel"
)

// Classify maps err to a code using sentinel errors and error types only
func Classify(err error) Code {
	if err == nil {
		return CodeOK
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	if errors.Is(err, model.ErrInvalidConfig) ||
		errors.Is(err, score.ErrUnknownModel) ||
		errors.Is(err, repeats.ErrFuzziness) {
		return CodeConfig
	}
	if errors.Is(err, repeats.ErrInconsistency) || errors.Is(err, corpus.ErrSizeMismatch) {
		return CodeInconsistency
	}
	if errors.Is(err, pipeline.ErrUnreadable) {
		return CodeIO
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return CodeIO
	}
	return CodeUnknown
}

// ExitCode is the process exit status for err
func ExitCode(err error) int {
	switch Classify(err) {
	case CodeOK:
		return 0
	case CodeConfig:
		return 2
	case CodeIO:
		return 3
	case CodeInconsistency:
		return 4
	case CodeCancel:
		return 130
	default:
		return 1
	}
}
