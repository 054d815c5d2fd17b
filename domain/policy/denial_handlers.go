package policy

import (
	"fmt"
	"os"

	"github.com/reglet-dev/reglet-oscall/domain/ports"
	"go.uber.org/zap"
)

// Ensure implementations satisfy the interface.
var _ ports.DenialHandler = (*StderrDenialHandler)(nil)
var _ ports.DenialHandler = (*NopDenialHandler)(nil)
var _ ports.DenialHandler = (*LoggerDenialHandler)(nil)

// StderrDenialHandler logs denials to stderr.
type StderrDenialHandler struct{}

func (h *StderrDenialHandler) OnDenial(kind string, request interface{}, reason string) {
	fmt.Fprintf(os.Stderr, "Permission Denied [%s]: %v (Reason: %s)\n", kind, request, reason)
}

// NopDenialHandler does nothing.
type NopDenialHandler struct{}

func (h *NopDenialHandler) OnDenial(kind string, request interface{}, reason string) {}

// LoggerDenialHandler reports denials through a zap logger.
type LoggerDenialHandler struct {
	Logger *zap.Logger
}

func (h *LoggerDenialHandler) OnDenial(kind string, request interface{}, reason string) {
	h.Logger.Warn("permission denied",
		zap.String("kind", kind),
		zap.Any("request", request),
		zap.String("reason", reason))
}
