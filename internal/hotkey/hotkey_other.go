//go:build !windows

package hotkey

import "log/slog"

type Hook struct{}

func New(Bindings, *slog.Logger) (*Hook, error) { return nil, ErrUnsupported }

func (h *Hook) Start() error { return ErrUnsupported }
func (h *Hook) Close() error { return nil }
