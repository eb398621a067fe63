//go:build !linux

package hook

import (
	"context"
	"errors"
)

type evdevUnavailable struct{}

func newEvdev(Options) Adapter {
	return evdevUnavailable{}
}

func (evdevUnavailable) Name() string { return BackendEvdev }

func (evdevUnavailable) Start(context.Context, Callback) error {
	return newInstallError(BackendEvdev, "evdev devices exist only on Linux",
		"use the quartz or terminal backend on this platform", errors.ErrUnsupported)
}

func (evdevUnavailable) Stop() error { return ErrNotInstalled }
