//go:build !darwin

package hook

import (
	"context"
	"errors"
)

type quartzUnavailable struct{}

func newQuartz(Options) Adapter {
	return quartzUnavailable{}
}

func (quartzUnavailable) Name() string { return BackendQuartz }

func (quartzUnavailable) Start(context.Context, Callback) error {
	return newInstallError(BackendQuartz, "Quartz event taps require macOS",
		"use the evdev or terminal backend on this platform", errors.ErrUnsupported)
}

func (quartzUnavailable) Stop() error { return ErrNotInstalled }
