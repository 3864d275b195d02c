package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/trove/internal/app"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func provide(a *app.App, logger *mocks.MockLogger, cleaned *bool) ComponentProvider {
	return func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{App: a, Logger: logger}, func() { *cleaned = true }, nil
	}
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	application := app.New(&domain.Config{}, mockLogger, nil, nil, nil, nil, nil, nil)

	cleaned := false
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stdout, stderr, provide(application, mockLogger, &cleaned))

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "trove version")
	assert.True(t, cleaned)
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, new(bytes.Buffer), stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that run logs the failure and returns 1.
func TestRun_ExecutionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockRegistry := mocks.NewMockBundleRegistry(ctrl)
	application := app.New(&domain.Config{}, mockLogger, mockRegistry, nil, nil, nil, nil, nil)

	mockRegistry.EXPECT().Remove("ghost").Return(domain.Overlay{}, domain.ErrOverlayNotFound)
	mockLogger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, domain.ErrOverlayNotFound)
	})

	cleaned := false
	exitCode := run(context.Background(), []string{"overlay", "remove", "ghost"},
		new(bytes.Buffer), new(bytes.Buffer), provide(application, mockLogger, &cleaned))

	assert.Equal(t, 1, exitCode)
	assert.True(t, cleaned)
}

// TestRun_UnknownCommand verifies that cobra errors go through the logger.
func TestRun_UnknownCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	application := app.New(&domain.Config{}, mockLogger, nil, nil, nil, nil, nil, nil)

	mockLogger.EXPECT().Error(gomock.Any())

	cleaned := false
	exitCode := run(context.Background(), []string{"frobnicate"},
		new(bytes.Buffer), new(bytes.Buffer), provide(application, mockLogger, &cleaned))

	assert.Equal(t, 1, exitCode)
}
