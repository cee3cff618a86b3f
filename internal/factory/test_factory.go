package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/sketchrelay/internal/dependencies/mocks"
	"github.com/mcoot/sketchrelay/internal/services/registry"
	"github.com/mcoot/sketchrelay/internal/storage/memory"
	"github.com/mcoot/sketchrelay/internal/transport/ws"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(registry.DefaultConfig())
}

// NewTestAppWithConfig is NewTestApp with custom registry settings
func NewTestAppWithConfig(registryCfg registry.Config) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	app := newWithDependencies(store, mockClock, mockRandom, registryCfg, ws.DefaultConfig(), logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
