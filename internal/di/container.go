// Package di provides dependency injection configuration for the Narrate server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/narrateapp/narrate-server/internal/config"
	"github.com/narrateapp/narrate-server/internal/content"
	"github.com/narrateapp/narrate-server/internal/di/providers"
	"github.com/narrateapp/narrate-server/internal/logger"
	"github.com/narrateapp/narrate-server/internal/narration"
	"github.com/narrateapp/narrate-server/internal/playback"
	"github.com/narrateapp/narrate-server/internal/service"
	"github.com/narrateapp/narrate-server/internal/synth"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Playback layer
	do.Provide(injector, providers.ProvideSynthEngine)
	do.Provide(injector, providers.ProvideRegistry)

	// Upstream clients
	do.Provide(injector, providers.ProvideContentClient)
	do.Provide(injector, providers.ProvideNarrationClient)

	// Business services
	do.Provide(injector, providers.ProvideReaderService)
	do.Provide(injector, providers.ProvideHighlightService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[synth.Engine](injector)
	_ = do.MustInvoke[*playback.Registry](injector)
	_ = do.MustInvoke[*content.Client](injector)
	_ = do.MustInvoke[*narration.Client](injector)

	// Business services
	_ = do.MustInvoke[*service.ReaderService](injector)
	_ = do.MustInvoke[*providers.HighlightServiceHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
