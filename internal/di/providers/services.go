package providers

import (
	"github.com/samber/do/v2"

	"github.com/narrateapp/narrate-server/internal/config"
	"github.com/narrateapp/narrate-server/internal/content"
	"github.com/narrateapp/narrate-server/internal/logger"
	"github.com/narrateapp/narrate-server/internal/narration"
	"github.com/narrateapp/narrate-server/internal/playback"
	"github.com/narrateapp/narrate-server/internal/service"
	"github.com/narrateapp/narrate-server/internal/timemap"
)

// ProvideReaderService provides the reading session service.
func ProvideReaderService(i do.Injector) (*service.ReaderService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	registry := do.MustInvoke[*playback.Registry](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	contentClient := do.MustInvoke[*content.Client](i)
	narrationClient := do.MustInvoke[*narration.Client](i)

	estimator := timemap.NewEstimator(cfg.Timing.CharsPerSecond, cfg.Timing.FloorSeconds)

	return service.NewReaderService(registry, storeHandle.Store, contentClient, narrationClient,
		estimator, sseHandle.Manager, log.Logger), nil
}

// HighlightServiceHandle wraps the highlight service with shutdown capability.
type HighlightServiceHandle struct {
	*service.HighlightService
}

// Shutdown implements do.Shutdownable.
func (h *HighlightServiceHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideHighlightService provides the highlight service.
func ProvideHighlightService(i do.Injector) (*HighlightServiceHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)

	svc := service.NewHighlightService(storeHandle.Store, searchHandle.SearchIndex, log.Logger)
	return &HighlightServiceHandle{HighlightService: svc}, nil
}
