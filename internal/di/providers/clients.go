package providers

import (
	"github.com/samber/do/v2"

	"github.com/narrateapp/narrate-server/internal/config"
	"github.com/narrateapp/narrate-server/internal/content"
	"github.com/narrateapp/narrate-server/internal/logger"
	"github.com/narrateapp/narrate-server/internal/narration"
)

// ProvideContentClient provides the client for the book content service.
func ProvideContentClient(i do.Injector) (*content.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return content.New(cfg.Content.BaseURL, cfg.Content.Timeout, log.Logger), nil
}

// ProvideNarrationClient provides the client for the narration rendering service.
func ProvideNarrationClient(i do.Injector) (*narration.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return narration.New(cfg.Narration.BaseURL, cfg.Narration.Timeout, log.Logger), nil
}
