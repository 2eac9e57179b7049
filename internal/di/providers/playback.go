package providers

import (
	"github.com/samber/do/v2"

	"github.com/narrateapp/narrate-server/internal/config"
	"github.com/narrateapp/narrate-server/internal/logger"
	"github.com/narrateapp/narrate-server/internal/playback"
	"github.com/narrateapp/narrate-server/internal/sse"
	"github.com/narrateapp/narrate-server/internal/synth"
)

// ProvideSynthEngine provides the local text-to-speech engine.
func ProvideSynthEngine(i do.Injector) (synth.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Synth.Enabled {
		log.Info("Speech synthesis disabled by configuration")
		return synth.NoopEngine{}, nil
	}

	engine := synth.NewExecEngine(cfg.Synth.BinaryPath, log.Logger)
	log.Info("Speech synthesis engine selected",
		"engine", engine.Name(),
		"available", engine.Available())
	return engine, nil
}

// ProvideRegistry provides the playback session registry.
func ProvideRegistry(i do.Injector) (*playback.Registry, error) {
	log := do.MustInvoke[*logger.Logger](i)
	engine := do.MustInvoke[synth.Engine](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	adapter := sse.NewPlaybackAdapter(sseHandle.Manager)
	return playback.NewRegistry(engine, adapter, log.Logger), nil
}
