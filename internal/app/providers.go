package app

import (
	"fmt"
	"log/slog"

	"github.com/weihan0529/global-meeting-scribe/internal/config"
	"github.com/weihan0529/global-meeting-scribe/internal/resilience"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/diarize"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/llm"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/mt"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/stt"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/vad"
)

// Providers holds one interface value per pipeline stage. Nil means the
// stage is not configured and the pipeline degrades around it.
type Providers struct {
	VAD      vad.Detector
	STT      stt.Transcriber
	Diarizer diarize.Diarizer
	MT       mt.Translator
	LLM      llm.Provider
}

// BuildProviders instantiates every configured provider through the
// registry. Stages with configured fallbacks are wrapped in a
// circuit-breaking fallback chain; an unconfigured stage stays nil.
func BuildProviders(cfg *config.Config, reg *config.Registry) (*Providers, error) {
	p := &Providers{}
	pc := cfg.Providers

	if pc.VAD.Name != "" {
		det, err := reg.CreateVAD(pc.VAD)
		if err != nil {
			return nil, fmt.Errorf("app: build vad provider: %w", err)
		}
		p.VAD = det
	}

	if pc.STT.Name != "" {
		primary, err := reg.CreateSTT(pc.STT)
		if err != nil {
			return nil, fmt.Errorf("app: build stt provider: %w", err)
		}
		if len(pc.STT.Fallbacks) == 0 {
			p.STT = primary
		} else {
			chain := resilience.NewSTTFallback(primary, pc.STT.Name, resilience.FallbackConfig{})
			for _, entry := range pc.STT.Fallbacks {
				t, err := reg.CreateSTT(entry)
				if err != nil {
					return nil, fmt.Errorf("app: build stt fallback %q: %w", entry.Name, err)
				}
				chain.AddFallback(entry.Name, t)
			}
			p.STT = chain
		}
	}

	if pc.Diarize.Name != "" {
		d, err := reg.CreateDiarize(pc.Diarize)
		if err != nil {
			return nil, fmt.Errorf("app: build diarize provider: %w", err)
		}
		if len(pc.Diarize.Fallbacks) > 0 {
			// A second diarizer would assign incompatible cluster labels,
			// breaking the speaker registry. Run exactly one.
			slog.Warn("diarize fallbacks are not supported, ignoring",
				"count", len(pc.Diarize.Fallbacks))
		}
		p.Diarizer = d
	}

	if pc.MT.Name != "" {
		primary, err := reg.CreateMT(pc.MT)
		if err != nil {
			return nil, fmt.Errorf("app: build mt provider: %w", err)
		}
		if len(pc.MT.Fallbacks) == 0 {
			p.MT = primary
		} else {
			chain := resilience.NewMTFallback(primary, pc.MT.Name, resilience.FallbackConfig{})
			for _, entry := range pc.MT.Fallbacks {
				tr, err := reg.CreateMT(entry)
				if err != nil {
					return nil, fmt.Errorf("app: build mt fallback %q: %w", entry.Name, err)
				}
				chain.AddFallback(entry.Name, tr)
			}
			p.MT = chain
		}
	}

	if pc.LLM.Name != "" {
		primary, err := reg.CreateLLM(pc.LLM)
		if err != nil {
			return nil, fmt.Errorf("app: build llm provider: %w", err)
		}
		if len(pc.LLM.Fallbacks) == 0 {
			p.LLM = primary
		} else {
			chain := resilience.NewLLMFallback(primary, pc.LLM.Name, resilience.FallbackConfig{})
			for _, entry := range pc.LLM.Fallbacks {
				prov, err := reg.CreateLLM(entry)
				if err != nil {
					return nil, fmt.Errorf("app: build llm fallback %q: %w", entry.Name, err)
				}
				chain.AddFallback(entry.Name, prov)
			}
			p.LLM = chain
		}
	}

	return p, nil
}
