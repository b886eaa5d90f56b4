package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/weihan0529/global-meeting-scribe/pkg/provider/diarize"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/llm"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/mt"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/stt"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/vad"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// pipeline stage. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	vad     map[string]func(ProviderEntry) (vad.Detector, error)
	stt     map[string]func(ProviderEntry) (stt.Transcriber, error)
	diarize map[string]func(ProviderEntry) (diarize.Diarizer, error)
	mt      map[string]func(ProviderEntry) (mt.Translator, error)
	llm     map[string]func(ProviderEntry) (llm.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		vad:     make(map[string]func(ProviderEntry) (vad.Detector, error)),
		stt:     make(map[string]func(ProviderEntry) (stt.Transcriber, error)),
		diarize: make(map[string]func(ProviderEntry) (diarize.Diarizer, error)),
		mt:      make(map[string]func(ProviderEntry) (mt.Translator, error)),
		llm:     make(map[string]func(ProviderEntry) (llm.Provider, error)),
	}
}

// RegisterVAD registers a voice-activity detector factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterVAD(name string, factory func(ProviderEntry) (vad.Detector, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[name] = factory
}

// RegisterSTT registers a transcriber factory under name.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Transcriber, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterDiarize registers a diarizer factory under name.
func (r *Registry) RegisterDiarize(name string, factory func(ProviderEntry) (diarize.Diarizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diarize[name] = factory
}

// RegisterMT registers a translator factory under name.
func (r *Registry) RegisterMT(name string, factory func(ProviderEntry) (mt.Translator, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mt[name] = factory
}

// RegisterLLM registers an LLM provider factory under name.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// CreateVAD instantiates a detector using the factory registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateVAD(entry ProviderEntry) (vad.Detector, error) {
	r.mu.RLock()
	factory, ok := r.vad[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateSTT instantiates a transcriber using the factory registered under entry.Name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Transcriber, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateDiarize instantiates a diarizer using the factory registered under entry.Name.
func (r *Registry) CreateDiarize(entry ProviderEntry) (diarize.Diarizer, error) {
	r.mu.RLock()
	factory, ok := r.diarize[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: diarize/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateMT instantiates a translator using the factory registered under entry.Name.
func (r *Registry) CreateMT(entry ProviderEntry) (mt.Translator, error) {
	r.mu.RLock()
	factory, ok := r.mt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: mt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateLLM instantiates an LLM provider using the factory registered under entry.Name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
