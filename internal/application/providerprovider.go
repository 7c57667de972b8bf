package application

import (
	"sync"

	"tempbox/internal/domain/model"
	"tempbox/internal/domain/port/driven"
)

// MailProviderProvider enables runtime switching of the active mail provider
// variant. It holds a mutex-protected reference to the current
// driven.MailProvider and its kind, so a variant switch takes effect without
// restarting the application.
type MailProviderProvider struct {
	mu       sync.RWMutex
	provider driven.MailProvider
	kind     model.ProviderKind
}

// NewMailProviderProvider creates a provider holder with the given initial
// variant.
func NewMailProviderProvider(provider driven.MailProvider, kind model.ProviderKind) *MailProviderProvider {
	return &MailProviderProvider{
		provider: provider,
		kind:     kind,
	}
}

// Get returns the current mail provider.
func (p *MailProviderProvider) Get() driven.MailProvider {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.provider
}

// Kind returns the current provider variant.
func (p *MailProviderProvider) Kind() model.ProviderKind {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.kind
}

// Replace swaps the current provider and kind. The next caller of Get or
// Kind receives the new values.
func (p *MailProviderProvider) Replace(provider driven.MailProvider, kind model.ProviderKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.provider = provider
	p.kind = kind
}
