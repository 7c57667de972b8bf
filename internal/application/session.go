package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"tempbox/internal/domain/model"
	"tempbox/internal/domain/port/driven"
)

// ProviderFactory constructs a mail provider for the given variant. Supplied
// by the composition root so the session can switch variants at runtime.
type ProviderFactory func(kind model.ProviderKind) (driven.MailProvider, error)

// SessionService owns the single active disposable-email session: its
// lifecycle state machine (restore-or-create, expiry, regeneration), the
// inbox message list with its single-flight refresh, and the two countdowns
// driven by Tick.
//
// At all times in the active state exactly one address/credential pair is
// current. A generation counter fences every in-flight fetch: a response
// that arrives after the address changed is discarded, never applied.
type SessionService struct {
	providers *MailProviderProvider
	store     driven.SessionStore
	inbound   driven.InboundStore // may be nil when no local inbox exists
	factory   ProviderFactory
	clock     Clock

	addressTTL    time.Duration // zero means non-expiring addresses
	refreshPeriod int           // auto-refresh countdown period, seconds

	mu                 sync.Mutex
	state              model.SessionState
	cred               *model.Credential
	messages           []model.MessageSummary
	generation         uint64
	autoRefreshSeconds int
	refreshing         bool
}

// NewSessionService creates a SessionService with all required dependencies.
// inbound may be nil if the local-only variant is never used.
func NewSessionService(
	providers *MailProviderProvider,
	store driven.SessionStore,
	inbound driven.InboundStore,
	factory ProviderFactory,
	clock Clock,
	addressTTL time.Duration,
	refreshPeriod time.Duration,
) *SessionService {
	return &SessionService{
		providers:     providers,
		store:         store,
		inbound:       inbound,
		factory:       factory,
		clock:         clock,
		addressTTL:    addressTTL,
		refreshPeriod: int(refreshPeriod / time.Second),
		state:         model.SessionUninitialized,
	}
}

// Init restores the persisted session if one exists and has not expired,
// otherwise creates a fresh account. A restored session contacts the account
// provider zero times. On success the inbox is refreshed once immediately;
// a failed initial refresh is logged and left to the next countdown cycle.
func (s *SessionService) Init(ctx context.Context) error {
	s.mu.Lock()
	s.state = model.SessionRestoring

	rec, err := s.store.Load(ctx)
	if err != nil {
		slog.Warn("session restore failed, creating fresh", "error", err)
	}

	now := s.clock()
	if rec != nil && rec.Provider == s.providers.Kind() && !rec.Address.IsExpired(now) {
		cred := rec.Credential()
		s.adoptLocked(cred)
		s.mu.Unlock()
		slog.Info("session restored",
			"address", cred.Address.FullAddress,
			"provider", rec.Provider,
		)
		s.refreshInitial(ctx)
		return nil
	}

	if err := s.createFreshLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.refreshInitial(ctx)
	return nil
}

// RequestNewAddress discards the current session and creates a fresh one,
// bypassing the expiry check entirely.
func (s *SessionService) RequestNewAddress(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createFreshLocked(ctx)
}

// SwitchProvider replaces the active provider variant and regenerates the
// session against it.
func (s *SessionService) SwitchProvider(ctx context.Context, kind model.ProviderKind) error {
	provider, err := s.factory(kind)
	if err != nil {
		return fmt.Errorf("switch provider to %q: %w", kind, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers.Replace(provider, kind)
	return s.createFreshLocked(ctx)
}

// Tick advances both countdowns by one second. On the expiry countdown
// crossing zero it discards all session state and regenerates synchronously,
// exactly once per crossing. On the auto-refresh countdown reaching zero it
// triggers an inbox refresh (or retries account creation if the last one
// failed) and resets the countdown.
func (s *SessionService) Tick(ctx context.Context) {
	s.mu.Lock()

	now := s.clock()
	if s.cred != nil && s.cred.Address.IsExpired(now) {
		s.state = model.SessionExpired
		slog.Info("address expired, regenerating", "address", s.cred.Address.FullAddress)
		if err := s.store.Clear(ctx); err != nil {
			slog.Warn("clearing expired session failed", "error", err)
		}
		if err := s.createFreshLocked(ctx); err != nil {
			slog.Error("regeneration after expiry failed", "error", err)
		}
		s.mu.Unlock()
		return
	}

	s.autoRefreshSeconds--
	if s.autoRefreshSeconds > 0 {
		s.mu.Unlock()
		return
	}
	s.autoRefreshSeconds = s.refreshPeriod

	if s.cred == nil {
		// Last creation attempt failed; retry on the refresh cadence.
		if err := s.createFreshLocked(ctx); err != nil {
			slog.Error("account creation retry failed", "error", err)
		}
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	go func() {
		if err := s.RefreshInbox(ctx); err != nil {
			slog.Warn("scheduled inbox refresh failed", "error", err)
		}
	}()
}

// RefreshInbox fetches the message list for the current credential and
// replaces the local list. A refresh already in flight makes this a no-op.
// The auto-refresh countdown is reset to its full period whether the fetch
// succeeded or failed; on failure the existing message list is untouched.
func (s *SessionService) RefreshInbox(ctx context.Context) error {
	s.mu.Lock()
	if s.cred == nil {
		s.mu.Unlock()
		return driven.ErrNotAuthenticated
	}
	if s.refreshing {
		s.mu.Unlock()
		return nil
	}
	s.refreshing = true
	gen := s.generation
	cred := *s.cred
	s.mu.Unlock()

	msgs, err := s.providers.Get().ListMessages(ctx, cred)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshing = false
	s.autoRefreshSeconds = s.refreshPeriod

	if gen != s.generation {
		// Session regenerated while the fetch was in flight.
		slog.Debug("discarding stale inbox response", "generation", gen)
		return nil
	}
	if err != nil {
		return fmt.Errorf("refresh inbox: %w", err)
	}

	s.messages = msgs
	return nil
}

// MessageBody fetches the full content of one message. Bodies are not
// cached; each detail view refetches.
func (s *SessionService) MessageBody(ctx context.Context, messageID string) (model.MessageBody, error) {
	s.mu.Lock()
	if s.cred == nil {
		s.mu.Unlock()
		return model.MessageBody{}, driven.ErrNotAuthenticated
	}
	cred := *s.cred
	s.mu.Unlock()

	body, err := s.providers.Get().GetMessageBody(ctx, cred, messageID)
	if err != nil {
		return model.MessageBody{}, fmt.Errorf("message %s: %w", messageID, err)
	}
	return body, nil
}

// MarkRead flips a message's read flag. Already-read messages are a no-op
// with no provider call. For remote providers the local flag is updated only
// after the provider confirms; for local-only providers local state is
// authoritative and a provider persistence failure is logged and swallowed.
func (s *SessionService) MarkRead(ctx context.Context, messageID string) error {
	s.mu.Lock()
	if s.cred == nil {
		s.mu.Unlock()
		return driven.ErrNotAuthenticated
	}
	idx := -1
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx >= 0 && s.messages[idx].IsRead {
		s.mu.Unlock()
		return nil
	}
	gen := s.generation
	cred := *s.cred
	provider := s.providers.Get()

	if provider.Local() {
		if idx >= 0 {
			s.messages[idx].IsRead = true
		}
		s.mu.Unlock()
		if err := provider.MarkRead(ctx, cred, messageID); err != nil {
			slog.Warn("persisting local read flag failed", "message", messageID, "error", err)
		}
		return nil
	}
	s.mu.Unlock()

	if err := provider.MarkRead(ctx, cred, messageID); err != nil {
		return fmt.Errorf("mark read %s: %w", messageID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil
	}
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages[i].IsRead = true
			break
		}
	}
	return nil
}

// Snapshot is the read-only view of the session rendered by the UI.
type Snapshot struct {
	State              model.SessionState
	Provider           model.ProviderKind
	Address            string
	CreatedAt          time.Time
	ExpiresAt          *time.Time
	AutoRefreshSeconds int
	ExpirySeconds      int
	Messages           []model.MessageSummary
	InboxURL           string
}

// Snapshot returns the current session view.
func (s *SessionService) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:              s.state,
		Provider:           s.providers.Kind(),
		AutoRefreshSeconds: s.autoRefreshSeconds,
		Messages:           append([]model.MessageSummary(nil), s.messages...),
	}
	if s.cred != nil {
		snap.Address = s.cred.Address.FullAddress
		snap.CreatedAt = s.cred.Address.CreatedAt
		snap.ExpiresAt = s.cred.Address.ExpiresAt
		snap.ExpirySeconds = s.cred.Address.SecondsUntilExpiry(s.clock())
		snap.InboxURL = inboxURL(s.providers.Kind(), s.cred.Address)
	}
	return snap
}

// adoptLocked installs a credential as current and resets per-address state.
// Callers hold s.mu.
func (s *SessionService) adoptLocked(cred model.Credential) {
	s.cred = &cred
	s.messages = nil
	s.generation++
	s.autoRefreshSeconds = s.refreshPeriod
	s.state = model.SessionActive
}

// createFreshLocked provisions a new account, persists it, and makes it
// current. Message state for the previous address is discarded wholesale.
// Callers hold s.mu.
func (s *SessionService) createFreshLocked(ctx context.Context) error {
	var previous string
	if s.cred != nil {
		previous = s.cred.Address.FullAddress
	}
	// Invalidate the old credential before the (slow) provider call so no
	// in-flight response for it can land mid-creation.
	s.cred = nil
	s.generation++
	s.state = model.SessionRestoring

	cred, err := s.providers.Get().CreateAccount(ctx)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	// The lifecycle owns the expiry clock.
	if s.addressTTL > 0 {
		expires := cred.Address.CreatedAt.Add(s.addressTTL)
		cred.Address.ExpiresAt = &expires
	} else {
		cred.Address.ExpiresAt = nil
	}

	rec := model.SessionRecord{
		AccountID: cred.AccountID,
		Address:   cred.Address,
		AuthToken: cred.AuthToken,
		Provider:  s.providers.Kind(),
		CreatedAt: cred.CreatedAt,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		slog.Warn("persisting session failed", "error", err)
	}

	if s.inbound != nil && previous != "" {
		if err := s.inbound.DeleteByAddress(ctx, previous); err != nil {
			slog.Warn("purging previous inbox failed", "address", previous, "error", err)
		}
	}

	s.adoptLocked(cred)
	slog.Info("session created",
		"address", cred.Address.FullAddress,
		"provider", s.providers.Kind(),
	)
	return nil
}

// refreshInitial performs the first inbox fetch for a new or restored
// session. Failures are advisory; the countdown retries.
func (s *SessionService) refreshInitial(ctx context.Context) {
	if err := s.RefreshInbox(ctx); err != nil {
		slog.Warn("initial inbox refresh failed", "error", err)
	}
}

// inboxURL returns the external webmail inbox URL for variants whose inbox
// is also browsable on the provider's site.
func inboxURL(kind model.ProviderKind, addr model.Address) string {
	if kind != model.ProviderLocal {
		return ""
	}
	return "https://yopmail.com/en/?login=" + url.QueryEscape(addr.LocalPart)
}
