package model

import "time"

// SessionRecord is the single persisted session: the current address and
// credential, stored under a fixed key and restored on startup.
type SessionRecord struct {
	AccountID string
	Address   Address
	AuthToken string
	Provider  ProviderKind
	CreatedAt time.Time
}

// Credential reconstructs the session credential from the persisted record.
func (r SessionRecord) Credential() Credential {
	return Credential{
		AccountID: r.AccountID,
		Address:   r.Address,
		AuthToken: r.AuthToken,
		CreatedAt: r.CreatedAt,
	}
}

// DomainCacheEntry is the resolved domain list for one calendar day.
// At most one entry per date; entries from a prior day are stale.
type DomainCacheEntry struct {
	Domains        []string
	FeaturedDomain string
	FetchedOnDate  string // YYYY-MM-DD
}

// IsFreshOn reports whether the entry was fetched on the given date and
// actually holds domains.
func (e DomainCacheEntry) IsFreshOn(date string) bool {
	return e.FetchedOnDate == date && len(e.Domains) > 0
}

// DomainList is a provider's live domain listing: the promoted "new" domain
// plus the remaining ones.
type DomainList struct {
	Featured string
	Others   []string
}

// All returns the full ordered list with the featured domain first.
func (l DomainList) All() []string {
	if l.Featured == "" {
		return l.Others
	}
	all := make([]string, 0, 1+len(l.Others))
	all = append(all, l.Featured)
	all = append(all, l.Others...)
	return all
}
