package application

import (
	"context"
	"log/slog"
	"time"

	"tempbox/internal/domain/model"
	"tempbox/internal/domain/port/driven"
)

// Clock returns the current time. Injected so tests can drive countdowns and
// calendar-date logic deterministically.
type Clock func() time.Time

// SystemClock is the production Clock.
func SystemClock() time.Time { return time.Now() }

// fallbackDomains is the static rotation table used when no live domain
// listing can be fetched. The featured entry rotates daily by day-of-year.
var fallbackDomains = []string{
	"binich.com",
	"yopmail.com", "yopmail.net", "yopmail.fr",
	"cool.fr.nf", "jetable.fr.nf", "courriel.fr.nf", "moncourrier.fr.nf",
	"monemail.fr.nf", "monmail.fr.nf", "nospam.ze.tc", "nomail.xl.cx",
	"mega.zik.dj", "speed.1s.fr", "hide.biz.st", "mymail.infos.st",
	"mynes.com", "lerch.ovh", "six25.biz", "ywzmb.top",
	"hunnur.com", "jetable.org", "nospam.fr.nf", "poubelle.fr.nf",
	"antispam.fr.nf", "adresse.biz.st", "freemail.biz.st", "readmail.biz.st",
	"mailbox.biz.st", "webstore.fr.nf", "mr-email.fr.nf", "mailsafe.fr.nf",
	"super.lgbt", "pochtac.ru", "sindwir.com", "wir-sind.com",
	"assurmail.net", "poubelle-du.net", "vigilantkeep.net", "pixelgagnant.net",
}

// DomainDirectory resolves the set of usable sending domains with a
// daily-rotating featured domain. Live listings come from a DomainSource;
// every failure path lands on the static rotation table, so resolution
// itself cannot fail.
type DomainDirectory struct {
	source driven.DomainSource // nil means fallback-only operation
	cache  driven.DomainCacheStore
	clock  Clock
}

// NewDomainDirectory creates a DomainDirectory. source may be nil to skip
// live fetches entirely.
func NewDomainDirectory(source driven.DomainSource, cache driven.DomainCacheStore, clock Clock) *DomainDirectory {
	return &DomainDirectory{
		source: source,
		cache:  cache,
		clock:  clock,
	}
}

// FetchDomains returns the ordered domain list, featured entry first.
// A cache hit for today's date short-circuits the network attempt unless
// forceRefresh is set.
func (d *DomainDirectory) FetchDomains(ctx context.Context, forceRefresh bool) []string {
	return d.resolve(ctx, forceRefresh).Domains
}

// FeaturedDomain returns today's featured domain.
func (d *DomainDirectory) FeaturedDomain(ctx context.Context) string {
	return d.resolve(ctx, false).FeaturedDomain
}

// resolve produces today's cache entry: cached if fresh, else live-fetched,
// else the day-of-year rotation of the static table. The resolved entry is
// written back to the cache best-effort; persistence failures never abort
// the calling operation.
func (d *DomainDirectory) resolve(ctx context.Context, forceRefresh bool) model.DomainCacheEntry {
	now := d.clock()
	today := now.UTC().Format(time.DateOnly)

	if !forceRefresh && d.cache != nil {
		cached, err := d.cache.Get(ctx, today)
		if err != nil {
			slog.Debug("domain cache read failed", "error", err)
		} else if cached != nil && cached.IsFreshOn(today) {
			return *cached
		}
	}

	entry := d.fetchLive(ctx, today)
	if entry == nil {
		entry = fallbackEntry(now, today)
	}

	if d.cache != nil {
		if err := d.cache.Put(ctx, *entry); err != nil {
			slog.Debug("domain cache write failed", "error", err)
		}
	}

	return *entry
}

// fetchLive attempts a live domain listing. Returns nil on any failure:
// network error, empty result, or a listing without a featured entry.
func (d *DomainDirectory) fetchLive(ctx context.Context, today string) *model.DomainCacheEntry {
	if d.source == nil {
		return nil
	}

	list, err := d.source.FetchDomains(ctx)
	if err != nil {
		slog.Warn("live domain fetch failed, using fallback rotation", "error", err)
		return nil
	}

	all := list.All()
	if len(all) == 0 || list.Featured == "" {
		slog.Warn("live domain fetch returned no usable listing")
		return nil
	}

	return &model.DomainCacheEntry{
		Domains:        all,
		FeaturedDomain: list.Featured,
		FetchedOnDate:  today,
	}
}

// fallbackEntry rotates the static table deterministically by day-of-year:
// table[dayOfYear % len(table)] is featured and moves to the front.
func fallbackEntry(now time.Time, today string) *model.DomainCacheEntry {
	featured := fallbackDomains[now.UTC().YearDay()%len(fallbackDomains)]

	domains := make([]string, 0, len(fallbackDomains))
	domains = append(domains, featured)
	for _, domain := range fallbackDomains {
		if domain != featured {
			domains = append(domains, domain)
		}
	}

	return &model.DomainCacheEntry{
		Domains:        domains,
		FeaturedDomain: featured,
		FetchedOnDate:  today,
	}
}
