package routine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tabsense_server/core/domain"
	"tabsense_server/core/port/out"
	"tabsense_server/pkg/cache"
	"tabsense_server/pkg/logger"
	"tabsense_server/pkg/snowflake"
)

// WhitelistService fronts the whitelist repository with a per-user Redis
// cache and implements the lookup, mutation, and refresh contracts.
type WhitelistService struct {
	repo     out.WhitelistRepository
	cache    *cache.RedisCache
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewWhitelistService builds the service. Cache may be nil, in which case
// every lookup hits the repository.
func NewWhitelistService(repo out.WhitelistRepository, c *cache.RedisCache, cacheTTL time.Duration) *WhitelistService {
	return &WhitelistService{
		repo:     repo,
		cache:    c,
		cacheTTL: cacheTTL,
		log:      logger.WithField("component", "whitelist"),
	}
}

func whitelistCacheKey(userID uuid.UUID) string {
	return "whitelist:" + userID.String()
}

// Find returns the active entry covering the domain, or nil. An exact
// match wins; otherwise an entry on a parent domain covers its subdomains,
// so whitelisting youtube.com silently covers music.youtube.com.
func (s *WhitelistService) Find(ctx context.Context, userID uuid.UUID, domainName string) (*domain.WhitelistEntry, error) {
	entries, err := s.listActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.Domain == domainName {
			return e, nil
		}
	}
	for _, e := range entries {
		if strings.HasSuffix(domainName, "."+e.Domain) {
			return e, nil
		}
	}
	return nil, nil
}

// ListActive returns all active entries for the user, cache-first.
func (s *WhitelistService) ListActive(ctx context.Context, userID uuid.UUID) ([]*domain.WhitelistEntry, error) {
	return s.listActive(ctx, userID)
}

func (s *WhitelistService) listActive(ctx context.Context, userID uuid.UUID) ([]*domain.WhitelistEntry, error) {
	key := whitelistCacheKey(userID)

	if s.cache != nil {
		var cached []*domain.WhitelistEntry
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			// A broken cache read must not fail the lookup.
			s.log.WithError(err).Warn("whitelist cache read failed user=%s", userID)
		} else if hit {
			return cached, nil
		}
	}

	entries, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, entries, s.cacheTTL); err != nil {
			s.log.WithError(err).Warn("whitelist cache write failed user=%s", userID)
		}
	}
	return entries, nil
}

// AddOrUpdate upserts an entry and invalidates the user's cache. A zero ID
// gets a generated one.
func (s *WhitelistService) AddOrUpdate(ctx context.Context, entry *domain.WhitelistEntry) error {
	if entry.ID == 0 {
		entry.ID = snowflake.ID()
	}
	entry.IsActive = true
	if err := s.repo.AddOrUpdate(ctx, entry); err != nil {
		return err
	}
	s.invalidate(ctx, entry.UserID)
	return nil
}

// Deactivate soft-deletes the entry and invalidates the user's cache.
func (s *WhitelistService) Deactivate(ctx context.Context, userID uuid.UUID, domainName string) error {
	if err := s.repo.Deactivate(ctx, userID, domainName); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *WhitelistService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, whitelistCacheKey(userID)); err != nil {
		s.log.WithError(err).Warn("whitelist cache invalidation failed user=%s", userID)
	}
}

// RefreshDomains re-runs routine detection over the user's recently active
// domains and reconciles the whitelist: domains at or above threshold get
// upserted with the detected routine type, previously detected domains
// that fell below threshold are deactivated. Manual entries are never
// touched. Returns counts of upserts and deactivations.
func (s *WhitelistService) RefreshDomains(
	ctx context.Context,
	userID uuid.UUID,
	detector *Detector,
	visits out.VisitRepository,
	lookbackDays int,
	now time.Time,
) (int, int, error) {
	since := now.AddDate(0, 0, -lookbackDays)

	domains, err := visits.ListActiveDomains(ctx, userID, since)
	if err != nil {
		return 0, 0, fmt.Errorf("list active domains: %w", err)
	}

	existing, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("list whitelist: %w", err)
	}
	existingByDomain := make(map[string]*domain.WhitelistEntry, len(existing))
	for _, e := range existing {
		existingByDomain[e.Domain] = e
	}

	var upserts, deactivations int

	for _, d := range domains {
		history, err := visits.ListVisitsByDomain(ctx, userID, d, since)
		if err != nil {
			return upserts, deactivations, fmt.Errorf("list visits for %s: %w", d, err)
		}

		result := detector.Detect(d, history)
		prior := existingByDomain[d]

		switch {
		case result.IsRoutine:
			entry := &domain.WhitelistEntry{
				UserID:         userID,
				Domain:         d,
				Reason:         result.Type,
				RoutineScore:   result.Score,
				DetectedAt:     now,
				LastVerifiedAt: now,
			}
			if prior != nil {
				entry.ID = prior.ID
				entry.DetectedAt = prior.DetectedAt
				if prior.Reason == domain.ReasonManual {
					// Manual entries keep their reason; only bump the
					// verification timestamp and score.
					entry.Reason = domain.ReasonManual
				}
			}
			if err := s.AddOrUpdate(ctx, entry); err != nil {
				return upserts, deactivations, fmt.Errorf("upsert %s: %w", d, err)
			}
			upserts++

		case prior != nil && prior.Reason != domain.ReasonManual:
			if err := s.Deactivate(ctx, userID, d); err != nil {
				return upserts, deactivations, fmt.Errorf("deactivate %s: %w", d, err)
			}
			deactivations++
		}
	}

	return upserts, deactivations, nil
}
