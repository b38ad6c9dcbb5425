// Package insight wires the detection pipeline together behind the inbound
// InsightService port: fetch the visit snapshot, compute lifecycle and
// domain context, score, rank, and return externally-consumable results.
package insight

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"tabsense_server/core/domain"
	"tabsense_server/core/port/in"
	"tabsense_server/core/port/out"
	"tabsense_server/core/service/analytics"
	"tabsense_server/core/service/detection"
	"tabsense_server/core/service/routine"
	"tabsense_server/core/service/session"
	"tabsense_server/pkg/apperr"
	"tabsense_server/pkg/logger"
)

// Config carries the tunables a detection run depends on.
type Config struct {
	HoarderThreshold    float64
	RoutineThreshold    float64
	DefaultLookbackDays int
	RoutineLookbackDays int

	SessionMinTabs     int
	SessionTimeWindow  time.Duration
	SessionMinDuration time.Duration

	// Now is the clock for the whole run. Nil means wall clock. Every
	// age and window computation flows from one call per operation, so a
	// fixed clock makes the pipeline fully deterministic.
	Now func() time.Time
}

// Service implements in.InsightService.
type Service struct {
	visits   out.VisitRepository
	closures out.TabClosureRepository

	whitelist *routine.WhitelistService
	contexts  *routine.ContextBuilder
	detector  *routine.Detector
	scorer    *detection.Scorer
	ranker    *detection.ValueRanker
	analyzer  *analytics.SerialOpenerAnalyzer

	cfg Config
	log *logger.Logger
}

var _ in.InsightService = (*Service)(nil)

func NewService(
	visits out.VisitRepository,
	closures out.TabClosureRepository,
	whitelist *routine.WhitelistService,
	cfg Config,
) *Service {
	if cfg.DefaultLookbackDays <= 0 {
		cfg.DefaultLookbackDays = 7
	}
	if cfg.RoutineLookbackDays <= 0 {
		cfg.RoutineLookbackDays = 30
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		visits:    visits,
		closures:  closures,
		whitelist: whitelist,
		contexts:  routine.NewContextBuilder(whitelist),
		detector:  routine.NewDetector(cfg.RoutineThreshold),
		scorer:    detection.NewScorer(cfg.HoarderThreshold),
		ranker:    detection.NewValueRanker(),
		analyzer:  analytics.NewSerialOpenerAnalyzer(),
		cfg:       cfg,
		log:       logger.WithField("component", "insight"),
	}
}

// DetectHoarderTabs runs the full pipeline over the user's recent visit
// history: group by URL, compute tab lifecycle, resolve domain context,
// score, filter, sort, truncate.
func (s *Service) DetectHoarderTabs(ctx context.Context, userID uuid.UUID, opts *in.HoarderTabOptions) ([]*domain.HoarderTabResult, error) {
	if opts == nil {
		opts = &in.HoarderTabOptions{}
	}
	now := s.cfg.Now()
	lookback := opts.LookbackDays
	if lookback <= 0 {
		lookback = float64(s.cfg.DefaultLookbackDays)
	}
	since := now.Add(-time.Duration(lookback * 24 * float64(time.Hour)))

	groups, orderedURLs, err := s.visits.GroupVisitsByURL(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("group visits: %w", err)
	}
	if len(orderedURLs) == 0 {
		return []*domain.HoarderTabResult{}, nil
	}

	closures, err := s.fetchClosures(ctx, groups)
	if err != nil {
		return nil, err
	}

	contexts, err := s.buildDomainContexts(ctx, userID, groups, now)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	results := make([]*domain.HoarderTabResult, 0, len(orderedURLs))
	for _, url := range orderedURLs {
		meta := detection.ComputeTabMetadata(groups[url], closures, now)
		if meta == nil {
			continue
		}
		res := s.scorer.Score(meta, contexts[meta.Domain])
		if !res.IsHoarder {
			continue
		}
		results = append(results, res)
	}

	results = applyFilters(results, opts)
	sortResults(results, opts.SortBy, s.ranker)

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	s.log.WithDuration(time.Since(started)).
		Debug("hoarder detection user=%s urls=%d flagged=%d", userID, len(orderedURLs), len(results))
	return results, nil
}

// DetectResearchSessions segments the lookback window's visit stream into
// qualifying research sessions.
func (s *Service) DetectResearchSessions(ctx context.Context, userID uuid.UUID, params *in.SessionParams) ([]*domain.ResearchSessionCandidate, error) {
	if params == nil {
		params = &in.SessionParams{}
	}
	minTabs := params.MinTabs
	if minTabs <= 0 {
		minTabs = s.cfg.SessionMinTabs
	}
	window := params.TimeWindow
	if window <= 0 {
		window = s.cfg.SessionTimeWindow
	}
	minDuration := params.MinDuration
	if minDuration <= 0 {
		minDuration = s.cfg.SessionMinDuration
	}

	now := s.cfg.Now()
	since := now.AddDate(0, 0, -s.cfg.DefaultLookbackDays)
	visits, _, err := s.visits.ListVisits(ctx, userID, &domain.VisitFilter{From: &since})
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}

	segmenter := session.NewSegmenter(minTabs, window, minDuration)
	sessions := segmenter.Segment(visits)
	if sessions == nil {
		sessions = []*domain.ResearchSessionCandidate{}
	}
	return sessions, nil
}

// DetectRoutine scores a single domain's history.
func (s *Service) DetectRoutine(ctx context.Context, userID uuid.UUID, domainName string, lookbackDays int) (*domain.RoutineResult, error) {
	if domainName == "" {
		return nil, apperr.MissingField("domain")
	}
	if lookbackDays <= 0 {
		lookbackDays = s.cfg.RoutineLookbackDays
	}

	now := s.cfg.Now()
	since := now.AddDate(0, 0, -lookbackDays)
	visits, err := s.visits.ListVisitsByDomain(ctx, userID, domainName, since)
	if err != nil {
		return nil, fmt.Errorf("list domain visits: %w", err)
	}
	return s.detector.Detect(domainName, visits), nil
}

// RankByValue annotates and reorders already-scored results. Pure; no
// repository access.
func (s *Service) RankByValue(results []*domain.HoarderTabResult) []*domain.HoarderTabResult {
	return s.ranker.Rank(results)
}

// DetectSerialOpeners classifies repeatedly-reopened resources in the
// lookback window.
func (s *Service) DetectSerialOpeners(ctx context.Context, userID uuid.UUID, lookbackDays float64) ([]*domain.SerialOpenerResult, error) {
	if lookbackDays <= 0 {
		lookbackDays = float64(s.cfg.DefaultLookbackDays)
	}
	thresholds, err := detection.NewThresholds(lookbackDays)
	if err != nil {
		return nil, err
	}

	now := s.cfg.Now()
	since := now.Add(-time.Duration(lookbackDays * 24 * float64(time.Hour)))
	groups, orderedURLs, err := s.visits.GroupVisitsByURL(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("group visits: %w", err)
	}
	return s.analyzer.Analyze(groups, orderedURLs, thresholds, lookbackDays)
}

// CompareSerialOpeners diffs the current period's serial openers against
// the immediately preceding period of equal length.
func (s *Service) CompareSerialOpeners(ctx context.Context, userID uuid.UUID, periodDays float64) (*domain.ComparisonReport, error) {
	if periodDays <= 0 {
		periodDays = float64(s.cfg.DefaultLookbackDays)
	}
	thresholds, err := detection.NewThresholds(periodDays)
	if err != nil {
		return nil, err
	}

	now := s.cfg.Now()
	period := time.Duration(periodDays * 24 * float64(time.Hour))
	boundary := now.Add(-period)
	since := now.Add(-2 * period)

	groups, orderedURLs, err := s.visits.GroupVisitsByURL(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("group visits: %w", err)
	}

	currentGroups := make(map[string][]*domain.Visit, len(groups))
	previousGroups := make(map[string][]*domain.Visit, len(groups))
	for url, visits := range groups {
		for _, v := range visits {
			if v.VisitedAt.Before(boundary) {
				previousGroups[url] = append(previousGroups[url], v)
			} else {
				currentGroups[url] = append(currentGroups[url], v)
			}
		}
	}

	current, err := s.analyzer.Analyze(currentGroups, orderedURLs, thresholds, periodDays)
	if err != nil {
		return nil, err
	}
	previous, err := s.analyzer.Analyze(previousGroups, orderedURLs, thresholds, periodDays)
	if err != nil {
		return nil, err
	}

	return analytics.Compare(current, previous), nil
}

// fetchClosures gathers every visit ID across the groups and resolves
// their closure records in one query.
func (s *Service) fetchClosures(ctx context.Context, groups map[string][]*domain.Visit) (map[int64]*domain.TabClosure, error) {
	ids := make([]int64, 0, len(groups)*2)
	for _, visits := range groups {
		for _, v := range visits {
			ids = append(ids, v.ID)
		}
	}
	if len(ids) == 0 {
		return map[int64]*domain.TabClosure{}, nil
	}
	closures, err := s.closures.GetClosures(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch closures: %w", err)
	}
	return closures, nil
}

// buildDomainContexts resolves one DomainContext per distinct domain,
// using each domain's most recent visit as its activity marker.
func (s *Service) buildDomainContexts(ctx context.Context, userID uuid.UUID, groups map[string][]*domain.Visit, now time.Time) (map[string]*domain.DomainContext, error) {
	lastActivity := make(map[string]time.Time)
	for _, visits := range groups {
		for _, v := range visits {
			if v.VisitedAt.After(lastActivity[v.Domain]) {
				lastActivity[v.Domain] = v.VisitedAt
			}
		}
	}

	contexts := make(map[string]*domain.DomainContext, len(lastActivity))
	for d, last := range lastActivity {
		dctx, err := s.contexts.Build(ctx, userID, d, last, now)
		if err != nil {
			return nil, fmt.Errorf("domain context for %s: %w", d, err)
		}
		contexts[d] = dctx
	}
	return contexts, nil
}

func applyFilters(results []*domain.HoarderTabResult, opts *in.HoarderTabOptions) []*domain.HoarderTabResult {
	excluded := make(map[string]struct{}, len(opts.ExcludeDomains))
	for _, d := range opts.ExcludeDomains {
		excluded[d] = struct{}{}
	}

	filtered := results[:0]
	for _, r := range results {
		if opts.MinScore > 0 && r.Score < opts.MinScore {
			continue
		}
		if opts.AgeMinDays > 0 && r.AgeDays < opts.AgeMinDays {
			continue
		}
		if opts.Domain != "" && r.Domain != opts.Domain {
			continue
		}
		if _, skip := excluded[r.Domain]; skip {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// sortResults orders results per the requested sort. Ties always break
// score descending, then age descending, then URL ascending, so repeated
// runs over identical inputs produce identical output.
func sortResults(results []*domain.HoarderTabResult, by in.HoarderSort, ranker *detection.ValueRanker) {
	switch by {
	case in.SortByValueRank:
		ranked := ranker.Rank(results)
		copy(results, ranked)
	case in.SortByAge:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].AgeDays != results[j].AgeDays {
				return results[i].AgeDays > results[j].AgeDays
			}
			if results[i].Score != results[j].Score {
				return results[i].Score > results[j].Score
			}
			return results[i].URL < results[j].URL
		})
	default:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Score != results[j].Score {
				return results[i].Score > results[j].Score
			}
			if results[i].AgeDays != results[j].AgeDays {
				return results[i].AgeDays > results[j].AgeDays
			}
			return results[i].URL < results[j].URL
		})
	}
}
