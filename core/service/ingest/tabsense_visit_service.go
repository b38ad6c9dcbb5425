// Package ingest validates and stores client-reported visits and closures.
package ingest

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"tabsense_server/core/domain"
	"tabsense_server/core/port/in"
	"tabsense_server/core/port/out"
	"tabsense_server/pkg/apperr"
	"tabsense_server/pkg/logger"
)

const maxBatchSize = 500

// VisitService implements in.VisitService.
type VisitService struct {
	visits   out.VisitRepository
	closures out.TabClosureRepository
	log      *logger.Logger
}

func NewVisitService(visits out.VisitRepository, closures out.TabClosureRepository) *VisitService {
	return &VisitService{
		visits:   visits,
		closures: closures,
		log:      logger.WithField("component", "ingest"),
	}
}

var _ in.VisitService = (*VisitService)(nil)

func (s *VisitService) CreateVisit(ctx context.Context, userID uuid.UUID, req *in.CreateVisitRequest) (*domain.Visit, error) {
	visit, err := s.toVisit(userID, req)
	if err != nil {
		return nil, err
	}
	if err := s.visits.CreateVisit(ctx, visit); err != nil {
		return nil, apperr.DatabaseError("create visit", err)
	}
	return visit, nil
}

func (s *VisitService) CreateVisits(ctx context.Context, userID uuid.UUID, reqs []*in.CreateVisitRequest) ([]*domain.Visit, error) {
	if len(reqs) == 0 {
		return []*domain.Visit{}, nil
	}
	if len(reqs) > maxBatchSize {
		return nil, apperr.InvalidInput("visits", "batch exceeds 500 entries")
	}

	visits := make([]*domain.Visit, 0, len(reqs))
	for i, req := range reqs {
		visit, err := s.toVisit(userID, req)
		if err != nil {
			return nil, apperr.AsAppError(err).WithDetail("index", i)
		}
		visits = append(visits, visit)
	}

	if err := s.visits.CreateVisits(ctx, visits); err != nil {
		return nil, apperr.DatabaseError("create visits", err)
	}
	s.log.Debug("ingested batch user=%s visits=%d", userID, len(visits))
	return visits, nil
}

func (s *VisitService) GetVisit(ctx context.Context, userID uuid.UUID, id int64) (*domain.Visit, error) {
	visit, err := s.visits.GetVisit(ctx, id)
	if err != nil {
		return nil, apperr.DatabaseError("get visit", err)
	}
	if visit == nil || visit.UserID != userID {
		return nil, apperr.NotFound("visit")
	}
	return visit, nil
}

func (s *VisitService) ListVisits(ctx context.Context, userID uuid.UUID, filter *domain.VisitFilter) ([]*domain.Visit, int, error) {
	visits, total, err := s.visits.ListVisits(ctx, userID, filter)
	if err != nil {
		return nil, 0, apperr.DatabaseError("list visits", err)
	}
	return visits, total, nil
}

// ReportClosure stores the closure record for a visit the user owns.
func (s *VisitService) ReportClosure(ctx context.Context, userID uuid.UUID, visitID int64, req *in.ReportClosureRequest) error {
	visit, err := s.visits.GetVisit(ctx, visitID)
	if err != nil {
		return apperr.DatabaseError("get visit", err)
	}
	if visit == nil || visit.UserID != userID {
		return apperr.NotFound("visit")
	}
	if req.TotalOpenSec < 0 || req.ActiveSec < 0 {
		return apperr.InvalidInput("closure", "durations must not be negative")
	}

	closure := &domain.TabClosure{
		VisitID:      visitID,
		TotalOpenSec: req.TotalOpenSec,
		ActiveSec:    req.ActiveSec,
		ScrollDepth:  req.ScrollDepth,
		ClosedAt:     req.ClosedAt,
	}
	if err := s.closures.UpsertClosure(ctx, closure); err != nil {
		return apperr.DatabaseError("upsert closure", err)
	}
	return nil
}

// toVisit validates a request and fills derived fields: the domain falls
// back to the URL host, the engagement rate to active/total time.
func (s *VisitService) toVisit(userID uuid.UUID, req *in.CreateVisitRequest) (*domain.Visit, error) {
	if req.URL == "" {
		return nil, apperr.MissingField("url")
	}
	if req.VisitedAt.IsZero() {
		return nil, apperr.MissingField("visited_at")
	}
	if req.DurationSec != nil && *req.DurationSec < 0 {
		return nil, apperr.InvalidInput("duration_sec", "must not be negative")
	}
	if req.ActiveSec != nil && *req.ActiveSec < 0 {
		return nil, apperr.InvalidInput("active_sec", "must not be negative")
	}

	domainName := req.Domain
	if domainName == "" {
		parsed, err := url.Parse(req.URL)
		if err != nil || parsed.Hostname() == "" {
			return nil, apperr.InvalidInput("url", "not parseable and no domain given")
		}
		domainName = strings.ToLower(parsed.Hostname())
	}

	visit := &domain.Visit{
		UserID:         userID,
		URL:            req.URL,
		Title:          req.Title,
		Domain:         domainName,
		VisitedAt:      req.VisitedAt,
		DurationSec:    req.DurationSec,
		ActiveSec:      req.ActiveSec,
		EngagementRate: req.EngagementRate,
		TabOpenedAt:    req.TabOpenedAt,
		Metadata:       req.Metadata,
		Category:       req.Category,
		CreatedAt:      time.Now(),
	}

	if visit.EngagementRate == nil && visit.DurationSec != nil && visit.ActiveSec != nil && *visit.DurationSec > 0 {
		rate := *visit.ActiveSec / *visit.DurationSec
		if rate > 1 {
			rate = 1
		}
		visit.EngagementRate = &rate
	}

	return visit, nil
}
