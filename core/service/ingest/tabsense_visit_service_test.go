package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"tabsense_server/core/domain"
	"tabsense_server/core/port/in"
)

var (
	ingestUser  = uuid.MustParse("6f1bb0a2-1111-4a58-9a07-000000000001")
	otherUser   = uuid.MustParse("6f1bb0a2-2222-4a58-9a07-000000000002")
	ingestedAt  = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

type memVisitRepo struct {
	visits map[int64]*domain.Visit
	nextID int64
}

func newMemVisitRepo() *memVisitRepo {
	return &memVisitRepo{visits: make(map[int64]*domain.Visit), nextID: 1}
}

func (m *memVisitRepo) CreateVisit(_ context.Context, v *domain.Visit) error {
	if v.ID == 0 {
		v.ID = m.nextID
		m.nextID++
	}
	m.visits[v.ID] = v
	return nil
}

func (m *memVisitRepo) CreateVisits(ctx context.Context, vs []*domain.Visit) error {
	for _, v := range vs {
		if err := m.CreateVisit(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *memVisitRepo) GetVisit(_ context.Context, id int64) (*domain.Visit, error) {
	return m.visits[id], nil
}

func (m *memVisitRepo) ListVisits(context.Context, uuid.UUID, *domain.VisitFilter) ([]*domain.Visit, int, error) {
	return nil, 0, nil
}
func (m *memVisitRepo) ListVisitsByURL(context.Context, uuid.UUID, string) ([]*domain.Visit, error) {
	return nil, nil
}
func (m *memVisitRepo) ListVisitsByDomain(context.Context, uuid.UUID, string, time.Time) ([]*domain.Visit, error) {
	return nil, nil
}
func (m *memVisitRepo) GroupVisitsByURL(context.Context, uuid.UUID, time.Time) (map[string][]*domain.Visit, []string, error) {
	return nil, nil, nil
}
func (m *memVisitRepo) ListActiveDomains(context.Context, uuid.UUID, time.Time) ([]string, error) {
	return nil, nil
}
func (m *memVisitRepo) ListActiveUsers(context.Context, time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

type memClosureRepo struct {
	closures map[int64]*domain.TabClosure
}

func (m *memClosureRepo) UpsertClosure(_ context.Context, c *domain.TabClosure) error {
	if m.closures == nil {
		m.closures = make(map[int64]*domain.TabClosure)
	}
	m.closures[c.VisitID] = c
	return nil
}
func (m *memClosureRepo) GetClosures(context.Context, []int64) (map[int64]*domain.TabClosure, error) {
	return m.closures, nil
}

func TestCreateVisit_DerivesFields(t *testing.T) {
	svc := NewVisitService(newMemVisitRepo(), &memClosureRepo{})

	dur, active := 200.0, 50.0
	visit, err := svc.CreateVisit(context.Background(), ingestUser, &in.CreateVisitRequest{
		URL:         "https://Blog.Example.com/post",
		VisitedAt:   ingestedAt,
		DurationSec: &dur,
		ActiveSec:   &active,
	})
	if err != nil {
		t.Fatal(err)
	}
	if visit.Domain != "blog.example.com" {
		t.Errorf("domain = %q, want host-derived blog.example.com", visit.Domain)
	}
	if visit.EngagementRate == nil || *visit.EngagementRate != 0.25 {
		t.Errorf("engagement_rate = %v, want derived 0.25", visit.EngagementRate)
	}
	if visit.ID == 0 {
		t.Error("expected assigned ID")
	}
}

func TestCreateVisit_Validation(t *testing.T) {
	svc := NewVisitService(newMemVisitRepo(), &memClosureRepo{})
	neg := -1.0

	tests := []struct {
		name string
		req  *in.CreateVisitRequest
	}{
		{"missing url", &in.CreateVisitRequest{VisitedAt: ingestedAt}},
		{"missing visited_at", &in.CreateVisitRequest{URL: "https://a.com/x"}},
		{"negative duration", &in.CreateVisitRequest{URL: "https://a.com/x", VisitedAt: ingestedAt, DurationSec: &neg}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateVisit(context.Background(), ingestUser, tt.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreateVisits_BatchLimit(t *testing.T) {
	svc := NewVisitService(newMemVisitRepo(), &memClosureRepo{})

	reqs := make([]*in.CreateVisitRequest, 501)
	for i := range reqs {
		reqs[i] = &in.CreateVisitRequest{URL: "https://a.com/x", VisitedAt: ingestedAt}
	}
	if _, err := svc.CreateVisits(context.Background(), ingestUser, reqs); err == nil {
		t.Error("expected batch size error")
	}
}

func TestGetVisit_OwnershipEnforced(t *testing.T) {
	repo := newMemVisitRepo()
	svc := NewVisitService(repo, &memClosureRepo{})

	visit, err := svc.CreateVisit(context.Background(), ingestUser, &in.CreateVisitRequest{
		URL: "https://a.com/x", VisitedAt: ingestedAt,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.GetVisit(context.Background(), otherUser, visit.ID); err == nil {
		t.Error("expected not found for foreign visit")
	}
	got, err := svc.GetVisit(context.Background(), ingestUser, visit.ID)
	if err != nil || got.ID != visit.ID {
		t.Errorf("owner lookup failed: %v %v", got, err)
	}
}

func TestReportClosure(t *testing.T) {
	repo := newMemVisitRepo()
	closures := &memClosureRepo{}
	svc := NewVisitService(repo, closures)

	visit, err := svc.CreateVisit(context.Background(), ingestUser, &in.CreateVisitRequest{
		URL: "https://a.com/x", VisitedAt: ingestedAt,
	})
	if err != nil {
		t.Fatal(err)
	}

	closedAt := ingestedAt.Add(time.Hour)
	err = svc.ReportClosure(context.Background(), ingestUser, visit.ID, &in.ReportClosureRequest{
		TotalOpenSec: 3600,
		ActiveSec:    120,
		ClosedAt:     &closedAt,
	})
	if err != nil {
		t.Fatal(err)
	}
	if closures.closures[visit.ID] == nil {
		t.Fatal("closure not stored")
	}

	if err := svc.ReportClosure(context.Background(), otherUser, visit.ID, &in.ReportClosureRequest{}); err == nil {
		t.Error("expected not found for foreign visit")
	}
	if err := svc.ReportClosure(context.Background(), ingestUser, visit.ID, &in.ReportClosureRequest{TotalOpenSec: -1}); err == nil {
		t.Error("expected validation error for negative duration")
	}
}
