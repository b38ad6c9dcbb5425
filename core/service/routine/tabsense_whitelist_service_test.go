package routine

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"tabsense_server/core/domain"
	"tabsense_server/pkg/snowflake"
)

var testUser = uuid.MustParse("6f1bb0a2-1111-4a58-9a07-000000000001")

func TestMain(m *testing.M) {
	if err := snowflake.Init(1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeWhitelistRepo is an in-memory WhitelistRepository.
type fakeWhitelistRepo struct {
	entries map[string]*domain.WhitelistEntry // by domain, active only
}

func newFakeWhitelistRepo() *fakeWhitelistRepo {
	return &fakeWhitelistRepo{entries: make(map[string]*domain.WhitelistEntry)}
}

func (f *fakeWhitelistRepo) FindActive(_ context.Context, _ uuid.UUID, domainName string) (*domain.WhitelistEntry, error) {
	return f.entries[domainName], nil
}

func (f *fakeWhitelistRepo) ListActive(_ context.Context, _ uuid.UUID) ([]*domain.WhitelistEntry, error) {
	out := make([]*domain.WhitelistEntry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeWhitelistRepo) AddOrUpdate(_ context.Context, entry *domain.WhitelistEntry) error {
	f.entries[entry.Domain] = entry
	return nil
}

func (f *fakeWhitelistRepo) Deactivate(_ context.Context, _ uuid.UUID, domainName string) error {
	delete(f.entries, domainName)
	return nil
}

func seedEntry(repo *fakeWhitelistRepo, dom string, reason domain.WhitelistReason) {
	repo.entries[dom] = &domain.WhitelistEntry{
		ID:       1,
		UserID:   testUser,
		Domain:   dom,
		Reason:   reason,
		IsActive: true,
	}
}

func TestFind_ExactMatch(t *testing.T) {
	repo := newFakeWhitelistRepo()
	seedEntry(repo, "github.com", domain.ReasonWorkTool)
	svc := NewWhitelistService(repo, nil, time.Minute)

	entry, err := svc.Find(context.Background(), testUser, "github.com")
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil || entry.Domain != "github.com" {
		t.Errorf("entry = %+v, want github.com", entry)
	}
}

func TestFind_ParentDomainCoversSubdomain(t *testing.T) {
	repo := newFakeWhitelistRepo()
	seedEntry(repo, "youtube.com", domain.ReasonEntertainmentRoutine)
	svc := NewWhitelistService(repo, nil, time.Minute)

	entry, err := svc.Find(context.Background(), testUser, "music.youtube.com")
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil || entry.Domain != "youtube.com" {
		t.Errorf("entry = %+v, want parent youtube.com", entry)
	}

	// Suffix matching respects domain boundaries: notyoutube.com is not a
	// subdomain of youtube.com.
	entry, err = svc.Find(context.Background(), testUser, "notyoutube.com")
	if err != nil {
		t.Fatal(err)
	}
	if entry != nil {
		t.Errorf("expected no match for notyoutube.com, got %+v", entry)
	}
}

func TestFind_Miss(t *testing.T) {
	svc := NewWhitelistService(newFakeWhitelistRepo(), nil, time.Minute)
	entry, err := svc.Find(context.Background(), testUser, "anything.com")
	if err != nil {
		t.Fatal(err)
	}
	if entry != nil {
		t.Errorf("expected nil, got %+v", entry)
	}
}

func TestAddOrUpdate_AssignsID(t *testing.T) {
	repo := newFakeWhitelistRepo()
	svc := NewWhitelistService(repo, nil, time.Minute)

	entry := &domain.WhitelistEntry{
		UserID: testUser,
		Domain: "docs.rs",
		Reason: domain.ReasonManual,
	}
	if err := svc.AddOrUpdate(context.Background(), entry); err != nil {
		t.Fatal(err)
	}
	if entry.ID == 0 {
		t.Error("expected a generated ID")
	}
	if !entry.IsActive {
		t.Error("upserted entry must be active")
	}
}

// fakeVisitRepoForRefresh supplies active domains plus per-domain history.
type fakeVisitRepoForRefresh struct {
	domainVisits map[string][]*domain.Visit
	order        []string
}

func (f *fakeVisitRepoForRefresh) CreateVisit(context.Context, *domain.Visit) error   { return nil }
func (f *fakeVisitRepoForRefresh) CreateVisits(context.Context, []*domain.Visit) error { return nil }
func (f *fakeVisitRepoForRefresh) GetVisit(context.Context, int64) (*domain.Visit, error) {
	return nil, nil
}
func (f *fakeVisitRepoForRefresh) ListVisits(context.Context, uuid.UUID, *domain.VisitFilter) ([]*domain.Visit, int, error) {
	return nil, 0, nil
}
func (f *fakeVisitRepoForRefresh) ListVisitsByURL(context.Context, uuid.UUID, string) ([]*domain.Visit, error) {
	return nil, nil
}
func (f *fakeVisitRepoForRefresh) ListVisitsByDomain(_ context.Context, _ uuid.UUID, d string, _ time.Time) ([]*domain.Visit, error) {
	return f.domainVisits[d], nil
}
func (f *fakeVisitRepoForRefresh) GroupVisitsByURL(context.Context, uuid.UUID, time.Time) (map[string][]*domain.Visit, []string, error) {
	return nil, nil, nil
}
func (f *fakeVisitRepoForRefresh) ListActiveDomains(context.Context, uuid.UUID, time.Time) ([]string, error) {
	return f.order, nil
}
func (f *fakeVisitRepoForRefresh) ListActiveUsers(context.Context, time.Time) ([]uuid.UUID, error) {
	return []uuid.UUID{testUser}, nil
}

func TestRefreshDomains(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	routineVisits := spread(25, 12, 180, true) // scores well above threshold
	quietVisits := spread(2, 2, 180, true)     // scores well below

	visitRepo := &fakeVisitRepoForRefresh{
		domainVisits: map[string][]*domain.Visit{
			"tool.example.com":  routineVisits,
			"quiet.example.com": quietVisits,
			"pet.example.com":   quietVisits,
		},
		order: []string{"tool.example.com", "quiet.example.com", "pet.example.com"},
	}

	wlRepo := newFakeWhitelistRepo()
	seedEntry(wlRepo, "quiet.example.com", domain.ReasonRoutineSite) // should deactivate
	seedEntry(wlRepo, "pet.example.com", domain.ReasonManual)        // manual, untouched

	svc := NewWhitelistService(wlRepo, nil, time.Minute)
	detector := NewDetector(DefaultThreshold)

	upserts, deactivations, err := svc.RefreshDomains(context.Background(), testUser, detector, visitRepo, 30, now)
	if err != nil {
		t.Fatal(err)
	}
	if upserts != 1 {
		t.Errorf("upserts = %d, want 1", upserts)
	}
	if deactivations != 1 {
		t.Errorf("deactivations = %d, want 1", deactivations)
	}

	if wlRepo.entries["tool.example.com"] == nil {
		t.Error("routine domain should be whitelisted")
	}
	if wlRepo.entries["quiet.example.com"] != nil {
		t.Error("below-threshold domain should be deactivated")
	}
	if wlRepo.entries["pet.example.com"] == nil {
		t.Error("manual entry must never be auto-deactivated")
	}
}

func TestContextBuilder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	repo := newFakeWhitelistRepo()
	seedEntry(repo, "github.com", domain.ReasonWorkTool)
	seedEntry(repo, "youtube.com", domain.ReasonEntertainmentRoutine)
	svc := NewWhitelistService(repo, nil, time.Minute)
	builder := NewContextBuilder(svc)

	tests := []struct {
		name         string
		domain       string
		lastActivity time.Time
		check        func(t *testing.T, d *domain.DomainContext)
	}{
		{
			"strong whitelist",
			"github.com",
			now.Add(-48 * time.Hour),
			func(t *testing.T, d *domain.DomainContext) {
				if !d.IsWhitelisted || d.IsConditional {
					t.Errorf("want strong whitelist, got %+v", d)
				}
			},
		},
		{
			"conditional whitelist",
			"youtube.com",
			now.Add(-48 * time.Hour),
			func(t *testing.T, d *domain.DomainContext) {
				if !d.IsWhitelisted || !d.IsConditional {
					t.Errorf("want conditional whitelist, got %+v", d)
				}
				if !d.ApplyStrictRules {
					t.Error("youtube should carry strict rules")
				}
			},
		},
		{
			"recently used productivity tool is lenient",
			"notion.so",
			now.Add(-2 * time.Hour),
			func(t *testing.T, d *domain.DomainContext) {
				if !d.ApplyLenientRules {
					t.Error("recent productivity use should be lenient")
				}
			},
		},
		{
			"stale productivity tool is not lenient",
			"notion.so",
			now.Add(-72 * time.Hour),
			func(t *testing.T, d *domain.DomainContext) {
				if d.ApplyLenientRules {
					t.Error("stale activity must not trigger lenient rules")
				}
			},
		},
		{
			"content site classification",
			"medium.com",
			now.Add(-48 * time.Hour),
			func(t *testing.T, d *domain.DomainContext) {
				if d.Type != domain.DomainTypeContentSite {
					t.Errorf("type = %v, want content_site", d.Type)
				}
			},
		},
		{
			"plain domain",
			"example.com",
			now.Add(-48 * time.Hour),
			func(t *testing.T, d *domain.DomainContext) {
				if d.IsWhitelisted || d.ApplyStrictRules || d.ApplyLenientRules {
					t.Errorf("plain domain got modifiers: %+v", d)
				}
				if d.Type != domain.DomainTypeOther {
					t.Errorf("type = %v, want other", d.Type)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dctx, err := builder.Build(context.Background(), testUser, tt.domain, tt.lastActivity, now)
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, dctx)
		})
	}
}
