// Package in defines inbound ports (driving ports) for the application.
package in

import (
	"context"
	"time"

	"tabsense_server/core/domain"

	"github.com/google/uuid"
)

// HoarderSort selects the ordering of detected hoarder tabs.
type HoarderSort string

const (
	SortByScore     HoarderSort = "hoarder_score"
	SortByValueRank HoarderSort = "value_rank"
	SortByAge       HoarderSort = "age"
)

// HoarderTabOptions filters and orders a hoarder detection run. Filters are
// applied before sorting; Limit truncates after.
type HoarderTabOptions struct {
	LookbackDays   float64
	MinScore       float64
	AgeMinDays     float64
	Domain         string
	ExcludeDomains []string
	Limit          int
	SortBy         HoarderSort
}

// SessionParams tunes research session segmentation.
type SessionParams struct {
	MinTabs     int
	TimeWindow  time.Duration
	MinDuration time.Duration
}

// InsightService is the inbound port exposing the behavioral detection
// engine to HTTP handlers, the scheduler, or a CLI.
type InsightService interface {
	DetectHoarderTabs(ctx context.Context, userID uuid.UUID, opts *HoarderTabOptions) ([]*domain.HoarderTabResult, error)
	DetectResearchSessions(ctx context.Context, userID uuid.UUID, params *SessionParams) ([]*domain.ResearchSessionCandidate, error)
	DetectRoutine(ctx context.Context, userID uuid.UUID, domainName string, lookbackDays int) (*domain.RoutineResult, error)
	RankByValue(results []*domain.HoarderTabResult) []*domain.HoarderTabResult

	DetectSerialOpeners(ctx context.Context, userID uuid.UUID, lookbackDays float64) ([]*domain.SerialOpenerResult, error)
	CompareSerialOpeners(ctx context.Context, userID uuid.UUID, periodDays float64) (*domain.ComparisonReport, error)
}
