package domain

import (
	"time"

	"github.com/google/uuid"
)

// WhitelistReason records why a domain was whitelisted.
type WhitelistReason string

const (
	ReasonWorkTool             WhitelistReason = "work_tool"
	ReasonEntertainmentRoutine WhitelistReason = "entertainment_routine"
	ReasonReference            WhitelistReason = "reference"
	ReasonManual               WhitelistReason = "manual"
	ReasonRoutineSite          WhitelistReason = "routine_site"
)

// IsStrong reports whether the reason always excludes the domain from
// hoarder flagging. Conditional reasons can be overridden by a severe
// hoarder pattern.
func (r WhitelistReason) IsStrong() bool {
	return r == ReasonWorkTool || r == ReasonManual
}

// WhitelistEntry is a persisted per-(user, domain) exclusion. At most one
// active entry may exist per pair.
type WhitelistEntry struct {
	ID             int64           `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	Domain         string          `json:"domain"`
	Reason         WhitelistReason `json:"reason"`
	RoutineScore   float64         `json:"routine_score"`
	DetectedAt     time.Time       `json:"detected_at"`
	LastVerifiedAt time.Time       `json:"last_verified_at"`
	IsActive       bool            `json:"is_active"`
}

// DomainType is the coarse role a domain plays for scoring.
type DomainType string

const (
	DomainTypeContentSite DomainType = "content_site"
	DomainTypeOther       DomainType = "other"
)

// DomainContext carries everything the hoarder scorer needs to know about a
// domain: whitelist state plus rule modifiers. Computed on demand, cached
// only at the whitelist layer.
type DomainContext struct {
	Domain            string          `json:"domain"`
	IsWhitelisted     bool            `json:"is_whitelisted"`
	WhitelistReason   WhitelistReason `json:"whitelist_reason,omitempty"`
	IsConditional     bool            `json:"is_conditional"`
	Type              DomainType      `json:"type"`
	ApplyStrictRules  bool            `json:"apply_strict_rules"`
	ApplyLenientRules bool            `json:"apply_lenient_rules"`
}
