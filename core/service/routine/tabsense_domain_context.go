package routine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"tabsense_server/core/domain"
)

// productivityDomains are tools people keep open on purpose. A tab on one
// of these that was touched recently gets lenient treatment regardless of
// whitelist state.
var productivityDomains = []string{
	"github.com", "gitlab.com", "bitbucket.org",
	"mail.google.com", "calendar.google.com", "docs.google.com", "drive.google.com",
	"notion.so", "linear.app", "figma.com", "slack.com", "atlassian.net",
	"outlook.office.com", "teams.microsoft.com", "miro.com", "airtable.com",
}

// distractionDomains get strict scoring: feeds engineered to be reopened.
var distractionDomains = []string{
	"twitter.com", "x.com", "facebook.com", "instagram.com", "tiktok.com",
	"reddit.com", "youtube.com", "twitch.tv", "netflix.com", "9gag.com",
	"news.ycombinator.com", "buzzfeed.com",
}

// contentSiteDomains host long-form content meant to be consumed once.
var contentSiteDomains = []string{
	"medium.com", "substack.com", "dev.to", "wikipedia.org",
	"nytimes.com", "theguardian.com", "bbc.com", "arstechnica.com",
	"stackoverflow.com", "quora.com",
}

// recentUseWindow bounds how fresh activity must be for lenient treatment.
const recentUseWindow = 24 * time.Hour

// ContextBuilder assembles the DomainContext the hoarder scorer consumes:
// whitelist state plus rule modifiers derived from the domain itself.
type ContextBuilder struct {
	whitelist *WhitelistService
}

func NewContextBuilder(whitelist *WhitelistService) *ContextBuilder {
	return &ContextBuilder{whitelist: whitelist}
}

// Build resolves the context for one domain. lastActivity is the most
// recent visit to the domain in the current analysis window.
func (b *ContextBuilder) Build(ctx context.Context, userID uuid.UUID, domainName string, lastActivity time.Time, now time.Time) (*domain.DomainContext, error) {
	dctx := &domain.DomainContext{
		Domain: domainName,
		Type:   classifyDomainType(domainName),
	}

	entry, err := b.whitelist.Find(ctx, userID, domainName)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		dctx.IsWhitelisted = true
		dctx.WhitelistReason = entry.Reason
		dctx.IsConditional = !entry.Reason.IsStrong()
	}

	recentlyUsed := now.Sub(lastActivity) <= recentUseWindow
	dctx.ApplyLenientRules = recentlyUsed && domainMatches(domainName, productivityDomains)
	dctx.ApplyStrictRules = domainMatches(domainName, distractionDomains)

	return dctx, nil
}

func classifyDomainType(domainName string) domain.DomainType {
	if domainMatches(domainName, contentSiteDomains) {
		return domain.DomainTypeContentSite
	}
	return domain.DomainTypeOther
}

// domainMatches reports an exact or subdomain match against the list.
func domainMatches(domainName string, list []string) bool {
	for _, d := range list {
		if domainName == d || strings.HasSuffix(domainName, "."+d) {
			return true
		}
	}
	return false
}
