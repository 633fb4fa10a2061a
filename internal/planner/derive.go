package planner

import (
	"fmt"
	"slices"
	"time"

	"github.com/ankitojha2705/marketmind/internal/domain"
)

var starterHashtags = []string{"#sale", "#trending"}

// Caption is the starter caption for one platform's draft.
func Caption(name, brief, platform string) string {
	return fmt.Sprintf("%s: %s — (%s)", name, brief, platform)
}

// DeriveDrafts expands a campaign into one draft per platform, in platform
// order. The only non-determinism is newID.
func DeriveDrafts(campaignID, name, brief string, platforms []string, now time.Time, newID func() string) []domain.Draft {
	drafts := make([]domain.Draft, 0, len(platforms))
	for _, p := range platforms {
		drafts = append(drafts, domain.Draft{
			ID:         newID(),
			CampaignID: campaignID,
			Platform:   p,
			Caption:    Caption(name, brief, p),
			Hashtags:   slices.Clone(starterHashtags),
			Status:     domain.DraftStatusDraft,
			CreatedAt:  now,
		})
	}
	return drafts
}
