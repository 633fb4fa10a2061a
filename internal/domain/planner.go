package domain

import (
	"errors"
	"slices"
	"time"
)

var ErrDraftNotFound = errors.New("draft not found")

type DraftStatus string

const (
	DraftStatusDraft     DraftStatus = "draft"
	DraftStatusScheduled DraftStatus = "scheduled"
	DraftStatusPosted    DraftStatus = "posted"
)

// Campaign JSON names match the snapshot document the web client has always
// written, so old snapshots keep loading.
type Campaign struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Brief     string    `json:"brief"`
	Platforms []string  `json:"platforms"`
	CreatedAt time.Time `json:"createdAt"`
}

type Draft struct {
	ID          string      `json:"id"`
	CampaignID  string      `json:"campaignId"`
	Platform    string      `json:"platform"`
	Caption     string      `json:"caption"`
	Hashtags    []string    `json:"hashtags"`
	Status      DraftStatus `json:"status"`
	ScheduledAt *time.Time  `json:"scheduledAt"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func (d Draft) IsScheduled() bool {
	return d.Status == DraftStatusScheduled && d.ScheduledAt != nil
}

type PlannerState struct {
	Campaigns []Campaign `json:"campaigns"`
	Drafts    []Draft    `json:"drafts"`
}

// EmptyPlannerState is the state of a planner nobody has touched yet.
func EmptyPlannerState() PlannerState {
	return PlannerState{Campaigns: []Campaign{}, Drafts: []Draft{}}
}

// Clone returns a deep copy of s.
func (s PlannerState) Clone() PlannerState {
	out := PlannerState{
		Campaigns: make([]Campaign, len(s.Campaigns)),
		Drafts:    make([]Draft, len(s.Drafts)),
	}
	for i, c := range s.Campaigns {
		c.Platforms = slices.Clone(c.Platforms)
		out.Campaigns[i] = c
	}
	for i, d := range s.Drafts {
		d.Hashtags = slices.Clone(d.Hashtags)
		if d.ScheduledAt != nil {
			at := *d.ScheduledAt
			d.ScheduledAt = &at
		}
		out.Drafts[i] = d
	}
	return out
}
