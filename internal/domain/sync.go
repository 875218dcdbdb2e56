package domain

import (
	"fmt"
	"sort"
	"time"
)

// SyncPlan classifies every row index of a sync pass. Only Added, Changed
// and Deleted indexes generate store mutations; Unchanged rows are left
// untouched.
type SyncPlan struct {
	Added     []int
	Changed   []int
	Deleted   []int
	Unchanged []int
}

// IsEmpty reports whether the plan carries no mutations.
func (p *SyncPlan) IsEmpty() bool {
	return len(p.Added) == 0 && len(p.Changed) == 0 && len(p.Deleted) == 0
}

// Mutations returns the number of rows the plan will touch.
func (p *SyncPlan) Mutations() int {
	return len(p.Added) + len(p.Changed) + len(p.Deleted)
}

// BuildSyncPlan diffs a fresh index→fingerprint map against the stored
// one. An index only in fresh is added, only in stored is deleted, in both
// with differing fingerprints is changed, otherwise unchanged. Index
// slices come back sorted ascending so plans are deterministic.
func BuildSyncPlan(fresh, stored map[int]string) *SyncPlan {
	plan := &SyncPlan{
		Added:     []int{},
		Changed:   []int{},
		Deleted:   []int{},
		Unchanged: []int{},
	}

	for index, fp := range fresh {
		prior, ok := stored[index]
		switch {
		case !ok:
			plan.Added = append(plan.Added, index)
		case prior != fp:
			plan.Changed = append(plan.Changed, index)
		default:
			plan.Unchanged = append(plan.Unchanged, index)
		}
	}

	for index := range stored {
		if _, ok := fresh[index]; !ok {
			plan.Deleted = append(plan.Deleted, index)
		}
	}

	sort.Ints(plan.Added)
	sort.Ints(plan.Changed)
	sort.Ints(plan.Deleted)
	sort.Ints(plan.Unchanged)

	return plan
}

// SyncRunStatus represents the status of a sync pass
type SyncRunStatus string

const (
	SyncRunStatusRunning   SyncRunStatus = "running"
	SyncRunStatusCompleted SyncRunStatus = "completed"
	SyncRunStatusFailed    SyncRunStatus = "failed"
)

// SyncTrigger records what started a sync pass
type SyncTrigger string

const (
	SyncTriggerStartup SyncTrigger = "startup"
	SyncTriggerWatch   SyncTrigger = "watch"
	SyncTriggerForced  SyncTrigger = "forced"
)

// SyncRun is the persisted record of one sync pass.
type SyncRun struct {
	ID         string
	Trigger    SyncTrigger
	Status     SyncRunStatus
	Added      int
	Changed    int
	Deleted    int
	Unchanged  int
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// NewSyncRun creates a new SyncRun instance
func NewSyncRun(id string, trigger SyncTrigger, startedAt time.Time) *SyncRun {
	return &SyncRun{
		ID:        id,
		Trigger:   trigger,
		Status:    SyncRunStatusRunning,
		StartedAt: startedAt,
	}
}

// ValidateSyncRun validates a SyncRun instance
func ValidateSyncRun(r *SyncRun) error {
	if r == nil {
		return fmt.Errorf("sync run cannot be nil")
	}

	if r.ID == "" {
		return fmt.Errorf("sync run ID is required")
	}

	if !isValidSyncRunStatus(r.Status) {
		return fmt.Errorf("sync run Status is invalid: %s", r.Status)
	}

	if !isValidSyncTrigger(r.Trigger) {
		return fmt.Errorf("sync run Trigger is invalid: %s", r.Trigger)
	}

	if r.Added < 0 || r.Changed < 0 || r.Deleted < 0 || r.Unchanged < 0 {
		return fmt.Errorf("sync run counts cannot be negative")
	}

	return nil
}

// isValidSyncRunStatus checks if a SyncRunStatus is valid
func isValidSyncRunStatus(s SyncRunStatus) bool {
	switch s {
	case SyncRunStatusRunning, SyncRunStatusCompleted, SyncRunStatusFailed:
		return true
	}
	return false
}

// isValidSyncTrigger checks if a SyncTrigger is valid
func isValidSyncTrigger(t SyncTrigger) bool {
	switch t {
	case SyncTriggerStartup, SyncTriggerWatch, SyncTriggerForced:
		return true
	}
	return false
}
