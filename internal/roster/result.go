package roster

import (
	"fmt"

	"github.com/albapepper/brawl-club/internal/provider"
)

// SyncResult tracks counts and errors from one UpdateMembers run.
type SyncResult struct {
	Fetched         int               `json:"fetched"`
	Saved           int               `json:"saved"`
	Removed         int               `json:"removed"`
	Former          []provider.Member `json:"former"`
	FailedClubs     []string          `json:"failed_clubs"`
	RemovalsSkipped bool              `json:"removals_skipped"`
	Errors          []string          `json:"errors"`
}

// AddErrorf records a formatted error message.
func (r *SyncResult) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the sync.
func (r *SyncResult) Summary() string {
	return fmt.Sprintf(
		"fetched=%d saved=%d removed=%d failed_clubs=%d removals_skipped=%v errors=%d",
		r.Fetched, r.Saved, r.Removed,
		len(r.FailedClubs), r.RemovalsSkipped, len(r.Errors),
	)
}
