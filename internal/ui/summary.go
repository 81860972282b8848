package ui

import (
	"fmt"

	"github.com/bamsammich/spintar/internal/stats"
)

// completionSummary builds a final summary line from a snapshot.
// Format: done ✓  files 48,917  links 12  size 2.1 GiB  avg 141.2 MiB/s  time 3m 17s  errors 0
func completionSummary(snap stats.Snapshot) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.BytesArchived) / snap.Elapsed.Seconds()
	}

	icon := "✓"
	if snap.FilesFailed > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  files %s",
		icon,
		FormatCount(snap.FilesArchived),
	)
	if snap.LinksArchived > 0 {
		base += "  links " + FormatCount(snap.LinksArchived)
	}
	base += fmt.Sprintf("  size %s  avg %s  time %s  errors %d",
		FormatBytes(snap.BytesArchived),
		FormatRate(avgSpeed),
		FormatDuration(snap.Elapsed),
		snap.FilesFailed,
	)
	return base
}
