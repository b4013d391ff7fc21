// Package evidence contains the pure business logic for photographic and
// documentary evidence captured during a visit.
// This is part of the Functional Core - no I/O, only pure functions.
package evidence

import (
	"fmt"
	"strings"
	"time"
)

// Category is one photo category configured for an installation.
type Category struct {
	ID        string
	Name      string
	Mandatory bool
}

// LocalFile is evidence that exists only on this device. It is not part
// of the durable visit record until its upload succeeds.
type LocalFile struct {
	Path        string
	PreviewPath string // released when the photo is removed or replaced
	SizeBytes   int64
}

// RemoteRef is the server identity assigned to an uploaded piece of evidence.
type RemoteRef struct {
	ID  string
	URL string
}

// Photo is one captured photo. Remote is set as soon as the primary
// store accepts the upload; LegacySent once the legacy duplicate is
// stored. The staged Local file is released only when both are done, so
// a legacy-only replay still has bytes to send.
type Photo struct {
	LocalID      string // client-generated, stable across retries
	CategoryID   string
	CategoryName string
	TakenAt      time.Time
	TakenLat     *float64
	TakenLng     *float64
	Local        *LocalFile
	Remote       *RemoteRef
	LegacySent   bool
}

// Uploaded reports whether the photo is part of the durable visit record.
// The primary store decides; the legacy duplicate is bookkeeping.
func (p Photo) Uploaded() bool {
	return p.Remote != nil
}

// Settled reports whether nothing remains to send for this photo.
func (p Photo) Settled() bool {
	return p.Uploaded() && p.LegacySent
}

// MarkUploaded promotes a local photo to its server identity with both
// stores written.
func (p *Photo) MarkUploaded(ref RemoteRef) {
	p.Local = nil
	p.Remote = &ref
	p.LegacySent = true
}

// MarkPrimaryUploaded records the primary-store identity while the
// legacy duplicate is still pending. The staged file is kept for it.
func (p *Photo) MarkPrimaryUploaded(ref RemoteRef) {
	p.Remote = &ref
}

// MarkLegacySent records the legacy duplicate and releases the staged file.
func (p *Photo) MarkLegacySent() {
	p.LegacySent = true
	p.Local = nil
}

// Pending returns the photos that still need sending, in capture order.
// Replaying the queue after a partial failure resumes from the first
// unsettled item; a photo the primary store already holds re-sends only
// its legacy duplicate, never the primary upload.
func Pending(photos []Photo) []*Photo {
	var out []*Photo
	for i := range photos {
		if !photos[i].Settled() {
			out = append(out, &photos[i])
		}
	}
	return out
}

// CountByCategory counts photos (local or uploaded) per category id.
func CountByCategory(photos []Photo) map[string]int {
	out := make(map[string]int)
	for _, p := range photos {
		out[p.CategoryID]++
	}
	return out
}

// MissingMandatory returns the mandatory categories with no captured photo.
func MissingMandatory(categories []Category, photos []Photo) []Category {
	counts := CountByCategory(photos)
	var missing []Category
	for _, c := range categories {
		if c.Mandatory && counts[c.ID] == 0 {
			missing = append(missing, c)
		}
	}
	return missing
}

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error returns the guard result as an error if not allowed, nil otherwise.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// CanAdvance evaluates whether the evidence step is complete: every
// mandatory category needs at least one captured photo. Upload state does
// not matter here; pending items are flushed by the advance itself.
func CanAdvance(categories []Category, photos []Photo) GuardResult {
	missing := MissingMandatory(categories, photos)
	if len(missing) == 0 {
		return GuardResult{Allowed: true}
	}
	names := make([]string, len(missing))
	for i, c := range missing {
		names[i] = c.Name
	}
	return GuardResult{
		Allowed: false,
		Reason:  fmt.Sprintf("mandatory photo categories without a photo: %s", strings.Join(names, ", ")),
	}
}
