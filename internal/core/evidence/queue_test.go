package evidence

import "testing"

func local(id, category string) Photo {
	return Photo{
		LocalID:    id,
		CategoryID: category,
		Local:      &LocalFile{Path: "/tmp/" + id + ".jpg"},
	}
}

func TestPhotoPromotion(t *testing.T) {
	p := local("p1", "CAT-A")

	if p.Uploaded() {
		t.Fatalf("local photo should not be uploaded")
	}
	p.MarkUploaded(RemoteRef{ID: "PH-100", URL: "https://files/ph-100.jpg"})
	if !p.Uploaded() {
		t.Fatalf("photo should be uploaded after promotion")
	}
	if p.Local != nil {
		t.Errorf("promotion should drop the local file reference")
	}
	if p.Remote.ID != "PH-100" {
		t.Errorf("Remote.ID = %s, want PH-100", p.Remote.ID)
	}
}

func TestPendingReplaysFromFirstUnuploaded(t *testing.T) {
	photos := []Photo{local("p1", "CAT-A"), local("p2", "CAT-A"), local("p3", "CAT-B")}
	photos[0].MarkUploaded(RemoteRef{ID: "PH-1"})

	pending := Pending(photos)

	if len(pending) != 2 {
		t.Fatalf("expected 2 pending photos, got %d", len(pending))
	}
	if pending[0].LocalID != "p2" || pending[1].LocalID != "p3" {
		t.Errorf("pending order wrong: %s, %s", pending[0].LocalID, pending[1].LocalID)
	}

	// Marking through the returned pointers mutates the queue, so a retry
	// after partial failure resumes where the last attempt stopped.
	pending[0].MarkUploaded(RemoteRef{ID: "PH-2"})
	if remaining := Pending(photos); len(remaining) != 1 || remaining[0].LocalID != "p3" {
		t.Errorf("queue replay should resume at p3")
	}
}

func TestPendingKeepsPrimaryUploadedUntilLegacySent(t *testing.T) {
	photos := []Photo{local("p1", "CAT-A")}
	photos[0].MarkPrimaryUploaded(RemoteRef{ID: "PH-1", URL: "https://files/ph-1.jpg"})

	// The primary store accepted the photo but the legacy duplicate is
	// still owed: the queue replays it, with the staged file kept.
	if !photos[0].Uploaded() {
		t.Fatalf("photo should count as uploaded once the primary store has it")
	}
	if photos[0].Settled() {
		t.Fatalf("photo should not be settled before the legacy duplicate")
	}
	if photos[0].Local == nil {
		t.Errorf("staged file must be kept for the legacy send")
	}
	if pending := Pending(photos); len(pending) != 1 || pending[0].LocalID != "p1" {
		t.Fatalf("legacy-pending photo should stay in the queue")
	}

	photos[0].MarkLegacySent()
	if !photos[0].Settled() || photos[0].Local != nil {
		t.Errorf("legacy send should settle the photo and release the staged file")
	}
	if pending := Pending(photos); len(pending) != 0 {
		t.Errorf("settled photo should leave the queue")
	}
}

func TestCanAdvance(t *testing.T) {
	categories := []Category{
		{ID: "CAT-A", Name: "Access control", Mandatory: true},
		{ID: "CAT-B", Name: "Perimeter", Mandatory: true},
		{ID: "CAT-C", Name: "Extras"},
	}

	tests := []struct {
		name        string
		photos      []Photo
		wantAllowed bool
		wantReason  string
	}{
		{
			name:        "blocked with no photos",
			photos:      nil,
			wantAllowed: false,
			wantReason:  "mandatory photo categories without a photo: Access control, Perimeter",
		},
		{
			name:        "blocked with one of two mandatory categories covered",
			photos:      []Photo{local("p1", "CAT-A")},
			wantAllowed: false,
			wantReason:  "mandatory photo categories without a photo: Perimeter",
		},
		{
			name:        "allowed once every mandatory category has a photo",
			photos:      []Photo{local("p1", "CAT-A"), local("p2", "CAT-B")},
			wantAllowed: true,
		},
		{
			name:        "optional categories never block",
			photos:      []Photo{local("p1", "CAT-A"), local("p2", "CAT-B")},
			wantAllowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanAdvance(categories, tt.photos)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if !tt.wantAllowed && result.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", result.Reason, tt.wantReason)
			}
		})
	}
}

func TestCanAdvanceCountsLocalCaptures(t *testing.T) {
	// A local, not-yet-uploaded capture satisfies the gate; the advance
	// itself flushes the upload queue.
	categories := []Category{{ID: "CAT-A", Name: "Access control", Mandatory: true}}
	photos := []Photo{local("p1", "CAT-A")}

	if result := CanAdvance(categories, photos); !result.Allowed {
		t.Errorf("local capture should satisfy the mandatory gate: %s", result.Reason)
	}
}
