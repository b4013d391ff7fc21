package finding

import "testing"

func TestCanCreate(t *testing.T) {
	tests := []struct {
		name        string
		ctx         CreateContext
		wantAllowed bool
		wantReason  string
	}{
		{
			name: "can create with valid category and severity",
			ctx: CreateContext{
				VisitID:     "VIS-001",
				Category:    CategoryInfrastructure,
				Severity:    SeverityMajor,
				Description: "perimeter camera 3 offline",
			},
			wantAllowed: true,
		},
		{
			name: "cannot create without active visit",
			ctx: CreateContext{
				Category:    CategoryPersonal,
				Severity:    SeverityMinor,
				Description: "missing id badge",
			},
			wantAllowed: false,
			wantReason:  "no active visit - findings can only be recorded during a visit",
		},
		{
			name: "cannot create with unknown category",
			ctx: CreateContext{
				VisitID:     "VIS-001",
				Category:    Category("logistics"),
				Severity:    SeverityMinor,
				Description: "x",
			},
			wantAllowed: false,
			wantReason:  `unknown finding category "logistics" (must be personal, infrastructure, documentation or operational)`,
		},
		{
			name: "cannot create with unknown severity",
			ctx: CreateContext{
				VisitID:     "VIS-001",
				Category:    CategoryOperational,
				Severity:    Severity("urgent"),
				Description: "x",
			},
			wantAllowed: false,
			wantReason:  `unknown finding severity "urgent" (must be critical, major or minor)`,
		},
		{
			name: "cannot create with empty description",
			ctx: CreateContext{
				VisitID:  "VIS-001",
				Category: CategoryDocumentation,
				Severity: SeverityCritical,
			},
			wantAllowed: false,
			wantReason:  "finding description must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanCreate(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if !tt.wantAllowed && result.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", result.Reason, tt.wantReason)
			}
		})
	}
}

func TestCanResolveMonotonic(t *testing.T) {
	statuses := []Status{StatusOpen, StatusInProgress, StatusVerified}

	// Every forward (or same-rank) transition is allowed, every backward
	// transition is rejected, independently of the rest of the context.
	for i, from := range statuses {
		for j, to := range statuses {
			result := CanResolve(ResolveContext{
				FindingID:        "FND-001",
				CurrentStatus:    from,
				TargetStatus:     to,
				OpenedInVisitID:  "VIS-001",
				ResolvingVisitID: "VIS-002",
			})
			wantAllowed := j >= i
			if result.Allowed != wantAllowed {
				t.Errorf("transition %s -> %s: Allowed = %v, want %v (%s)",
					from, to, result.Allowed, wantAllowed, result.Reason)
			}
		}
	}
}

func TestCanResolveLinkage(t *testing.T) {
	tests := []struct {
		name        string
		ctx         ResolveContext
		wantAllowed bool
	}{
		{
			name: "requires resolving visit id",
			ctx: ResolveContext{
				FindingID:       "FND-001",
				CurrentStatus:   StatusOpen,
				TargetStatus:    StatusVerified,
				OpenedInVisitID: "VIS-001",
			},
			wantAllowed: false,
		},
		{
			name: "rejects resolution from the opening visit",
			ctx: ResolveContext{
				FindingID:        "FND-001",
				CurrentStatus:    StatusOpen,
				TargetStatus:     StatusInProgress,
				OpenedInVisitID:  "VIS-001",
				ResolvingVisitID: "VIS-001",
			},
			wantAllowed: false,
		},
		{
			name: "allows resolution from a later visit",
			ctx: ResolveContext{
				FindingID:        "FND-001",
				CurrentStatus:    StatusInProgress,
				TargetStatus:     StatusVerified,
				OpenedInVisitID:  "VIS-001",
				ResolvingVisitID: "VIS-007",
			},
			wantAllowed: true,
		},
		{
			name: "rejects unknown target status",
			ctx: ResolveContext{
				FindingID:        "FND-001",
				CurrentStatus:    StatusOpen,
				TargetStatus:     Status("closed"),
				OpenedInVisitID:  "VIS-001",
				ResolvingVisitID: "VIS-002",
			},
			wantAllowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanResolve(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v (%s)", result.Allowed, tt.wantAllowed, result.Reason)
			}
		})
	}
}
