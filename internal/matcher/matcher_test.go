package matcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"golang-payroll-reconciler/internal/models"
)

func TestTokenSortScorer(t *testing.T) {
	scorer := NewTokenSortScorer()

	tests := []struct {
		name     string
		a, b     string
		minScore float64
		maxScore float64
	}{
		{
			name:     "identical",
			a:        "JOHN SMITH",
			b:        "JOHN SMITH",
			minScore: 100,
			maxScore: 100,
		},
		{
			name:     "reordered tokens score perfect",
			a:        "JOHN SMITH",
			b:        "SMITH JOHN",
			minScore: 100,
			maxScore: 100,
		},
		{
			name:     "comma and reorder score perfect",
			a:        "JOHN SMITH JR",
			b:        "SMITH, JOHN JR",
			minScore: 100,
			maxScore: 100,
		},
		{
			name:     "minor misspelling stays high",
			a:        "JON SMITH",
			b:        "JOHN SMITH",
			minScore: 60,
			maxScore: 99,
		},
		{
			name:     "unrelated names score low",
			a:        "XYZQPR UNKNOWN",
			b:        "JOHN SMITH",
			minScore: 0,
			maxScore: 59,
		},
		{
			name:     "empty string scores zero",
			a:        "",
			b:        "JOHN SMITH",
			minScore: 0,
			maxScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.a, tt.b)
			if got < tt.minScore || got > tt.maxScore {
				t.Errorf("Score(%q, %q) = %.2f, want in [%.0f, %.0f]",
					tt.a, tt.b, got, tt.minScore, tt.maxScore)
			}

			// Symmetry.
			if rev := scorer.Score(tt.b, tt.a); rev != got {
				t.Errorf("Score is not symmetric: %.2f vs %.2f", got, rev)
			}
		})
	}
}

func hoursRecord(key string, day int, hours string) *models.DailyHoursRecord {
	return &models.DailyHoursRecord{
		DriverKey: key,
		WorkDate:  time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		Hours:     decimal.RequireFromString(hours),
	}
}

func TestIdentityResolverReplacesAboveThreshold(t *testing.T) {
	resolver := NewIdentityResolver(nil)

	trip := []*models.DailyHoursRecord{
		hoursRecord("JOHN SMITH JR", 6, "8"),
		hoursRecord("JOHN SMITH JR", 7, "9"),
	}
	timesheet := []*models.DailyHoursRecord{
		hoursRecord("SMITH JOHN JR", 6, "8"),
	}

	resolved, matches := resolver.Resolve(trip, timesheet)

	for _, r := range resolved {
		if r.DriverKey != "SMITH JOHN JR" {
			t.Errorf("DriverKey = %q, want re-keyed onto the timesheet spelling", r.DriverKey)
		}
	}
	if len(matches) != 1 {
		t.Fatalf("got %d match decisions, want 1", len(matches))
	}
	if !matches[0].AboveThreshold {
		t.Errorf("match score %.2f did not clear the threshold", matches[0].Score)
	}

	// Inputs must not be mutated.
	if trip[0].DriverKey != "JOHN SMITH JR" {
		t.Errorf("input record mutated to %q", trip[0].DriverKey)
	}
}

func TestIdentityResolverKeepsUnmatchedKeys(t *testing.T) {
	resolver := NewIdentityResolver(nil)

	trip := []*models.DailyHoursRecord{
		hoursRecord("XYZQPR UNKNOWN", 6, "5"),
	}
	timesheet := []*models.DailyHoursRecord{
		hoursRecord("SMITH JOHN", 6, "8"),
		hoursRecord("DOE JANE", 6, "8"),
	}

	resolved, matches := resolver.Resolve(trip, timesheet)

	if resolved[0].DriverKey != "XYZQPR UNKNOWN" {
		t.Errorf("DriverKey = %q, want unmatched key unchanged", resolved[0].DriverKey)
	}
	if matches[0].AboveThreshold {
		t.Errorf("score %.2f cleared the threshold for an unrelated name", matches[0].Score)
	}
}

func TestIdentityResolverTieBreaksByReferenceOrder(t *testing.T) {
	resolver := NewIdentityResolver(nil)

	// Both references score identically against the trip key; the
	// first-encountered reference must win.
	trip := []*models.DailyHoursRecord{
		hoursRecord("JOHN SMITH", 6, "5"),
	}
	timesheet := []*models.DailyHoursRecord{
		hoursRecord("SMITH JOHN", 6, "8"),
		hoursRecord("JOHN SMITH", 7, "8"),
	}

	resolved, _ := resolver.Resolve(trip, timesheet)
	if resolved[0].DriverKey != "SMITH JOHN" {
		t.Errorf("DriverKey = %q, want the first reference on a tie", resolved[0].DriverKey)
	}
}

func TestIdentityResolverCustomThreshold(t *testing.T) {
	resolver := NewIdentityResolver(&ResolverConfig{Threshold: 95})

	trip := []*models.DailyHoursRecord{
		hoursRecord("JON SMITH", 6, "5"),
	}
	timesheet := []*models.DailyHoursRecord{
		hoursRecord("JOHN SMITH", 6, "8"),
	}

	resolved, _ := resolver.Resolve(trip, timesheet)
	if resolved[0].DriverKey != "JON SMITH" {
		t.Errorf("DriverKey = %q, want unchanged below a raised threshold", resolved[0].DriverKey)
	}
}

func TestIdentityResolverEmptyReference(t *testing.T) {
	resolver := NewIdentityResolver(nil)

	trip := []*models.DailyHoursRecord{
		hoursRecord("JOHN SMITH", 6, "5"),
	}

	resolved, matches := resolver.Resolve(trip, nil)
	if resolved[0].DriverKey != "JOHN SMITH" {
		t.Errorf("DriverKey = %q, want unchanged with no references", resolved[0].DriverKey)
	}
	if matches[0].AboveThreshold {
		t.Error("match reported above threshold with no references")
	}
}
