package matcher

import (
	"golang-payroll-reconciler/internal/models"
	"golang-payroll-reconciler/pkg/logger"
)

// DefaultSimilarityThreshold is the minimum score at which a trip-feed
// driver key is re-keyed onto a timesheet-feed key.
const DefaultSimilarityThreshold = 60.0

// ResolverConfig configures identity resolution.
type ResolverConfig struct {
	// Threshold is the minimum similarity score for a match, 0-100.
	Threshold float64
	// Scorer computes pairwise similarity. Defaults to TokenSortScorer.
	Scorer Scorer
}

// DefaultResolverConfig returns the standard resolver configuration.
func DefaultResolverConfig() *ResolverConfig {
	return &ResolverConfig{
		Threshold: DefaultSimilarityThreshold,
		Scorer:    NewTokenSortScorer(),
	}
}

// IdentityResolver maps trip-feed driver keys onto the canonical timesheet
// spellings. Keys with no reference above the threshold pass through
// unchanged and surface downstream as drivers absent from the timesheet.
type IdentityResolver struct {
	config *ResolverConfig
	logger logger.Logger
}

// NewIdentityResolver creates a resolver with the given configuration.
func NewIdentityResolver(config *ResolverConfig) *IdentityResolver {
	if config == nil {
		config = DefaultResolverConfig()
	}
	if config.Scorer == nil {
		config.Scorer = NewTokenSortScorer()
	}

	return &IdentityResolver{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("identity_resolver"),
	}
}

// Match holds one resolved trip-feed key.
type Match struct {
	TripKey        string
	ResolvedKey    string
	Score          float64
	AboveThreshold bool
}

// Resolve rewrites the driver keys of the trip aggregate onto the best
// matching timesheet key. The reference order is the timesheet aggregate's
// record order; ties go to the earlier reference key, so resolution is
// deterministic for a given input order. Returns the rewritten records and
// the per-key match decisions for logging and diagnostics.
func (ir *IdentityResolver) Resolve(tripRecords, timesheetRecords []*models.DailyHoursRecord) ([]*models.DailyHoursRecord, []Match) {
	reference := distinctKeys(timesheetRecords)

	// Score each distinct trip key once.
	decisions := make(map[string]Match)
	var matches []Match
	for _, key := range distinctKeys(tripRecords) {
		match := ir.bestMatch(key, reference)
		decisions[key] = match
		matches = append(matches, match)

		if match.AboveThreshold && match.TripKey != match.ResolvedKey {
			ir.logger.WithFields(logger.Fields{
				"trip_key":     match.TripKey,
				"resolved_key": match.ResolvedKey,
				"score":        match.Score,
			}).Debug("Driver identity resolved")
		}
	}

	resolved := make([]*models.DailyHoursRecord, 0, len(tripRecords))
	for _, record := range tripRecords {
		out := *record
		if match, ok := decisions[record.DriverKey]; ok && match.AboveThreshold {
			out.DriverKey = match.ResolvedKey
		}
		resolved = append(resolved, &out)
	}

	return resolved, matches
}

// bestMatch scores a trip key against every reference key and keeps the
// best. A strictly greater score is required to displace an earlier
// reference key.
func (ir *IdentityResolver) bestMatch(tripKey string, reference []string) Match {
	match := Match{TripKey: tripKey, ResolvedKey: tripKey}

	bestScore := -1.0
	for _, ref := range reference {
		score := ir.config.Scorer.Score(tripKey, ref)
		if score > bestScore {
			bestScore = score
			if score >= ir.config.Threshold {
				match.ResolvedKey = ref
				match.Score = score
				match.AboveThreshold = true
			}
		}
	}

	if !match.AboveThreshold && bestScore >= 0 {
		match.Score = bestScore
	}

	return match
}

// distinctKeys returns the distinct driver keys in first-encountered order.
func distinctKeys(records []*models.DailyHoursRecord) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, record := range records {
		if !seen[record.DriverKey] {
			seen[record.DriverKey] = true
			keys = append(keys, record.DriverKey)
		}
	}
	return keys
}
