package logger

import (
	"sync"
	"time"
)

// StageTracker records timing for the sequential stages of a reconciliation
// run (parsing, aggregation, identity resolution, merge, report). The
// pipeline is single-threaded but the tracker is safe for concurrent use so
// callers can read stats while a run is in flight.
type StageTracker struct {
	logger    Logger
	run       string
	startTime time.Time
	current   string
	stageTime time.Time
	completed []StageResult
	mutex     sync.RWMutex
}

// StageResult holds the outcome of a single completed stage.
type StageResult struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Records  int           `json:"records"`
}

// NewStageTracker creates a tracker for one reconciliation run.
func NewStageTracker(run string, log Logger) *StageTracker {
	if log == nil {
		log = GetGlobalLogger()
	}

	tracker := &StageTracker{
		logger:    log.WithComponent("stages"),
		run:       run,
		startTime: time.Now(),
	}

	tracker.logger.WithField("run", run).Info("Starting reconciliation run")
	return tracker
}

// StartStage marks the beginning of a named stage.
func (s *StageTracker) StartStage(name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.current = name
	s.stageTime = time.Now()

	s.logger.WithFields(Fields{
		"run":   s.run,
		"stage": name,
	}).Debug("Stage started")
}

// EndStage marks the current stage complete, recording how many records it
// produced or touched.
func (s *StageTracker) EndStage(records int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.current == "" {
		return
	}

	result := StageResult{
		Name:     s.current,
		Duration: time.Since(s.stageTime),
		Records:  records,
	}
	s.completed = append(s.completed, result)

	s.logger.WithFields(Fields{
		"run":      s.run,
		"stage":    result.Name,
		"records":  result.Records,
		"duration": result.Duration.String(),
	}).Info("Stage completed")

	s.current = ""
}

// Complete logs the final run summary.
func (s *StageTracker) Complete() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.logger.WithFields(Fields{
		"run":      s.run,
		"stages":   len(s.completed),
		"duration": time.Since(s.startTime).String(),
	}).Info("Reconciliation run completed")
}

// CompleteWithError logs the run as failed.
func (s *StageTracker) CompleteWithError(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	fields := Fields{
		"run":      s.run,
		"duration": time.Since(s.startTime).String(),
	}
	if s.current != "" {
		fields["failed_stage"] = s.current
	}

	s.logger.WithError(err).WithFields(fields).Error("Reconciliation run failed")
}

// Stages returns a copy of the completed stage results.
func (s *StageTracker) Stages() []StageResult {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]StageResult, len(s.completed))
	copy(out, s.completed)
	return out
}
