package models

import "time"

// RunOutcome is the terminal state of a scrape run
type RunOutcome string

const (
	RunOutcomeRunning        RunOutcome = "running"
	RunOutcomeSuccess        RunOutcome = "success"
	RunOutcomePartialFailure RunOutcome = "partial_failure"
	RunOutcomeFailure        RunOutcome = "failure"
)

// ScrapeRun records per-run bookkeeping independent of individual listings.
// Created at run start, finalized exactly once at run end, never mutated
// afterward.
type ScrapeRun struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"run_id"`
	StartedUTC      time.Time  `gorm:"type:datetime;not null;index:idx_started_utc,sort:desc" json:"started_utc"`
	FinishedUTC     *time.Time `gorm:"type:datetime" json:"finished_utc,omitempty"`
	SourcesQueried  int        `gorm:"type:int;not null;default:0" json:"sources_queried"`
	SourcesFailed   int        `gorm:"type:int;not null;default:0" json:"sources_failed"`
	ListingsWritten int        `gorm:"type:int;not null;default:0" json:"listings_written"`
	ListingsSkipped int        `gorm:"type:int;not null;default:0" json:"listings_skipped"`
	WriteErrors     int        `gorm:"type:int;not null;default:0" json:"write_errors"`
	Outcome         RunOutcome `gorm:"type:varchar(20);not null;default:'running'" json:"outcome"`
}

// TableName specifies the table name
func (ScrapeRun) TableName() string {
	return "scrape_runs"
}

// Finalized reports whether the run has already been closed out
func (r *ScrapeRun) Finalized() bool {
	return r.FinishedUTC != nil
}

// DecideOutcome derives the terminal outcome from the accumulated counts.
// Contained per-source and per-listing errors degrade the run to
// partial_failure; only total store unavailability (handled by the caller)
// produces failure. ListingsSkipped counts in-batch duplicate collapse,
// which is normal operation, so it never degrades the outcome.
func (r *ScrapeRun) DecideOutcome() RunOutcome {
	if r.SourcesFailed > 0 || r.WriteErrors > 0 {
		return RunOutcomePartialFailure
	}
	return RunOutcomeSuccess
}
