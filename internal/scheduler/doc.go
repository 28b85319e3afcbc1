// Package scheduler triggers named jobs on cron or interval schedules.
//
// Jobs run directly on the cron goroutine pool. A job whose previous run is
// still in flight is skipped rather than queued.
package scheduler
