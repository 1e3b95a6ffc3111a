package domain

import "time"

// StatsState is a lifecycle state of one leaf resource.
type StatsState string

const (
	StateBegin           StatsState = "begin"
	StatePrepared        StatsState = "prepared"
	StateEvaluated       StatsState = "evaluated"
	StateFinished        StatsState = "finished"
	StateDiscarded       StatsState = "discarded"
	StateAccessException StatsState = "access-exception"
	StateException       StatsState = "exception"
	StateDone            StatsState = "done"
)

// IsTerminal reports whether no further transitions (other than done) follow.
func (s StatsState) IsTerminal() bool {
	switch s {
	case StateFinished, StateDiscarded, StateAccessException, StateException:
		return true
	default:
		return false
	}
}

// CrawlStats summarises the items of one crawl run.
type CrawlStats struct {
	Begun            int64
	Prepared         int64
	Evaluated        int64
	Finished         int64
	Discarded        int64
	AccessExceptions int64
	Exceptions       int64
	Done             int64
}

// Failed returns the number of items that ended in an exception.
func (s CrawlStats) Failed() int64 {
	return s.AccessExceptions + s.Exceptions
}

// CrawlRun records one execution of the crawler.
type CrawlRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      CrawlStats
	Err        string
}
