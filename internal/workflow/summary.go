package workflow

import (
	"time"

	"cbzmage/internal/engine"
)

// Book statuses reported in a Summary.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// BookOutcome is the result of one book in a run.
type BookOutcome struct {
	Primary   string         `json:"primary" yaml:"primary"`
	Status    string         `json:"status" yaml:"status"`
	Result    *engine.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind string         `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Duration  time.Duration  `json:"duration" yaml:"duration"`

	Err error `json:"-" yaml:"-"`
}

// Summary aggregates a run. Processed counts books that were attempted;
// Total counts every discovered book, canceled ones included.
type Summary struct {
	RunID        string        `json:"run_id" yaml:"run_id"`
	Mode         engine.Mode   `json:"mode" yaml:"mode"`
	Source       string        `json:"source" yaml:"source"`
	StartedAt    time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time     `json:"finished_at" yaml:"finished_at"`
	Total        int           `json:"total" yaml:"total"`
	Processed    int           `json:"processed" yaml:"processed"`
	Succeeded    int           `json:"succeeded" yaml:"succeeded"`
	Failed       int           `json:"failed" yaml:"failed"`
	Canceled     int           `json:"canceled" yaml:"canceled"`
	HDContainers int           `json:"hd_containers" yaml:"hd_containers"`
	Unmatched    int           `json:"unmatched" yaml:"unmatched"`
	Books        []BookOutcome `json:"books" yaml:"books"`
}

// HasFailures reports whether any book failed.
func (s *Summary) HasFailures() bool {
	return s != nil && s.Failed > 0
}

// Pages returns the HD and SD page totals over succeeded books.
func (s *Summary) Pages() (hd, sd int) {
	if s == nil {
		return 0, 0
	}
	for _, book := range s.Books {
		if book.Result == nil {
			continue
		}
		hd += book.Result.HdImages
		sd += book.Result.SdImages
	}
	return hd, sd
}

func (s *Summary) tally() {
	s.Total = len(s.Books)
	s.Processed, s.Succeeded, s.Failed, s.Canceled = 0, 0, 0, 0
	for _, book := range s.Books {
		switch book.Status {
		case StatusSucceeded:
			s.Succeeded++
			s.Processed++
		case StatusFailed:
			s.Failed++
			s.Processed++
		case StatusCanceled:
			s.Canceled++
		}
	}
}
