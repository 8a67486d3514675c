package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleType determines how a schedule computes its next run.
type ScheduleType string

const (
	ScheduleTypeManual   ScheduleType = "MANUAL"
	ScheduleTypeOneTime  ScheduleType = "ONE_TIME"
	ScheduleTypeCron     ScheduleType = "CRON"
	ScheduleTypeInterval ScheduleType = "INTERVAL"
)

// ScheduleStatus is the administrative state of a schedule.
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusPaused    ScheduleStatus = "paused"
	ScheduleStatusExpired   ScheduleStatus = "expired"
	ScheduleStatusCompleted ScheduleStatus = "completed"
)

var (
	// ErrCronParse is returned when a cron or interval expression cannot
	// be parsed. Surfaced as a validation failure on create/update.
	ErrCronParse = errors.New("cron parse error")

	// ErrInvalidSchedule is returned when schedule fields are inconsistent.
	ErrInvalidSchedule = errors.New("invalid schedule configuration")
)

// intervalPrefix marks an interval expression, e.g. "@every 1h30m".
const intervalPrefix = "@every "

// cronParser accepts standard five-field expressions with optional seconds.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Schedule describes when a workflow should be enqueued for execution.
// NextRunAt is derived and recomputed on every expression change and on
// resume; the scheduler daemon polls for due schedules by this field.
type Schedule struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id" validate:"required"`
	Type       ScheduleType   `json:"type"        validate:"required"`
	Expression string         `json:"expression,omitempty"`
	Timezone   string         `json:"timezone,omitempty"`
	RunAt      *time.Time     `json:"run_at,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	Enabled    bool           `json:"enabled"`
	Status     ScheduleStatus `json:"status"`
	NextRunAt  *time.Time     `json:"next_run_at,omitempty"`
	RunCount   int            `json:"run_count"`
	MaxRuns    int            `json:"max_runs,omitempty"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Validate checks that the expression matches the schedule type and parses.
func (s *Schedule) Validate() error {
	switch s.Type {
	case ScheduleTypeManual:
		return nil
	case ScheduleTypeOneTime:
		if s.RunAt == nil {
			return fmt.Errorf("%w: ONE_TIME schedule requires run_at", ErrInvalidSchedule)
		}

		return nil
	case ScheduleTypeCron:
		if _, err := s.location(); err != nil {
			return fmt.Errorf("%w: %v", ErrCronParse, err)
		}

		if _, err := cronParser.Parse(s.Expression); err != nil {
			return fmt.Errorf("%w: %v", ErrCronParse, err)
		}

		return nil
	case ScheduleTypeInterval:
		_, err := ParseInterval(s.Expression)

		return err
	default:
		return fmt.Errorf("%w: unknown schedule type %q", ErrInvalidSchedule, s.Type)
	}
}

// ComputeNextRun derives the next fire time relative to now. A nil result
// means the schedule will never fire again by itself: MANUAL schedules,
// ONE_TIME schedules whose instant already elapsed.
func (s *Schedule) ComputeNextRun(now time.Time) (*time.Time, error) {
	switch s.Type {
	case ScheduleTypeManual:
		return nil, nil
	case ScheduleTypeOneTime:
		if s.RunAt == nil || !s.RunAt.After(now) {
			return nil, nil
		}

		runAt := *s.RunAt

		return &runAt, nil
	case ScheduleTypeCron:
		loc, err := s.location()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCronParse, err)
		}

		sched, err := cronParser.Parse(s.Expression)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCronParse, err)
		}

		next := sched.Next(now.In(loc))

		return &next, nil
	case ScheduleTypeInterval:
		interval, err := ParseInterval(s.Expression)
		if err != nil {
			return nil, err
		}

		next := now.Add(interval)

		return &next, nil
	default:
		return nil, fmt.Errorf("%w: unknown schedule type %q", ErrInvalidSchedule, s.Type)
	}
}

// RefreshNextRun recomputes NextRunAt in place.
func (s *Schedule) RefreshNextRun(now time.Time) error {
	next, err := s.ComputeNextRun(now)
	if err != nil {
		return err
	}

	s.NextRunAt = next
	s.UpdatedAt = now.UTC()

	return nil
}

// NextRuns previews the next n fire times without mutating the schedule.
// ONE_TIME and MANUAL schedules yield at most one and zero entries.
func (s *Schedule) NextRuns(now time.Time, n int) ([]time.Time, error) {
	runs := make([]time.Time, 0, n)
	cursor := now

	for range n {
		next, err := s.ComputeNextRun(cursor)
		if err != nil {
			return nil, err
		}

		if next == nil {
			break
		}

		runs = append(runs, *next)
		cursor = *next
	}

	return runs, nil
}

// IsDue reports whether the schedule should fire at the given instant.
func (s *Schedule) IsDue(now time.Time) bool {
	return s.Enabled &&
		s.Status == ScheduleStatusActive &&
		s.NextRunAt != nil &&
		!s.NextRunAt.After(now)
}

// Exhausted reports whether max_runs or expires_at has been reached.
func (s *Schedule) Exhausted(now time.Time) bool {
	if s.MaxRuns > 0 && s.RunCount >= s.MaxRuns {
		return true
	}

	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

func (s *Schedule) location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}

	return time.LoadLocation(s.Timezone)
}

// ParseInterval parses an "@every" interval expression combining hours,
// minutes and seconds (e.g. "@every 1h30m", "@every 30s"). The total
// duration must be strictly positive. time.ParseDuration is used directly
// instead of the cron library's @every descriptor because the latter
// silently rounds sub-second values up and cannot reject zero.
func ParseInterval(expression string) (time.Duration, error) {
	if !strings.HasPrefix(expression, intervalPrefix) {
		return 0, fmt.Errorf("%w: interval expression must start with %q", ErrCronParse, intervalPrefix)
	}

	d, err := time.ParseDuration(strings.TrimSpace(strings.TrimPrefix(expression, intervalPrefix)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCronParse, err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("%w: interval must be positive, got %s", ErrCronParse, d)
	}

	return d, nil
}
