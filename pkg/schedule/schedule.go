package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule computes the next firing time. Its method set matches
// cron.Schedule, so any Schedule can be handed to a cron runner directly.
type Schedule interface {
	Next(from time.Time) time.Time
}

var _ cron.Schedule = Schedule(nil)

var standardParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

var secondsParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// everySchedule runs at fixed intervals.
type everySchedule struct {
	interval time.Duration
}

// Every creates a schedule that runs at fixed intervals.
func Every(d time.Duration) Schedule {
	return &everySchedule{interval: d}
}

func (s *everySchedule) Next(from time.Time) time.Time {
	return from.Add(s.interval)
}

func (s *everySchedule) String() string {
	return "every " + s.interval.String()
}

// dailySchedule runs at a specific time each day.
type dailySchedule struct {
	hour   int
	minute int
	loc    *time.Location
}

// Daily creates a schedule that runs at a specific time each day, in UTC.
func Daily(hour, minute int) Schedule {
	return DailyIn(hour, minute, time.UTC)
}

// DailyIn is Daily evaluated in loc.
func DailyIn(hour, minute int, loc *time.Location) Schedule {
	if loc == nil {
		loc = time.UTC
	}
	return &dailySchedule{hour: hour, minute: minute, loc: loc}
}

func (s *dailySchedule) Next(from time.Time) time.Time {
	from = from.In(s.loc)
	next := time.Date(from.Year(), from.Month(), from.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *dailySchedule) String() string {
	return fmt.Sprintf("daily at %02d:%02d %s", s.hour, s.minute, s.loc)
}

// weeklySchedule runs at a specific day and time each week.
type weeklySchedule struct {
	day    time.Weekday
	hour   int
	minute int
	loc    *time.Location
}

// Weekly creates a schedule that runs at a specific day and time each week, in UTC.
func Weekly(day time.Weekday, hour, minute int) Schedule {
	return &weeklySchedule{day: day, hour: hour, minute: minute, loc: time.UTC}
}

func (s *weeklySchedule) Next(from time.Time) time.Time {
	from = from.In(s.loc)

	daysUntil := int(s.day - from.Weekday())
	if daysUntil < 0 {
		daysUntil += 7
	}

	next := time.Date(from.Year(), from.Month(), from.Day()+daysUntil, s.hour, s.minute, 0, 0, s.loc)
	if !next.After(from) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func (s *weeklySchedule) String() string {
	return fmt.Sprintf("weekly on %s at %02d:%02d %s", s.day, s.hour, s.minute, s.loc)
}

// cronSchedule wraps a parsed cron expression.
type cronSchedule struct {
	expr     string
	schedule cron.Schedule
}

// Cron creates a schedule from a five-field cron expression or a descriptor
// such as "@hourly". It panics on an invalid expression; use ParseCron for
// expressions that come from configuration.
func Cron(expr string) Schedule {
	s, err := ParseCron(expr)
	if err != nil {
		panic("invalid cron expression: " + err.Error())
	}
	return s
}

// ParseCron parses a five-field cron expression or descriptor.
func ParseCron(expr string) (Schedule, error) {
	return parse(standardParser, expr)
}

// ParseCronWithSeconds also accepts an optional leading seconds field.
func ParseCronWithSeconds(expr string) (Schedule, error) {
	return parse(secondsParser, expr)
}

func parse(p cron.Parser, expr string) (Schedule, error) {
	s, err := p.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", expr, err)
	}
	return &cronSchedule{expr: expr, schedule: s}, nil
}

func (s *cronSchedule) Next(from time.Time) time.Time {
	return s.schedule.Next(from)
}

func (s *cronSchedule) String() string {
	return "cron " + s.expr
}
