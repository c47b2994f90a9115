package models

import (
	"sort"
	"strings"
	"time"
)

// ReminderOption selects how a stored decision is judged stale.
type ReminderOption string

const (
	// OptionAlways re-prompts on every access.
	OptionAlways ReminderOption = "ALWAYS"
	// OptionAttributeName re-prompts when the released attribute names change.
	OptionAttributeName ReminderOption = "ATTRIBUTE_NAME"
	// OptionAttributeValue re-prompts when any released name or value changes.
	OptionAttributeValue ReminderOption = "ATTRIBUTE_VALUE"
	// OptionDays re-prompts when names change or the reminder period elapses.
	OptionDays ReminderOption = "DAYS"
)

// ValidReminderOptions is the single source of truth for all reminder options.
var ValidReminderOptions = map[ReminderOption]bool{
	OptionAlways:         true,
	OptionAttributeName:  true,
	OptionAttributeValue: true,
	OptionDays:           true,
}

// IsValid checks if the option is one of the supported enum values.
func (o ReminderOption) IsValid() bool {
	return ValidReminderOptions[o]
}

// ParseReminderOption accepts the enum name in any case.
func ParseReminderOption(s string) (ReminderOption, bool) {
	o := ReminderOption(strings.ToUpper(strings.TrimSpace(s)))
	return o, o.IsValid()
}

// TimeUnit is the unit a DAYS reminder is counted in.
type TimeUnit string

const (
	UnitSeconds TimeUnit = "SECONDS"
	UnitMinutes TimeUnit = "MINUTES"
	UnitHours   TimeUnit = "HOURS"
	UnitDays    TimeUnit = "DAYS"
	UnitWeeks   TimeUnit = "WEEKS"
	UnitMonths  TimeUnit = "MONTHS"
)

// IsValid checks if the unit is one of the supported enum values.
func (u TimeUnit) IsValid() bool {
	switch u {
	case UnitSeconds, UnitMinutes, UnitHours, UnitDays, UnitWeeks, UnitMonths:
		return true
	}
	return false
}

// ParseTimeUnit accepts the enum name in any case.
func ParseTimeUnit(s string) (TimeUnit, bool) {
	u := TimeUnit(strings.ToUpper(strings.TrimSpace(s)))
	return u, u.IsValid()
}

// maxReminderYears bounds how far ahead a reminder can fall.
const maxReminderYears = 100

// MaxReminder is the largest reminder count accepted for u, about one
// hundred years. Every bound fits time.Duration and int arithmetic.
func (u TimeUnit) MaxReminder() int64 {
	switch u {
	case UnitSeconds:
		return maxReminderYears * 366 * 24 * 60 * 60
	case UnitMinutes:
		return maxReminderYears * 366 * 24 * 60
	case UnitHours:
		return maxReminderYears * 366 * 24
	case UnitWeeks:
		return maxReminderYears * 53
	case UnitMonths:
		return maxReminderYears * 12
	default:
		return maxReminderYears * 366
	}
}

// AddTo returns t moved forward by n units, with n clamped to
// [0, MaxReminder]. Day-based units use calendar arithmetic so a reminder
// keeps its wall-clock time across DST changes.
func (u TimeUnit) AddTo(t time.Time, n int64) time.Time {
	n = max(0, min(n, u.MaxReminder()))
	switch u {
	case UnitSeconds:
		return t.Add(time.Duration(n) * time.Second)
	case UnitMinutes:
		return t.Add(time.Duration(n) * time.Minute)
	case UnitHours:
		return t.Add(time.Duration(n) * time.Hour)
	case UnitWeeks:
		return t.AddDate(0, 0, int(n)*7)
	case UnitMonths:
		return t.AddDate(0, int(n), 0)
	default:
		return t.AddDate(0, 0, int(n))
	}
}

// AttributeMap is the set of attributes a relying service is about to receive,
// keyed by attribute name. Values are treated as an unordered set.
type AttributeMap map[string][]string

// Names returns the attribute names in sorted order.
func (a AttributeMap) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SameNames reports whether two sorted name lists hold the same names.
func SameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
