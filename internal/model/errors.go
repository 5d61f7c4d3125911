package model

import "errors"

var ErrNoRecord = errors.New("no record")
var ErrAlreadyExists = errors.New("entity already exists")

// Query compilation failures.
var ErrInvalidQuery = errors.New("invalid query")
var ErrUnsupportedExpression = errors.New("unsupported expression")

// ErrInvalidPeriod is returned for periods whose end precedes their start.
var ErrInvalidPeriod = errors.New("invalid period")

// ErrInvalidObject is returned for calendar data that cannot be parsed or
// has no schedulable component.
var ErrInvalidObject = errors.New("invalid calendar object")

// ErrTooManyMatches is returned when an aggregation exceeds the configured
// match limit.
var ErrTooManyMatches = errors.New("too many matches")
