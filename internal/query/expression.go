package query

import "time"

// Field is a logical search field, already mapped to the column it is
// stored in.
type Field string

const (
	FieldType      Field = "calendar_object.icalendar_type"
	FieldUID       Field = "calendar_object.icalendar_uid"
	FieldSummary   Field = "calendar_object.summary"
	FieldOrganizer Field = "calendar_object.organizer"
)

// Expression is one node of a filter expression tree. The variant set is
// closed: nodes are built through the constructors below and compiled with
// an exhaustive switch in Compile.
type Expression interface {
	// Multi reports whether the node renders as multiple joined terms and
	// must be parenthesized when nested inside another expression.
	Multi() bool

	node()
}

type allExpression struct{}

type notExpression struct {
	child Expression
}

type andExpression struct {
	children []Expression
}

type orExpression struct {
	children []Expression
}

// timeRangeExpression bounds a query to a window. Fixed bounds are kept in
// UTC; the float variants carry the same bounds rendered as wall-clock time
// in the query's timezone, for matching against floating spans.
type timeRangeExpression struct {
	start      time.Time
	end        time.Time
	startFloat time.Time
	endFloat   time.Time
}

type matchOp int

const (
	opIs matchOp = iota
	opIsNot
	opContains
	opNotContains
	opStartsWith
	opNotStartsWith
	opEndsWith
	opNotEndsWith
)

type textMatchExpression struct {
	op    matchOp
	field Field
	value string
}

type setMatchExpression struct {
	negate bool
	field  Field
	values []string
}

func (allExpression) Multi() bool       { return false }
func (notExpression) Multi() bool       { return false }
func (e andExpression) Multi() bool     { return len(e.children) > 1 }
func (e orExpression) Multi() bool      { return len(e.children) > 1 }
func (timeRangeExpression) Multi() bool { return false }
func (textMatchExpression) Multi() bool { return false }
func (setMatchExpression) Multi() bool  { return false }

func (allExpression) node()       {}
func (notExpression) node()       {}
func (andExpression) node()       {}
func (orExpression) node()        {}
func (timeRangeExpression) node() {}
func (textMatchExpression) node() {}
func (setMatchExpression) node()  {}

// All matches every resource. Anywhere it appears in the tree, the whole
// compiled query collapses to an unconditional match.
func All() Expression {
	return allExpression{}
}

func Not(child Expression) Expression {
	return notExpression{child: child}
}

func And(children ...Expression) Expression {
	return andExpression{children: children}
}

func Or(children ...Expression) Expression {
	return orExpression{children: children}
}

// TimeRange bounds the query to [start, end). A zero time leaves that bound
// open; at least one bound must be set for the expression to compile. loc is
// the timezone floating spans are resolved against, defaulting to UTC.
func TimeRange(start, end time.Time, loc *time.Location) Expression {
	if loc == nil {
		loc = time.UTC
	}

	tr := timeRangeExpression{}
	if !start.IsZero() {
		tr.start = start.UTC()
		tr.startFloat = floatingTime(start, loc)
	}
	if !end.IsZero() {
		tr.end = end.UTC()
		tr.endFloat = floatingTime(end, loc)
	}

	return tr
}

func Is(field Field, value string) Expression {
	return textMatchExpression{op: opIs, field: field, value: value}
}

func IsNot(field Field, value string) Expression {
	return textMatchExpression{op: opIsNot, field: field, value: value}
}

func Contains(field Field, value string) Expression {
	return textMatchExpression{op: opContains, field: field, value: value}
}

func NotContains(field Field, value string) Expression {
	return textMatchExpression{op: opNotContains, field: field, value: value}
}

func StartsWith(field Field, value string) Expression {
	return textMatchExpression{op: opStartsWith, field: field, value: value}
}

func NotStartsWith(field Field, value string) Expression {
	return textMatchExpression{op: opNotStartsWith, field: field, value: value}
}

func EndsWith(field Field, value string) Expression {
	return textMatchExpression{op: opEndsWith, field: field, value: value}
}

func NotEndsWith(field Field, value string) Expression {
	return textMatchExpression{op: opNotEndsWith, field: field, value: value}
}

func In(field Field, values []string) Expression {
	return setMatchExpression{field: field, values: values}
}

func NotIn(field Field, values []string) Expression {
	return setMatchExpression{negate: true, field: field, values: values}
}

// floatingTime renders t as the wall-clock time it has in loc, restamped as
// UTC, which is how floating spans are stored.
func floatingTime(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), lt.Second(), 0, time.UTC)
}
