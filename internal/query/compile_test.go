package query

import (
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calagora/freebusy-backend/internal/model"
)

func TestCompile_TextMatches(t *testing.T) {
	testCases := []struct {
		name       string
		expr       Expression
		wantClause string
		wantArgs   []interface{}
	}{
		{
			name:       "is",
			expr:       Is(FieldSummary, "Standup"),
			wantClause: " from calendar_object where calendar_object.summary = :1",
			wantArgs:   []interface{}{"Standup"},
		},
		{
			name:       "is not",
			expr:       IsNot(FieldType, "VTODO"),
			wantClause: " from calendar_object where calendar_object.icalendar_type != :1",
			wantArgs:   []interface{}{"VTODO"},
		},
		{
			name:       "contains",
			expr:       Contains(FieldSummary, "review"),
			wantClause: " from calendar_object where calendar_object.summary LIKE :1",
			wantArgs:   []interface{}{"%review%"},
		},
		{
			name:       "not contains",
			expr:       NotContains(FieldSummary, "review"),
			wantClause: " from calendar_object where calendar_object.summary NOT LIKE :1",
			wantArgs:   []interface{}{"%review%"},
		},
		{
			name:       "starts with",
			expr:       StartsWith(FieldUID, "12AB-"),
			wantClause: " from calendar_object where calendar_object.icalendar_uid LIKE :1",
			wantArgs:   []interface{}{"12AB-%"},
		},
		{
			name:       "not starts with",
			expr:       NotStartsWith(FieldUID, "12AB-"),
			wantClause: " from calendar_object where calendar_object.icalendar_uid NOT LIKE :1",
			wantArgs:   []interface{}{"12AB-%"},
		},
		{
			name:       "ends with",
			expr:       EndsWith(FieldOrganizer, "@example.com"),
			wantClause: " from calendar_object where calendar_object.organizer LIKE :1",
			wantArgs:   []interface{}{"%@example.com"},
		},
		{
			name:       "not ends with",
			expr:       NotEndsWith(FieldOrganizer, "@example.com"),
			wantClause: " from calendar_object where calendar_object.organizer NOT LIKE :1",
			wantArgs:   []interface{}{"%@example.com"},
		},
		{
			name:       "in keeps member order",
			expr:       In(FieldType, []string{"VEVENT", "VFREEBUSY", "VAVAILABILITY"}),
			wantClause: " from calendar_object where calendar_object.icalendar_type IN (:1, :2, :3)",
			wantArgs:   []interface{}{"VEVENT", "VFREEBUSY", "VAVAILABILITY"},
		},
		{
			name:       "not in",
			expr:       NotIn(FieldType, []string{"VTODO", "VJOURNAL"}),
			wantClause: " from calendar_object where calendar_object.icalendar_type NOT IN (:1, :2)",
			wantArgs:   []interface{}{"VTODO", "VJOURNAL"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clause, args, err := Compile(tc.expr, 0, 0, false)
			require.NoError(t, err)

			assert.Equal(t, tc.wantClause, clause)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

func TestCompile_Composites(t *testing.T) {
	testCases := []struct {
		name       string
		expr       Expression
		wantClause string
		wantArgs   []interface{}
	}{
		{
			name:       "and joins terms",
			expr:       And(Is(FieldType, "VEVENT"), Contains(FieldSummary, "sync")),
			wantClause: " from calendar_object where calendar_object.icalendar_type = :1 AND calendar_object.summary LIKE :2",
			wantArgs:   []interface{}{"VEVENT", "%sync%"},
		},
		{
			name:       "nested multi gets parens",
			expr:       And(Is(FieldType, "VEVENT"), Or(Contains(FieldSummary, "a"), Contains(FieldSummary, "b"))),
			wantClause: " from calendar_object where calendar_object.icalendar_type = :1 AND (calendar_object.summary LIKE :2 OR calendar_object.summary LIKE :3)",
			wantArgs:   []interface{}{"VEVENT", "%a%", "%b%"},
		},
		{
			name:       "single-child composite stays bare",
			expr:       Or(And(Is(FieldType, "VEVENT")), Is(FieldType, "VFREEBUSY")),
			wantClause: " from calendar_object where calendar_object.icalendar_type = :1 OR calendar_object.icalendar_type = :2",
			wantArgs:   []interface{}{"VEVENT", "VFREEBUSY"},
		},
		{
			name:       "not prefixes its operand",
			expr:       Not(Is(FieldType, "VTODO")),
			wantClause: " from calendar_object where NOT calendar_object.icalendar_type = :1",
			wantArgs:   []interface{}{"VTODO"},
		},
		{
			name:       "not parenthesizes multi operand",
			expr:       Not(And(Is(FieldType, "VEVENT"), Is(FieldUID, "u1"))),
			wantClause: " from calendar_object where NOT (calendar_object.icalendar_type = :1 AND calendar_object.icalendar_uid = :2)",
			wantArgs:   []interface{}{"VEVENT", "u1"},
		},
		{
			name:       "not nested in and",
			expr:       And(Not(Is(FieldType, "VTODO")), Is(FieldUID, "u1")),
			wantClause: " from calendar_object where NOT calendar_object.icalendar_type = :1 AND calendar_object.icalendar_uid = :2",
			wantArgs:   []interface{}{"VTODO", "u1"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clause, args, err := Compile(tc.expr, 0, 0, false)
			require.NoError(t, err)

			assert.Equal(t, tc.wantClause, clause)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

func TestCompile_CalendarScope(t *testing.T) {
	clause, args, err := Compile(Is(FieldSummary, "Standup"), 12, 0, false)
	require.NoError(t, err)

	assert.Equal(t, " from calendar_object where (calendar_object.summary = :1) AND calendar_object.calendar_resource_id = :2", clause)
	assert.Equal(t, []interface{}{"Standup", int64(12)}, args)
}

func TestCompile_TimeRange(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	start := time.Date(2019, 1, 1, 12, 0, 0, 0, time.UTC)
	end := time.Date(2019, 1, 1, 17, 0, 0, 0, time.UTC)
	startFloat := time.Date(2019, 1, 1, 7, 0, 0, 0, time.UTC)
	endFloat := time.Date(2019, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("both bounds", func(t *testing.T) {
		clause, args, err := Compile(TimeRange(start, end, loc), 0, 0, false)
		require.NoError(t, err)

		assert.Equal(t, " from calendar_object, time_range where"+
			" (((time_range.floating = FALSE AND time_range.start_date < :1 AND time_range.end_date > :2)"+
			" OR (time_range.floating = TRUE AND time_range.start_date < :3 AND time_range.end_date > :4)))"+
			" AND time_range.calendar_object_resource_id = calendar_object.resource_id", clause)
		assert.Equal(t, []interface{}{end, start, endFloat, startFloat}, args)
	})

	t.Run("start only tests span ends", func(t *testing.T) {
		clause, args, err := Compile(TimeRange(start, time.Time{}, loc), 0, 0, false)
		require.NoError(t, err)

		assert.Equal(t, " from calendar_object, time_range where"+
			" (((time_range.floating = FALSE AND time_range.end_date > :1)"+
			" OR (time_range.floating = TRUE AND time_range.end_date > :2)))"+
			" AND time_range.calendar_object_resource_id = calendar_object.resource_id", clause)
		assert.Equal(t, []interface{}{start, startFloat}, args)
	})

	t.Run("end only tests span starts", func(t *testing.T) {
		clause, args, err := Compile(TimeRange(time.Time{}, end, loc), 0, 0, false)
		require.NoError(t, err)

		assert.Equal(t, " from calendar_object, time_range where"+
			" (((time_range.floating = FALSE AND time_range.start_date < :1)"+
			" OR (time_range.floating = TRUE AND time_range.start_date < :2)))"+
			" AND time_range.calendar_object_resource_id = calendar_object.resource_id", clause)
		assert.Equal(t, []interface{}{end, endFloat}, args)
	})

	t.Run("no bounds fails", func(t *testing.T) {
		_, _, err := Compile(TimeRange(time.Time{}, time.Time{}, loc), 0, 0, false)
		assert.ErrorIs(t, err, model.ErrInvalidQuery)
	})

	t.Run("nil zone means floating equals utc", func(t *testing.T) {
		_, args, err := Compile(TimeRange(start, end, nil), 0, 0, false)
		require.NoError(t, err)

		assert.Equal(t, []interface{}{end, start, end, start}, args)
	})
}

func TestCompile_FreeBusyJoin(t *testing.T) {
	start := time.Date(2019, 3, 4, 9, 0, 0, 0, time.UTC)
	end := time.Date(2019, 3, 4, 18, 0, 0, 0, time.UTC)

	t.Run("span query binds user first and calendar last", func(t *testing.T) {
		expr := And(Is(FieldType, "VEVENT"), TimeRange(start, end, nil))

		clause, args, err := Compile(expr, 12, 77, true)
		require.NoError(t, err)

		assert.Equal(t, " from calendar_object, time_range LEFT OUTER JOIN transparency"+
			" ON (time_range.instance_id = transparency.time_range_instance_id AND transparency.user_id = :1) where"+
			" (calendar_object.icalendar_type = :2 AND"+
			" ((time_range.floating = FALSE AND time_range.start_date < :3 AND time_range.end_date > :4)"+
			" OR (time_range.floating = TRUE AND time_range.start_date < :5 AND time_range.end_date > :6)))"+
			" AND time_range.calendar_object_resource_id = calendar_object.resource_id"+
			" AND time_range.calendar_resource_id = :7", clause)
		assert.Equal(t, []interface{}{int64(77), "VEVENT", end, start, end, start, int64(12)}, args)
	})

	t.Run("no span query skips the join", func(t *testing.T) {
		clause, args, err := Compile(Is(FieldSummary, "Standup"), 0, 77, true)
		require.NoError(t, err)

		assert.Equal(t, " from calendar_object where calendar_object.summary = :1", clause)
		assert.Equal(t, []interface{}{"Standup"}, args)
	})
}

func TestCompile_AllShortCircuits(t *testing.T) {
	start := time.Date(2019, 3, 4, 9, 0, 0, 0, time.UTC)
	end := time.Date(2019, 3, 4, 18, 0, 0, 0, time.UTC)

	testCases := []struct {
		name string
		expr Expression
	}{
		{name: "bare", expr: All()},
		{name: "inside and", expr: And(Is(FieldType, "VEVENT"), All())},
		{name: "inside or", expr: Or(All(), TimeRange(start, end, nil))},
		{name: "under not", expr: Not(All())},
		{name: "deeply nested", expr: And(TimeRange(start, end, nil), Or(Is(FieldUID, "u"), And(Not(All()), Is(FieldSummary, "s"))))},
		{name: "beside invalid sibling", expr: Or(All(), And())},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clause, args, err := Compile(tc.expr, 12, 77, true)
			require.NoError(t, err)

			assert.Equal(t, " from calendar_object", clause)
			assert.Empty(t, args)
		})
	}
}

func TestCompile_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		expr Expression
	}{
		{name: "nil filter", expr: nil},
		{name: "empty and", expr: And()},
		{name: "empty or", expr: Or()},
		{name: "not without operand", expr: Not(nil)},
		{name: "nested empty composite", expr: And(Is(FieldType, "VEVENT"), Or())},
		{name: "empty membership set", expr: In(FieldType, nil)},
		{name: "nil child in composite", expr: And(Is(FieldType, "VEVENT"), nil)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Compile(tc.expr, 0, 0, false)
			assert.ErrorIs(t, err, model.ErrInvalidQuery)
		})
	}
}

type foreignExpression struct{}

func (foreignExpression) Multi() bool { return false }
func (foreignExpression) node()       {}

func TestCompile_UnknownNodeType(t *testing.T) {
	_, _, err := Compile(And(Is(FieldType, "VEVENT"), foreignExpression{}), 0, 0, false)
	assert.ErrorIs(t, err, model.ErrUnsupportedExpression)
}

var placeholderPattern = regexp.MustCompile(`:(\d+)`)

// Every placeholder written into a clause must line up with exactly one
// argument, in order, regardless of the expression shape.
func TestCompile_PlaceholderArgumentParity(t *testing.T) {
	start := time.Date(2019, 3, 4, 9, 0, 0, 0, time.UTC)
	end := time.Date(2019, 3, 4, 18, 0, 0, 0, time.UTC)

	exprs := map[string]Expression{
		"leaf":        Is(FieldSummary, "x"),
		"membership":  In(FieldType, []string{"VEVENT", "VTODO"}),
		"composite":   And(Is(FieldType, "VEVENT"), Or(Contains(FieldSummary, "a"), NotIn(FieldUID, []string{"u1", "u2", "u3"}))),
		"span":        TimeRange(start, end, nil),
		"mixed":       And(TimeRange(start, end, nil), Not(StartsWith(FieldUID, "12")), In(FieldOrganizer, []string{"a@x", "b@x"})),
		"open start":  TimeRange(time.Time{}, end, nil),
		"open end":    TimeRange(start, time.Time{}, nil),
		"match all":   All(),
		"all in tree": And(TimeRange(start, end, nil), All()),
	}

	for _, freebusy := range []bool{false, true} {
		for _, calendarID := range []int64{0, 12} {
			for name, expr := range exprs {
				clause, args, err := Compile(expr, calendarID, 77, freebusy)
				require.NoError(t, err, name)

				matches := placeholderPattern.FindAllStringSubmatch(clause, -1)
				require.Len(t, matches, len(args), "placeholder count for %q: %s", name, clause)

				for i, m := range matches {
					n, err := strconv.Atoi(m[1])
					require.NoError(t, err)
					assert.Equal(t, i+1, n, "placeholder order for %q: %s", name, clause)
				}
			}
		}
	}
}
