package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/calagora/freebusy-backend/internal/model"
)

const (
	fromKeyword  = " from "
	whereKeyword = " where "

	resourceDB     = "calendar_object"
	timespanDB     = "time_range"
	transparencyDB = "transparency"

	notOp = "NOT "
	andOp = " AND "
	orOp  = " OR "

	isOp      = " = "
	isNotOp   = " != "
	likeOp    = " LIKE "
	notLikeOp = " NOT LIKE "
	inOp      = " IN "
	notInOp   = " NOT IN "

	// Span overlap tests. Fixed spans compare against the UTC bounds,
	// floating spans against the wall-clock bounds, each %s slot consuming
	// one placeholder.
	timespanTest = "((time_range.floating = FALSE AND time_range.start_date < %s AND time_range.end_date > %s)" +
		" OR (time_range.floating = TRUE AND time_range.start_date < %s AND time_range.end_date > %s))"
	timespanTestNoEnd = "((time_range.floating = FALSE AND time_range.end_date > %s)" +
		" OR (time_range.floating = TRUE AND time_range.end_date > %s))"
	timespanTestNoStart = "((time_range.floating = FALSE AND time_range.start_date < %s)" +
		" OR (time_range.floating = TRUE AND time_range.start_date < %s))"

	// Argument 1 is always the requesting user when this join is emitted.
	transparencyJoinPiece = ", time_range LEFT OUTER JOIN transparency" +
		" ON (time_range.instance_id = transparency.time_range_instance_id AND transparency.user_id = :1)"
	timespanJoinPiece = ", time_range"

	resourceTailPiece = " AND time_range.calendar_object_resource_id = calendar_object.resource_id"

	spanScopePiece     = " AND time_range.calendar_resource_id = "
	resourceScopePiece = " AND calendar_object.calendar_resource_id = "
)

type compiler struct {
	sout         strings.Builder
	args         []interface{}
	usedTimespan bool
}

// Compile turns a filter expression into the FROM/WHERE clause of an index
// query plus its bound arguments, in placeholder order. Placeholders are
// written as :N with 1-based positions into args. calendarID scopes the
// query to one calendar when non-zero. In freebusy mode a query that tests
// spans joins each span against userID's transparency overrides, with the
// user bound as the first argument.
func Compile(expr Expression, calendarID int64, userID int64, freebusy bool) (string, []interface{}, error) {
	if expr == nil {
		return "", nil, fmt.Errorf("compile empty filter: %w", model.ErrInvalidQuery)
	}

	// All anywhere in the tree overrides every sibling and ancestor, so the
	// query collapses to an unconditional match before any clause is built.
	if containsAll(expr) {
		return fromKeyword + resourceDB, nil, nil
	}

	c := &compiler{}
	if freebusy && usesTimeRange(expr) {
		c.args = append(c.args, userID)
	}

	if err := c.generate(expr); err != nil {
		return "", nil, err
	}

	var sel strings.Builder
	sel.WriteString(fromKeyword)
	sel.WriteString(resourceDB)
	if c.usedTimespan {
		if freebusy {
			sel.WriteString(transparencyJoinPiece)
		} else {
			sel.WriteString(timespanJoinPiece)
		}
	}
	sel.WriteString(whereKeyword)

	wrap := c.usedTimespan || calendarID != 0
	if wrap {
		sel.WriteString("(")
	}
	sel.WriteString(c.sout.String())
	if wrap {
		sel.WriteString(")")
	}

	if c.usedTimespan {
		sel.WriteString(resourceTailPiece)
		if calendarID != 0 {
			sel.WriteString(spanScopePiece)
			sel.WriteString(c.placeholder(calendarID))
		}
	} else if calendarID != 0 {
		sel.WriteString(resourceScopePiece)
		sel.WriteString(c.placeholder(calendarID))
	}

	return sel.String(), c.args, nil
}

// placeholder appends arg and returns the :N token bound to it.
func (c *compiler) placeholder(arg interface{}) string {
	c.args = append(c.args, arg)
	return ":" + strconv.Itoa(len(c.args))
}

func (c *compiler) generate(expr Expression) error {
	switch e := expr.(type) {
	case nil:
		return fmt.Errorf("empty subexpression: %w", model.ErrInvalidQuery)

	case allExpression:
		// Compile collapses any tree containing All before descending, so a
		// visit here means the tree was not screened.
		return fmt.Errorf("all in subexpression: %w", model.ErrInvalidQuery)

	case notExpression:
		if e.child == nil {
			return fmt.Errorf("not without operand: %w", model.ErrInvalidQuery)
		}
		c.sout.WriteString(notOp)
		return c.generateSub(e.child)

	case andExpression:
		return c.generateLogic(e.children, andOp)

	case orExpression:
		return c.generateLogic(e.children, orOp)

	case timeRangeExpression:
		switch {
		case !e.start.IsZero() && !e.end.IsZero():
			fmt.Fprintf(&c.sout, timespanTest,
				c.placeholder(e.end), c.placeholder(e.start),
				c.placeholder(e.endFloat), c.placeholder(e.startFloat))
		case !e.start.IsZero():
			fmt.Fprintf(&c.sout, timespanTestNoEnd,
				c.placeholder(e.start), c.placeholder(e.startFloat))
		case !e.end.IsZero():
			fmt.Fprintf(&c.sout, timespanTestNoStart,
				c.placeholder(e.end), c.placeholder(e.endFloat))
		default:
			return fmt.Errorf("time range without bounds: %w", model.ErrInvalidQuery)
		}
		c.usedTimespan = true
		return nil

	case textMatchExpression:
		c.sout.WriteString(string(e.field))
		c.sout.WriteString(textOps[e.op])
		c.sout.WriteString(c.placeholder(matchPattern(e.op, e.value)))
		return nil

	case setMatchExpression:
		if len(e.values) == 0 {
			return fmt.Errorf("empty membership set: %w", model.ErrInvalidQuery)
		}
		c.sout.WriteString(string(e.field))
		if e.negate {
			c.sout.WriteString(notInOp)
		} else {
			c.sout.WriteString(inOp)
		}
		c.sout.WriteString("(")
		for i, v := range e.values {
			if i > 0 {
				c.sout.WriteString(", ")
			}
			c.sout.WriteString(c.placeholder(v))
		}
		c.sout.WriteString(")")
		return nil

	default:
		return fmt.Errorf("%T: %w", expr, model.ErrUnsupportedExpression)
	}
}

func (c *compiler) generateLogic(children []Expression, op string) error {
	if len(children) == 0 {
		return fmt.Errorf("composite without operands: %w", model.ErrInvalidQuery)
	}

	for i, child := range children {
		if i > 0 {
			c.sout.WriteString(op)
		}
		if err := c.generateSub(child); err != nil {
			return err
		}
	}

	return nil
}

// generateSub parenthesizes nested multi-term expressions.
func (c *compiler) generateSub(expr Expression) error {
	if expr == nil {
		return fmt.Errorf("empty subexpression: %w", model.ErrInvalidQuery)
	}

	multi := expr.Multi()
	if multi {
		c.sout.WriteString("(")
	}
	if err := c.generate(expr); err != nil {
		return err
	}
	if multi {
		c.sout.WriteString(")")
	}

	return nil
}

var textOps = map[matchOp]string{
	opIs:            isOp,
	opIsNot:         isNotOp,
	opContains:      likeOp,
	opNotContains:   notLikeOp,
	opStartsWith:    likeOp,
	opNotStartsWith: notLikeOp,
	opEndsWith:      likeOp,
	opNotEndsWith:   notLikeOp,
}

// matchPattern wraps the raw value with the wildcards the operator implies.
func matchPattern(op matchOp, value string) string {
	switch op {
	case opContains, opNotContains:
		return "%" + value + "%"
	case opStartsWith, opNotStartsWith:
		return value + "%"
	case opEndsWith, opNotEndsWith:
		return "%" + value
	default:
		return value
	}
}

// MatchesAll reports whether the expression matches every resource, in which
// case callers can skip the compiled scan and list the collection directly.
func MatchesAll(expr Expression) bool {
	return expr != nil && containsAll(expr)
}

func containsAll(expr Expression) bool {
	switch e := expr.(type) {
	case allExpression:
		return true
	case notExpression:
		return e.child != nil && containsAll(e.child)
	case andExpression:
		for _, child := range e.children {
			if child != nil && containsAll(child) {
				return true
			}
		}
	case orExpression:
		for _, child := range e.children {
			if child != nil && containsAll(child) {
				return true
			}
		}
	}

	return false
}

func usesTimeRange(expr Expression) bool {
	switch e := expr.(type) {
	case timeRangeExpression:
		return true
	case notExpression:
		return e.child != nil && usesTimeRange(e.child)
	case andExpression:
		for _, child := range e.children {
			if child != nil && usesTimeRange(child) {
				return true
			}
		}
	case orExpression:
		for _, child := range e.children {
			if child != nil && usesTimeRange(child) {
				return true
			}
		}
	}

	return false
}
