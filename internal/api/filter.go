package api

import (
	"fmt"
	"time"

	"github.com/calagora/freebusy-backend/internal/pkg/validator"
	"github.com/calagora/freebusy-backend/internal/query"
)

// filterNode is the JSON form of one expression tree node. Which fields
// matter depends on the operation.
type filterNode struct {
	Op       string        `json:"op"`
	Field    string        `json:"field,omitempty"`
	Value    string        `json:"value,omitempty"`
	Values   []string      `json:"values,omitempty"`
	Start    string        `json:"start,omitempty"`
	End      string        `json:"end,omitempty"`
	Timezone string        `json:"timezone,omitempty"`
	Child    *filterNode   `json:"child,omitempty"`
	Children []*filterNode `json:"children,omitempty"`
}

var filterFields = map[string]query.Field{
	"uid":       query.FieldUID,
	"type":      query.FieldType,
	"summary":   query.FieldSummary,
	"organizer": query.FieldOrganizer,
}

var filterTextOps = map[string]func(query.Field, string) query.Expression{
	"equals":          query.Is,
	"not-equals":      query.IsNot,
	"contains":        query.Contains,
	"not-contains":    query.NotContains,
	"starts-with":     query.StartsWith,
	"not-starts-with": query.NotStartsWith,
	"ends-with":       query.EndsWith,
	"not-ends-with":   query.NotEndsWith,
}

// buildFilter maps a JSON filter tree onto a query expression, collecting
// every problem into v under a dotted path, e.g. filter.children[1].field.
// The returned expression is only meaningful when v stays valid.
func buildFilter(node *filterNode, v *validator.Validator, path string) query.Expression {
	if node == nil {
		v.AddError(path, "filter node must be provided")
		return nil
	}

	switch node.Op {
	case "all":
		return query.All()

	case "not":
		if node.Child == nil {
			v.AddError(path+".child", "not requires a child")
			return nil
		}
		return query.Not(buildFilter(node.Child, v, path+".child"))

	case "and", "or":
		if len(node.Children) == 0 {
			v.AddError(path+".children", node.Op+" requires at least one child")
			return nil
		}

		children := make([]query.Expression, len(node.Children))
		for i, child := range node.Children {
			children[i] = buildFilter(child, v, fmt.Sprintf("%s.children[%d]", path, i))
		}

		if node.Op == "and" {
			return query.And(children...)
		}
		return query.Or(children...)

	case "time-range":
		return buildTimeRangeFilter(node, v, path)

	case "in", "not-in":
		field, ok := filterFields[node.Field]
		if !ok {
			v.AddError(path+".field", fmt.Sprintf("unknown field %q", node.Field))
			return nil
		}
		if len(node.Values) == 0 {
			v.AddError(path+".values", node.Op+" requires values")
			return nil
		}

		if node.Op == "in" {
			return query.In(field, node.Values)
		}
		return query.NotIn(field, node.Values)

	default:
		ctor, ok := filterTextOps[node.Op]
		if !ok {
			v.AddError(path+".op", fmt.Sprintf("unknown operation %q", node.Op))
			return nil
		}

		field, ok := filterFields[node.Field]
		if !ok {
			v.AddError(path+".field", fmt.Sprintf("unknown field %q", node.Field))
			return nil
		}
		if node.Value == "" {
			v.AddError(path+".value", "value must be provided")
			return nil
		}

		return ctor(field, node.Value)
	}
}

func buildTimeRangeFilter(node *filterNode, v *validator.Validator, path string) query.Expression {
	var start, end time.Time
	var err error

	if node.Start != "" {
		start, err = parseICalTime(node.Start)
		if err != nil {
			v.AddError(path+".start", "start must be a UTC timestamp like 20240301T000000Z")
			return nil
		}
	}

	if node.End != "" {
		end, err = parseICalTime(node.End)
		if err != nil {
			v.AddError(path+".end", "end must be a UTC timestamp like 20240301T000000Z")
			return nil
		}
	}

	if node.Start == "" && node.End == "" {
		v.AddError(path, "time-range requires start or end")
		return nil
	}

	loc := time.UTC
	if node.Timezone != "" {
		loc, err = time.LoadLocation(node.Timezone)
		if err != nil {
			v.AddError(path+".timezone", fmt.Sprintf("unknown timezone %q", node.Timezone))
			return nil
		}
	}

	return query.TimeRange(start, end, loc)
}
