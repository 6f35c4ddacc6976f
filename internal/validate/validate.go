// Package validate builds grid.Validator values: combinators over plain
// functions and rule sets written as go-playground/validator tags.
package validate

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/banshee-data/flaggrid/internal/grid"
)

// Func adapts a closure to grid.Validator.
type Func = grid.ValidatorFunc

// All accepts a write only when every validator accepts it. Validators run
// in order and stop at the first rejection. All() accepts everything.
func All(vs ...grid.Validator) grid.Validator {
	return Func(func(c grid.Coord, v bool) bool {
		for _, x := range vs {
			if !x.Accept(c, v) {
				return false
			}
		}
		return true
	})
}

// Any accepts a write when at least one validator accepts it. Any() rejects
// everything.
func Any(vs ...grid.Validator) grid.Validator {
	return Func(func(c grid.Coord, v bool) bool {
		for _, x := range vs {
			if x.Accept(c, v) {
				return true
			}
		}
		return false
	})
}

// Not inverts v.
func Not(v grid.Validator) grid.Validator {
	return Func(func(c grid.Coord, value bool) bool { return !v.Accept(c, value) })
}

// OnlyClearing accepts writes of false and rejects writes of true.
func OnlyClearing() grid.Validator {
	return Func(func(_ grid.Coord, v bool) bool { return !v })
}

// Rules constrains a write with validator tag expressions, one per field of
// the candidate. Empty expressions are skipped.
//
//	Rules{Row: "gte=2,lte=5", Value: "eq=true"}
//
// In addition to the built-in tags, "multiple=N" accepts integers divisible
// by N.
type Rules struct {
	Row   string `json:"row,omitempty" yaml:"row,omitempty"`
	Col   string `json:"col,omitempty" yaml:"col,omitempty"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// RuleValidator is a compiled Rules.
type RuleValidator struct {
	rules    Rules
	validate *validator.Validate
}

// Compile checks every expression in r and returns a validator for it.
// A malformed expression is reported here rather than on the first write.
func Compile(r Rules) (*RuleValidator, error) {
	v := validator.New()
	if err := v.RegisterValidation("multiple", validateMultiple); err != nil {
		return nil, fmt.Errorf("register multiple: %w", err)
	}
	rv := &RuleValidator{rules: r, validate: v}
	for _, probe := range []struct {
		name, tag string
		zero      any
	}{
		{"row", r.Row, 0},
		{"col", r.Col, 0},
		{"value", r.Value, false},
	} {
		if err := rv.probe(probe.tag, probe.zero); err != nil {
			return nil, fmt.Errorf("compile %s rule %q: %w", probe.name, probe.tag, err)
		}
	}
	return rv, nil
}

// probe runs tag once against a zero value. The validator panics on
// unknown tags and bad parameters.
func (rv *RuleValidator) probe(tag string, zero any) (err error) {
	if tag == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	if verr := rv.validate.Var(zero, tag); verr != nil {
		if _, ok := verr.(validator.ValidationErrors); !ok {
			return verr
		}
	}
	return nil
}

// Accept implements grid.Validator.
func (rv *RuleValidator) Accept(c grid.Coord, value bool) bool {
	return rv.check(c.Row, rv.rules.Row) &&
		rv.check(c.Col, rv.rules.Col) &&
		rv.check(value, rv.rules.Value)
}

func (rv *RuleValidator) check(field any, tag string) bool {
	if tag == "" {
		return true
	}
	return rv.validate.Var(field, tag) == nil
}

// Rules returns the expressions rv was compiled from.
func (rv *RuleValidator) Rules() Rules { return rv.rules }

func validateMultiple(fl validator.FieldLevel) bool {
	n, err := strconv.ParseInt(fl.Param(), 10, 64)
	if err != nil || n == 0 {
		panic(fmt.Sprintf("multiple: bad parameter %q", fl.Param()))
	}
	return fl.Field().Int()%n == 0
}
