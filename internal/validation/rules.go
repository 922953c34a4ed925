package validation

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/specialistvlad/formwright/internal/config"
	"github.com/specialistvlad/formwright/internal/value"
)

// Rule checks one field value against one constraint's parameters. It
// returns false plus a human-readable message on violation.
type Rule func(v cty.Value, params config.RuleParams) (ok bool, message string)

// rules is the capability-keyed rule table, populated at startup.
var rules = map[string]Rule{
	"required": ruleRequired,
	"min":      ruleMin,
	"max":      ruleMax,
	"min_len":  ruleMinLen,
	"max_len":  ruleMaxLen,
	"pattern":  rulePattern,
	"one_of":   ruleOneOf,
	"date":     ruleDate,
}

// RegisterRule adds a validation rule to the table. A duplicate name is a
// programmer error.
func RegisterRule(name string, rule Rule) {
	if _, exists := rules[name]; exists {
		panic(fmt.Sprintf("validation rule %q already registered", name))
	}
	rules[name] = rule
}

// lookupRule resolves a rule key from the table.
func lookupRule(name string) (Rule, bool) {
	r, ok := rules[name]
	return r, ok
}

// skippable reports whether a value is exempt from every rule except
// `required`: null values are handled by `required` alone, and error-marked
// values already surface through the field's error status.
func skippable(v cty.Value) bool {
	v, _ = v.UnmarkDeep()
	return v.IsNull() || !v.IsWhollyKnown()
}

func ruleRequired(v cty.Value, _ config.RuleParams) (bool, string) {
	unmarked, _ := v.UnmarkDeep()
	if unmarked.IsNull() {
		return false, "value is required"
	}
	if unmarked.IsKnown() && unmarked.Type() == cty.String && unmarked.AsString() == "" {
		return false, "value is required"
	}
	return true, ""
}

func ruleMin(v cty.Value, params config.RuleParams) (bool, string) {
	if skippable(v) || params.Min == nil {
		return true, ""
	}
	n, err := convert.Convert(v, cty.Number)
	if err != nil {
		return true, ""
	}
	if n.LessThan(*params.Min).True() {
		return false, fmt.Sprintf("value is below the minimum %s", params.Min.AsBigFloat().String())
	}
	return true, ""
}

func ruleMax(v cty.Value, params config.RuleParams) (bool, string) {
	if skippable(v) || params.Max == nil {
		return true, ""
	}
	n, err := convert.Convert(v, cty.Number)
	if err != nil {
		return true, ""
	}
	if n.GreaterThan(*params.Max).True() {
		return false, fmt.Sprintf("value is above the maximum %s", params.Max.AsBigFloat().String())
	}
	return true, ""
}

func ruleMinLen(v cty.Value, params config.RuleParams) (bool, string) {
	if skippable(v) || params.MinLen == nil || v.Type() != cty.String {
		return true, ""
	}
	if utf8.RuneCountInString(v.AsString()) < *params.MinLen {
		return false, fmt.Sprintf("value is shorter than %d characters", *params.MinLen)
	}
	return true, ""
}

func ruleMaxLen(v cty.Value, params config.RuleParams) (bool, string) {
	if skippable(v) || params.MaxLen == nil || v.Type() != cty.String {
		return true, ""
	}
	if utf8.RuneCountInString(v.AsString()) > *params.MaxLen {
		return false, fmt.Sprintf("value is longer than %d characters", *params.MaxLen)
	}
	return true, ""
}

func rulePattern(v cty.Value, params config.RuleParams) (bool, string) {
	if skippable(v) || params.Pattern == "" || v.Type() != cty.String {
		return true, ""
	}
	re, err := regexp.Compile(params.Pattern)
	if err != nil {
		// Engine construction validates patterns; an unparseable pattern
		// here is a bug upstream.
		panic(fmt.Sprintf("validation: invalid pattern %q: %v", params.Pattern, err))
	}
	if !re.MatchString(v.AsString()) {
		return false, fmt.Sprintf("value does not match pattern %q", params.Pattern)
	}
	return true, ""
}

func ruleOneOf(v cty.Value, params config.RuleParams) (bool, string) {
	if skippable(v) || len(params.OneOf) == 0 {
		return true, ""
	}
	for _, allowed := range params.OneOf {
		if value.Equal(v, allowed) {
			return true, ""
		}
	}
	return false, "value is not among the allowed values"
}

func ruleDate(v cty.Value, _ config.RuleParams) (bool, string) {
	if skippable(v) || v.Type() != cty.String {
		return true, ""
	}
	if _, err := time.Parse(value.DateLayout, v.AsString()); err != nil {
		return false, fmt.Sprintf("value is not a valid %s date", value.DateLayout)
	}
	return true, ""
}
