package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/formwright/internal/config"
	"github.com/specialistvlad/formwright/internal/fieldstore"
	"github.com/specialistvlad/formwright/internal/value"
)

// fixture builds a store plus engine over a single text field "name" and a
// single number field "amount" with the given constraints.
func fixture(t *testing.T, constraints ...*config.ConstraintDef) (*fieldstore.Store, *Engine) {
	t.Helper()
	model := &config.Model{
		Fields: map[string]*config.FieldDef{
			"name":   {ID: "name", Kind: value.Text},
			"amount": {ID: "amount", Kind: value.Number},
		},
		Constraints: constraints,
	}
	store := fieldstore.New(model)
	engine, err := NewEngine(model)
	require.NoError(t, err)
	return store, engine
}

func TestRules(t *testing.T) {
	intVal := func(n int64) *cty.Value { v := cty.NumberIntVal(n); return &v }
	lenVal := func(n int) *int { return &n }

	cases := []struct {
		name    string
		rule    string
		params  config.RuleParams
		value   cty.Value
		ok      bool
		message string
	}{
		{name: "required passes on value", rule: "required", value: cty.StringVal("x"), ok: true},
		{name: "required fails on null", rule: "required", value: cty.NullVal(cty.String), ok: false, message: "value is required"},
		{name: "required fails on empty string", rule: "required", value: cty.StringVal(""), ok: false},
		{name: "min passes at bound", rule: "min", params: config.RuleParams{Min: intVal(3)}, value: cty.NumberIntVal(3), ok: true},
		{name: "min fails below bound", rule: "min", params: config.RuleParams{Min: intVal(3)}, value: cty.NumberIntVal(2), ok: false},
		{name: "min skips null", rule: "min", params: config.RuleParams{Min: intVal(3)}, value: cty.NullVal(cty.Number), ok: true},
		{name: "max fails above bound", rule: "max", params: config.RuleParams{Max: intVal(10)}, value: cty.NumberIntVal(11), ok: false},
		{name: "min_len fails on short text", rule: "min_len", params: config.RuleParams{MinLen: lenVal(3)}, value: cty.StringVal("ab"), ok: false},
		{name: "max_len fails on long text", rule: "max_len", params: config.RuleParams{MaxLen: lenVal(3)}, value: cty.StringVal("abcd"), ok: false},
		{name: "pattern passes on match", rule: "pattern", params: config.RuleParams{Pattern: `^\d+$`}, value: cty.StringVal("123"), ok: true},
		{name: "pattern fails on mismatch", rule: "pattern", params: config.RuleParams{Pattern: `^\d+$`}, value: cty.StringVal("12a"), ok: false},
		{name: "one_of passes on member", rule: "one_of", params: config.RuleParams{OneOf: []cty.Value{cty.StringVal("a"), cty.StringVal("b")}}, value: cty.StringVal("b"), ok: true},
		{name: "one_of fails on non-member", rule: "one_of", params: config.RuleParams{OneOf: []cty.Value{cty.StringVal("a")}}, value: cty.StringVal("z"), ok: false},
		{name: "date passes on canonical layout", rule: "date", value: cty.StringVal("2024-06-30"), ok: true},
		{name: "date fails on other layouts", rule: "date", value: cty.StringVal("30.06.2024"), ok: false},
		{name: "rules skip error-marked values", rule: "max", params: config.RuleParams{Max: intVal(1)}, value: value.ErrorVal(cty.Number, "boom"), ok: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule, found := lookupRule(tc.rule)
			require.True(t, found)
			ok, message := rule(tc.value, tc.params)
			assert.Equal(t, tc.ok, ok)
			if tc.message != "" {
				assert.Equal(t, tc.message, message)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("aggregates violations with severity", func(t *testing.T) {
		max := cty.NumberIntVal(10)
		store, engine := fixture(t,
			&config.ConstraintDef{ID: "name_required", FieldID: "name", Rule: "required", Severity: config.SeverityError},
			&config.ConstraintDef{ID: "amount_max", FieldID: "amount", Rule: "max", Severity: config.SeverityWarning, Params: config.RuleParams{Max: &max}},
		)
		require.NoError(t, store.Set("amount", cty.NumberIntVal(50)))

		result := engine.Validate(store)
		require.Len(t, result.Violations, 2)
		assert.True(t, result.BlocksWorkflow(), "error severity blocks")
		assert.Len(t, result.ForField("amount"), 1)
	})

	t.Run("warning-only violations never block", func(t *testing.T) {
		store, engine := fixture(t,
			&config.ConstraintDef{ID: "name_required", FieldID: "name", Rule: "required", Severity: config.SeverityWarning},
			&config.ConstraintDef{ID: "name_hint", FieldID: "name", Rule: "required", Severity: config.SeverityInfo},
		)

		result := engine.Validate(store)
		require.Len(t, result.Violations, 2)
		assert.False(t, result.BlocksWorkflow())
	})

	t.Run("clean store yields empty result", func(t *testing.T) {
		store, engine := fixture(t,
			&config.ConstraintDef{ID: "name_required", FieldID: "name", Rule: "required", Severity: config.SeverityError},
		)
		require.NoError(t, store.Set("name", cty.StringVal("hello")))

		result := engine.Validate(store)
		assert.Empty(t, result.Violations)
		assert.False(t, result.BlocksWorkflow())
	})
}

func TestNewEngine(t *testing.T) {
	t.Run("rejects unknown rule keys", func(t *testing.T) {
		model := &config.Model{
			Fields: map[string]*config.FieldDef{"name": {ID: "name", Kind: value.Text}},
			Constraints: []*config.ConstraintDef{
				{ID: "c", FieldID: "name", Rule: "telepathy", Severity: config.SeverityError},
			},
		}
		_, err := NewEngine(model)
		assert.ErrorContains(t, err, "unknown rule")
	})

	t.Run("rejects invalid patterns at construction", func(t *testing.T) {
		model := &config.Model{
			Fields: map[string]*config.FieldDef{"name": {ID: "name", Kind: value.Text}},
			Constraints: []*config.ConstraintDef{
				{ID: "c", FieldID: "name", Rule: "pattern", Severity: config.SeverityError, Params: config.RuleParams{Pattern: "("}},
			},
		}
		_, err := NewEngine(model)
		assert.ErrorContains(t, err, "invalid pattern")
	})
}

func TestRegisterRuleDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		RegisterRule("required", ruleRequired)
	})
}
