package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/formwright/internal/ctxlog"
	"github.com/specialistvlad/formwright/internal/session"
	"github.com/specialistvlad/formwright/internal/value"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	s, err := session.Open(ctx, a.model, session.Options{UndoLimit: appConfig.UndoLimit})
	if err != nil {
		return fmt.Errorf("failed to open project session: %w", err)
	}
	defer s.Close()

	if appConfig.Mode == ModeEval {
		a.printValues(s)
	}
	a.printValidation(s)

	a.logger.Debug("App.Run method finished.")
	return nil
}

// printValues writes every field and its derived value, sorted by field ID.
func (a *App) printValues(s *session.Session) {
	snapshot := s.Snapshot()
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintln(a.outW, "Fields:")
	for _, id := range ids {
		fmt.Fprintf(a.outW, "  %s = %s\n", id, formatValue(snapshot[id]))
	}
}

// printValidation writes the violations of the latest validation pass and a
// one-line verdict on whether document generation would be blocked.
func (a *App) printValidation(s *session.Session) {
	result := s.Validation()
	if len(result.Violations) == 0 {
		fmt.Fprintln(a.outW, "Validation: OK")
		return
	}

	fmt.Fprintln(a.outW, "Validation:")
	for _, v := range result.Violations {
		fmt.Fprintf(a.outW, "  [%s] %s: field %q: %s\n", v.Severity, v.ConstraintID, v.FieldID, v.Message)
	}
	if result.BlocksWorkflow() {
		fmt.Fprintln(a.outW, "Document generation is blocked.")
	} else {
		fmt.Fprintln(a.outW, "Document generation is allowed.")
	}
}

func formatValue(v cty.Value) string {
	switch {
	case value.IsError(v):
		msg, _ := value.ErrorMessage(v)
		return fmt.Sprintf("<error: %s>", msg)
	case v.IsNull():
		return "<null>"
	case !v.IsWhollyKnown():
		return "<unknown>"
	case v.Type() == cty.String:
		return fmt.Sprintf("%q", v.AsString())
	case v.Type() == cty.Number:
		return v.AsBigFloat().Text('f', -1)
	case v.Type() == cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	default:
		return v.GoString()
	}
}
