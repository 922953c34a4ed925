// Package override governs the lifecycle of manual overrides layered on top
// of computed fields. An override suspends a field's formula in favor of a
// user-supplied value until the formula result converges with it, the user
// abandons it, or the surrounding workflow cleans it up.
package override
