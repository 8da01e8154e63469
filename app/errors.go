package app

import (
	"context"

	"github.com/fieldforge/fieldforge/domain/fault"
	"github.com/fieldforge/fieldforge/domain/tenant"
	"github.com/fieldforge/fieldforge/domain/validate"
)

// scope extracts the tenant context every operation runs under.
func scope(ctx context.Context) (tenant.Context, error) {
	tctx, ok := tenant.FromContext(ctx)
	if !ok || !tctx.Valid() {
		return tenant.Context{}, fault.New(fault.CodeForbidden, "operation requires a tenant scope")
	}
	return tctx, nil
}

// ValidationFailed carries the complete violation set for one record
// payload. Validation is total, so callers always see every invalid
// field at once.
type ValidationFailed struct {
	Violations []validate.Violation
}

// Error implements the error interface.
func (e *ValidationFailed) Error() string {
	return validate.Result{Violations: e.Violations}.Error()
}
