package directory

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// DefaultReviewerRule grants review rights to moderators and above.
const DefaultReviewerRule = "user.role <= 300"

// RoleRule is a compiled CEL predicate over a user, exposed to the
// expression as the map `user` with keys id, name, email, delivery_email
// and role.
type RoleRule struct {
	expr string
	prg  cel.Program
}

// NewRoleRule compiles expr. The expression must evaluate to a bool.
func NewRoleRule(expr string) (*RoleRule, error) {
	env, err := cel.NewEnv(
		cel.Variable("user", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile reviewer rule %q: %w", expr, issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("reviewer rule %q returns %s, want bool", expr, t)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program reviewer rule %q: %w", expr, err)
	}
	return &RoleRule{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (r *RoleRule) String() string { return r.expr }

// IsReviewer evaluates the rule for u.
func (r *RoleRule) IsReviewer(u User) (bool, error) {
	out, _, err := r.prg.Eval(map[string]any{
		"user": map[string]any{
			"id":             u.ID,
			"name":           u.Name,
			"email":          u.Email,
			"delivery_email": u.DeliveryEmail,
			"role":           int64(u.Role),
		},
	})
	if err != nil {
		return false, fmt.Errorf("eval reviewer rule: %w", err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("reviewer rule %q did not return bool", r.expr)
	}
	return ok, nil
}
