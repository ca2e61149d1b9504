// Package rbac decides whether a role may perform an action. The role → actions table is static
// and evaluated with an embedded OPA Rego policy; unknown roles and actions are denied.
package rbac

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/storage/inmem"
	"go.uber.org/zap"
)

// Actions guarded by the routing layer.
const (
	ActionUserStatusUpdate = "user_status_update"
	ActionUserInfoView     = "user_info_view"
	ActionUserInfoUpdate   = "user_info_update"
)

// Roles assigned by the account service.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

//go:embed permissions.json
var defaultPermissions []byte

const policyModule = `package accounts.rbac

default allow := false

allow if input.action in data.permissions[input.role]
`

const allowQuery = "data.accounts.rbac.allow"

// Table maps a role to the actions it may perform.
type Table map[string][]string

// DefaultTable returns the embedded role table.
func DefaultTable() (Table, error) {
	return ParseTable(defaultPermissions)
}

// LoadTable reads a role table from a JSON file. An empty path returns DefaultTable.
func LoadTable(path string) (Table, error) {
	if path == "" {
		return DefaultTable()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rbac: read permissions file: %w", err)
	}
	return ParseTable(b)
}

// ParseTable decodes a JSON object of role → action arrays.
func ParseTable(b []byte) (Table, error) {
	var t Table
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("rbac: parse permissions: %w", err)
	}
	if t == nil {
		t = Table{}
	}
	return t, nil
}

// Roles returns the roles in t, sorted.
func (t Table) Roles() []string {
	out := make([]string, 0, len(t))
	for r := range t {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func (t Table) data() map[string]any {
	perms := make(map[string]any, len(t))
	for role, actions := range t {
		list := make([]any, 0, len(actions))
		for _, a := range actions {
			list = append(list, a)
		}
		perms[role] = list
	}
	return map[string]any{"permissions": perms}
}

// Evaluator answers permission checks against a fixed table.
type Evaluator struct {
	query  rego.PreparedEvalQuery
	logger *zap.Logger
}

// NewEvaluator compiles the policy over table once. A nil logger disables logging.
func NewEvaluator(ctx context.Context, table Table, logger *zap.Logger) (*Evaluator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	q, err := rego.New(
		rego.Query(allowQuery),
		rego.Module("rbac.rego", policyModule),
		rego.Store(inmem.NewFromObject(table.data())),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("rbac: prepare policy: %w", err)
	}
	return &Evaluator{query: q, logger: logger}, nil
}

// Check reports whether role may perform action. Evaluation errors deny.
func (e *Evaluator) Check(ctx context.Context, role, action string) bool {
	if role == "" || action == "" {
		return false
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]any{"role": role, "action": action}))
	if err != nil {
		e.logger.Error("rbac: policy evaluation failed", zap.String("role", role), zap.String("action", action), zap.Error(err))
		return false
	}
	return rs.Allowed()
}

// HealthCheck verifies that the prepared policy still evaluates. Returns nil on success.
func (e *Evaluator) HealthCheck(ctx context.Context) error {
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]any{"role": "", "action": ""}))
	if err != nil {
		return fmt.Errorf("rbac: eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("rbac: policy query returned no result")
	}
	return nil
}
