package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"qna-platform/backend/internal/platform/rbac"
)

const (
	policyPackage = "qna.authz"
	allowQuery    = "data.qna.authz.allow"
)

// DefaultRegoPolicy mirrors rbac.Policy: owners edit, owners or admins delete content,
// only admins delete accounts.
const DefaultRegoPolicy = `package qna.authz

default allow := false

is_admin if input.principal.role == "admin"

is_owner if {
	input.principal.account_id != ""
	input.principal.account_id == input.resource.owner_id
}

allow if {
	input.action == "edit"
	is_owner
}

allow if {
	input.action == "delete"
	is_owner
}

allow if {
	input.action == "delete"
	is_admin
}

allow if {
	input.action == "delete_account"
	is_admin
}
`

// OPAAuthorizer evaluates authorization decisions with an embedded Rego module.
// The query is prepared once; Eval is safe for concurrent use.
type OPAAuthorizer struct {
	query rego.PreparedEvalQuery
}

var _ rbac.Authorizer = (*OPAAuthorizer)(nil)

// NewOPAAuthorizer compiles module (DefaultRegoPolicy when empty) and prepares the allow query.
// The module must declare package qna.authz.
func NewOPAAuthorizer(ctx context.Context, module string) (*OPAAuthorizer, error) {
	if module == "" {
		module = DefaultRegoPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": module})
	if err != nil {
		return nil, fmt.Errorf("compile authz policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare authz policy: %w", err)
	}
	return &OPAAuthorizer{query: q}, nil
}

// LoadOPAAuthorizer reads a Rego module from path. An empty path uses DefaultRegoPolicy.
func LoadOPAAuthorizer(ctx context.Context, path string) (*OPAAuthorizer, error) {
	if path == "" {
		return NewOPAAuthorizer(ctx, "")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read authz policy: %w", err)
	}
	return NewOPAAuthorizer(ctx, string(b))
}

// HealthCheck evaluates a fixed admin account-deletion request and expects it to be allowed.
func (a *OPAAuthorizer) HealthCheck(ctx context.Context) error {
	ok, err := a.allowed(ctx, rbac.ActionDeleteAccount, rbac.Principal{AccountID: "health", Role: "admin"}, "")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("policy %s denied the health probe", policyPackage)
	}
	return nil
}

// AuthorizeEdit evaluates the "edit" rule for p against a resource owned by ownerID.
func (a *OPAAuthorizer) AuthorizeEdit(ctx context.Context, p rbac.Principal, ownerID string) error {
	return a.decide(ctx, rbac.ActionEdit, p, ownerID)
}

// AuthorizeDelete evaluates the "delete" rule for p against a resource owned by ownerID.
func (a *OPAAuthorizer) AuthorizeDelete(ctx context.Context, p rbac.Principal, ownerID string) error {
	return a.decide(ctx, rbac.ActionDelete, p, ownerID)
}

// AuthorizeAccountDeletion evaluates the "delete_account" rule for p.
func (a *OPAAuthorizer) AuthorizeAccountDeletion(ctx context.Context, p rbac.Principal) error {
	return a.decide(ctx, rbac.ActionDeleteAccount, p, "")
}

// decide fails closed: evaluation errors are returned and never treated as allow.
func (a *OPAAuthorizer) decide(ctx context.Context, action rbac.Action, p rbac.Principal, ownerID string) error {
	ok, err := a.allowed(ctx, action, p, ownerID)
	if err != nil {
		return err
	}
	if !ok {
		return rbac.DeniedError(action)
	}
	return nil
}

func (a *OPAAuthorizer) allowed(ctx context.Context, action rbac.Action, p rbac.Principal, ownerID string) (bool, error) {
	input := map[string]interface{}{
		"action": string(action),
		"principal": map[string]interface{}{
			"account_id": p.AccountID,
			"role":       string(p.Role),
		},
		"resource": map[string]interface{}{
			"owner_id": ownerID,
		},
	}
	rs, err := a.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("eval authz policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	v, _ := rs[0].Expressions[0].Value.(bool)
	return v, nil
}
