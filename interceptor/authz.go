package interceptor

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
)

// AuthContext is the authentication state of the caller evaluating a
// rule, mirrored from bundoc/rules.AuthContext.
type AuthContext struct {
	UID     string
	Claims  map[string]interface{}
	IsAdmin bool
}

// Authorizer compiles and caches per-operation CEL expressions and
// evaluates them against a {request, resource} context (spec §E.2
// "Collection-level security rules ... per-operation authorization
// predicates evaluated against {request.auth, resource.data}, with an
// admin bypass"), recovered from bundoc/rules/engine.go's RulesEngine and
// bundoc/collection.go's evaluateRule admin-bypass/write-fallback lookup.
type Authorizer struct {
	env      *cel.Env
	prgCache sync.Map // map[string]cel.Program
	rules    map[string]string
}

// NewAuthorizer builds the CEL environment and stores rules, a map of
// operation name ("create", "read", "update", "delete", "list") to CEL
// expression; each expression is compiled on first use in Allow and
// cached. A missing
// operation falls back to the "write" rule if present, matching the
// teacher's evaluateRule fallback.
func NewAuthorizer(rules map[string]string) (*Authorizer, error) {
	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("request", decls.NewMapType(decls.String, decls.Dyn)),
			decls.NewVar("resource", decls.NewMapType(decls.String, decls.Dyn)),
		),
	)
	if err != nil {
		return nil, err
	}
	return &Authorizer{env: env, rules: rules}, nil
}

// Allow evaluates the rule for op against auth and the document at
// resource, returning true if an admin bypass applies or the compiled
// expression evaluates to true.
func (a *Authorizer) Allow(op string, auth AuthContext, resource map[string]interface{}) (bool, error) {
	if auth.IsAdmin {
		return true, nil
	}
	expr, ok := a.rules[op]
	if !ok {
		expr, ok = a.rules["write"]
	}
	if !ok || expr == "" {
		return false, nil
	}
	if expr == "true" {
		return true, nil
	}
	if expr == "false" {
		return false, nil
	}

	var prg cel.Program
	if cached, ok := a.prgCache.Load(expr); ok {
		prg = cached.(cel.Program)
	} else {
		ast, issues := a.env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return false, fmt.Errorf("authz rule %q: compile error: %w", op, issues.Err())
		}
		p, err := a.env.Program(ast)
		if err != nil {
			return false, fmt.Errorf("authz rule %q: program error: %w", op, err)
		}
		prg = p
		a.prgCache.Store(expr, prg)
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"request": map[string]interface{}{
			"auth": map[string]interface{}{
				"uid":    auth.UID,
				"claims": auth.Claims,
			},
		},
		"resource": map[string]interface{}{"data": resource},
	})
	if err != nil {
		return false, fmt.Errorf("authz rule %q: eval error: %w", op, err)
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("authz rule %q: must evaluate to a boolean", op)
	}
	return allowed, nil
}

// ErrDenied is returned by the PreWrite/PreRead stages below when a rule
// evaluates to false.
type ErrDenied struct {
	Op  string
	Key string
}

func (e *ErrDenied) Error() string {
	return fmt.Sprintf("access denied: %s %s", e.Op, e.Key)
}

// PreWriteStage returns a PreWrite that vetoes the write unless auth()
// passes the rule named by op (see Allow) for the document being written.
// auth is invoked per call so a host can thread per-request identity
// through (e.g. from an HTTP middleware) instead of baking one identity
// into the stage at wiring time.
func (a *Authorizer) PreWriteStage(op string, auth func(key string) AuthContext) PreWrite {
	return func(key string, value interface{}) (interface{}, error) {
		doc, _ := value.(map[string]interface{})
		allowed, err := a.Allow(op, auth(key), doc)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, &ErrDenied{Op: op, Key: key}
		}
		return value, nil
	}
}

// PreReadStage returns a PreRead that vetoes the read unless auth()
// passes the "read" rule.
func (a *Authorizer) PreReadStage(auth func(key string) AuthContext) PreRead {
	return func(key string) error {
		allowed, err := a.Allow("read", auth(key), nil)
		if err != nil {
			return err
		}
		if !allowed {
			return &ErrDenied{Op: "read", Key: key}
		}
		return nil
	}
}
