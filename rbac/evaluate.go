package rbac

import (
	"strings"

	"github.com/ScriptSmith/hadrian/tenant"
)

// Request is the (resource, action, attributes) triple a caller evaluates
// against an organization's policy set.
type Request struct {
	Resource   string
	Action     string
	Attributes map[string]string
}

// Decision is the outcome of evaluating a Request against a policy set.
type Decision struct {
	Allowed    bool
	MatchedID  string
	MatchedName string
}

// Evaluate walks policies in descending priority order (ListEnabledByOrg's
// order) and returns the first match's effect. No match defaults to deny.
func Evaluate(policies []tenant.OrgRbacPolicy, req Request) Decision {
	for _, p := range policies {
		if !matches(p.Resource, req.Resource) || !matches(p.Action, req.Action) {
			continue
		}
		if !matchesCondition(p.Condition, req.Attributes) {
			continue
		}
		return Decision{
			Allowed:     p.Effect == tenant.EffectAllow,
			MatchedID:   p.ID,
			MatchedName: p.Name,
		}
	}
	return Decision{Allowed: false}
}

func matches(pattern, value string) bool {
	if pattern == "*" || pattern == "" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(value, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == value
}

// matchesCondition evaluates the policy's condition text, a comma-separated
// list of "key=value" equality clauses ANDed together (e.g.
// "plan=enterprise,region=us"); empty condition always matches. This keeps
// evaluation dependency-free rather than embedding a general expression
// language for a single equality-clause use case.
func matchesCondition(condition string, attrs map[string]string) bool {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return true
	}
	for _, clause := range strings.Split(condition, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		kv := strings.SplitN(clause, "=", 2)
		if len(kv) != 2 {
			return false
		}
		key, want := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		if attrs[key] != want {
			return false
		}
	}
	return true
}
