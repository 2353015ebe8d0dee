package rbac

import (
	"testing"

	"github.com/ScriptSmith/hadrian/tenant"
	"github.com/stretchr/testify/assert"
)

func policy(name, resource, action string, effect tenant.Effect, priority int, condition string) tenant.OrgRbacPolicy {
	return tenant.OrgRbacPolicy{ID: name, Name: name, Resource: resource, Action: action, Effect: effect, Priority: priority, Condition: condition, Enabled: true}
}

func TestEvaluate_FirstMatchWins(t *testing.T) {
	policies := []tenant.OrgRbacPolicy{
		policy("deny-write", "chat", "write", tenant.EffectDeny, 10, ""),
		policy("allow-all", "chat", "*", tenant.EffectAllow, 1, ""),
	}
	d := Evaluate(policies, Request{Resource: "chat", Action: "write"})
	assert.False(t, d.Allowed)
	assert.Equal(t, "deny-write", d.MatchedID)
}

func TestEvaluate_WildcardResourceAndAction(t *testing.T) {
	policies := []tenant.OrgRbacPolicy{policy("allow-all", "*", "*", tenant.EffectAllow, 1, "")}
	d := Evaluate(policies, Request{Resource: "embeddings", Action: "create"})
	assert.True(t, d.Allowed)
}

func TestEvaluate_PrefixWildcard(t *testing.T) {
	policies := []tenant.OrgRbacPolicy{policy("allow-chat-prefixed", "chat*", "read", tenant.EffectAllow, 1, "")}
	assert.True(t, Evaluate(policies, Request{Resource: "chat.completions", Action: "read"}).Allowed)
	assert.False(t, Evaluate(policies, Request{Resource: "embeddings", Action: "read"}).Allowed)
}

func TestEvaluate_NoMatchDefaultsDeny(t *testing.T) {
	policies := []tenant.OrgRbacPolicy{policy("allow-chat", "chat", "read", tenant.EffectAllow, 1, "")}
	d := Evaluate(policies, Request{Resource: "embeddings", Action: "create"})
	assert.False(t, d.Allowed)
	assert.Empty(t, d.MatchedID)
}

func TestEvaluate_ConditionMustMatchAllClauses(t *testing.T) {
	policies := []tenant.OrgRbacPolicy{policy("enterprise-only", "chat", "read", tenant.EffectAllow, 1, "plan=enterprise,region=us")}

	assert.True(t, Evaluate(policies, Request{
		Resource: "chat", Action: "read", Attributes: map[string]string{"plan": "enterprise", "region": "us"},
	}).Allowed)

	assert.False(t, Evaluate(policies, Request{
		Resource: "chat", Action: "read", Attributes: map[string]string{"plan": "enterprise", "region": "eu"},
	}).Allowed)

	assert.False(t, Evaluate(policies, Request{
		Resource: "chat", Action: "read",
	}).Allowed)
}

func TestEvaluate_EmptyConditionAlwaysMatches(t *testing.T) {
	policies := []tenant.OrgRbacPolicy{policy("allow-chat", "chat", "read", tenant.EffectAllow, 1, "")}
	assert.True(t, Evaluate(policies, Request{Resource: "chat", Action: "read"}).Allowed)
}

func TestEvaluate_MalformedClauseNeverMatches(t *testing.T) {
	policies := []tenant.OrgRbacPolicy{policy("broken", "chat", "read", tenant.EffectAllow, 1, "plan-enterprise")}
	assert.False(t, Evaluate(policies, Request{Resource: "chat", Action: "read"}).Allowed)
}
