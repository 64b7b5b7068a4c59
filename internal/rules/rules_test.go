package rules

import "testing"

func linux() Env { return Env{OSFamily: Linux, Features: map[string]bool{}} }

func TestEvaluateEmptyRuleListAllows(t *testing.T) {
	if got := Evaluate(nil, linux()); got != Allow {
		t.Fatalf("empty rule list: got %s, want allow", got)
	}
}

func TestEvaluateSingleAllowNoPredicates(t *testing.T) {
	got := Evaluate([]Rule{{Action: Allow}}, linux())
	if got != Allow {
		t.Fatalf("got %s, want allow", got)
	}
}

func TestEvaluateSingleDenyCurrentOS(t *testing.T) {
	got := Evaluate([]Rule{{Action: Deny, OS: &OSPredicate{Name: "linux"}}}, linux())
	if got != Deny {
		t.Fatalf("got %s, want deny", got)
	}
}

func TestEvaluateLastMatchWinsDeny(t *testing.T) {
	list := []Rule{
		{Action: Allow},
		{Action: Deny, OS: &OSPredicate{Name: "linux"}},
	}
	if got := Evaluate(list, linux()); got != Deny {
		t.Fatalf("got %s, want deny", got)
	}
}

func TestEvaluateLastMatchWinsAllow(t *testing.T) {
	list := []Rule{
		{Action: Deny},
		{Action: Allow, OS: &OSPredicate{Name: "linux"}},
	}
	if got := Evaluate(list, linux()); got != Allow {
		t.Fatalf("got %s, want allow", got)
	}
}

func TestEvaluateUnknownOSNameNeverMatchesAllow(t *testing.T) {
	list := []Rule{{Action: Deny}, {Action: Allow, OS: &OSPredicate{Name: "plan9"}}}
	if got := Evaluate(list, linux()); got != Deny {
		t.Fatalf("unknown os name should not match: got %s", got)
	}
}

func TestEvaluateMismatchedFeatureDoesNotMatch(t *testing.T) {
	list := []Rule{
		{Action: Deny},
		{Action: Allow, Features: map[string]bool{"has_custom_resolution": true}},
	}
	env := linux() // no features set => required=true, env=missing
	if got := Evaluate(list, env); got != Deny {
		t.Fatalf("missing feature should not match: got %s", got)
	}
}

func TestEvaluateFeaturePredicateMatches(t *testing.T) {
	list := []Rule{
		{Action: Deny},
		{Action: Allow, Features: map[string]bool{"is_demo_user": true}},
	}
	env := linux()
	env.Features["is_demo_user"] = true
	if got := Evaluate(list, env); got != Allow {
		t.Fatalf("got %s, want allow", got)
	}
}

func TestEvaluateOSArchPredicate(t *testing.T) {
	env := Env{OSFamily: Windows, Arch: X86, Features: map[string]bool{}}
	list := []Rule{
		{Action: Allow},
		{Action: Deny, OS: &OSPredicate{Name: "windows", Arch: X64}},
	}
	// deny rule requires x64, env is x86 -> no match -> allow stands
	if got := Evaluate(list, env); got != Allow {
		t.Fatalf("got %s, want allow (arch mismatch should not match)", got)
	}
}

func TestEvaluateVersionRegexPredicate(t *testing.T) {
	env := Env{OSFamily: Windows, OSVersion: "10.0", Features: map[string]bool{}}
	list := []Rule{
		{Action: Deny, OS: &OSPredicate{Name: "windows", VersionRegex: `^10\.`}},
	}
	if got := Evaluate(list, env); got != Deny {
		t.Fatalf("got %s, want deny", got)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	env := linux()
	list := []Rule{{Action: Allow}, {Action: Deny, OS: &OSPredicate{Name: "linux"}}}
	a := Evaluate(list, env)
	b := Evaluate(list, env)
	if a != b {
		t.Fatalf("evaluation not deterministic: %s vs %s", a, b)
	}
}

func TestCurrentEnvMapsDarwinToMacOS(t *testing.T) {
	env := CurrentEnv("darwin", "arm64", nil)
	if env.OSFamily != MacOS || OSKey(env) != "osx" {
		t.Fatalf("expected macos/osx, got %s/%s", env.OSFamily, OSKey(env))
	}
}
