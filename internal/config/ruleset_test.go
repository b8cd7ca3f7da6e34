package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRulesetThresholds(t *testing.T) {
	t.Parallel()
	rs := DefaultRuleset()
	if rs.Version != 1 {
		t.Fatalf("version = %d", rs.Version)
	}
	if rs.Risk.MediumThreshold != 25 || rs.Risk.HighThreshold != 50 || rs.Risk.CriticalThreshold != 80 {
		t.Fatalf("thresholds = %d/%d/%d", rs.Risk.MediumThreshold, rs.Risk.HighThreshold, rs.Risk.CriticalThreshold)
	}
	if len(rs.Risk.AbsoluteDenylist) == 0 || len(rs.Guardrails.SecretPatterns) == 0 {
		t.Fatal("default ruleset missing deny rules")
	}
}

func TestLoadRulesetMissingFileReturnsDefault(t *testing.T) {
	t.Parallel()
	rs, err := LoadRuleset(filepath.Join(t.TempDir(), "ruleset.yaml"))
	if err != nil {
		t.Fatalf("LoadRuleset: %v", err)
	}
	if rs.Version != DefaultRuleset().Version || len(rs.Risk.DestructiveVocab) == 0 {
		t.Fatalf("expected default ruleset, got %+v", rs)
	}
}

func TestLoadRulesetOverride(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "ruleset.yaml")
	doc := `
version: 2
risk:
  absolute_denylist: ["format\\s+c:"]
  destructive_vocab: [obliterate]
  destructive_weight: 60
guardrails:
  jailbreak_vocab: [ignore the charter]
  secret_patterns: ["TOKEN_[0-9]+"]
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	rs, err := LoadRuleset(path)
	if err != nil {
		t.Fatalf("LoadRuleset: %v", err)
	}
	if rs.Version != 2 {
		t.Fatalf("version = %d", rs.Version)
	}
	if len(rs.Risk.DestructiveVocab) != 1 || rs.Risk.DestructiveVocab[0] != "obliterate" {
		t.Fatalf("destructive vocab = %v", rs.Risk.DestructiveVocab)
	}
	// Unset thresholds fall back to the standard tiers.
	if rs.Risk.MediumThreshold != 25 || rs.Risk.CriticalThreshold != 80 {
		t.Fatalf("thresholds = %+v", rs.Risk)
	}
}

func TestLoadRulesetRejectsMissingVersion(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "ruleset.yaml")
	if err := os.WriteFile(path, []byte("risk: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRuleset(path); err == nil {
		t.Fatal("expected error for versionless ruleset")
	}
}

func TestResolveHome(t *testing.T) {
	if got, err := ResolveHome("/tmp/custom"); err != nil || got != "/tmp/custom" {
		t.Fatalf("ResolveHome(override) = %q, %v", got, err)
	}
	t.Setenv("WORKFORCE_HOME", "/tmp/envhome")
	if got, err := ResolveHome(""); err != nil || got != "/tmp/envhome" {
		t.Fatalf("ResolveHome(env) = %q, %v", got, err)
	}
}
