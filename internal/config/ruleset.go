package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Ruleset is the caller-provided configuration for the risk assessor and the
// guardrail pipeline. Keyword rules are a denylist, not a security boundary;
// keeping them here as versioned data lets operators strengthen them without
// touching the state-machine logic.
type Ruleset struct {
	Version    int            `yaml:"version"`
	Risk       RiskRules      `yaml:"risk"`
	Guardrails GuardrailRules `yaml:"guardrails"`
}

// RiskRules drive the additive scoring model. Vocab entries match as
// case-insensitive substrings of the instruction; AbsoluteDenylist entries
// are regular expressions and force BLOCKED regardless of score.
type RiskRules struct {
	AbsoluteDenylist []string `yaml:"absolute_denylist"`

	DestructiveVocab  []string `yaml:"destructive_vocab"`
	DestructiveWeight int      `yaml:"destructive_weight"`

	CredentialVocab  []string `yaml:"credential_vocab"`
	CredentialWeight int      `yaml:"credential_weight"`

	SensitivePaths      []string `yaml:"sensitive_paths"`
	SensitivePathWeight int      `yaml:"sensitive_path_weight"`

	MutationVerbs  []string `yaml:"mutation_verbs"`
	MutationWeight int      `yaml:"mutation_weight"`

	// Score thresholds: below Medium is LOW, below High is MEDIUM,
	// below Critical is HIGH, at or above Critical is CRITICAL.
	MediumThreshold   int `yaml:"medium_threshold"`
	HighThreshold     int `yaml:"high_threshold"`
	CriticalThreshold int `yaml:"critical_threshold"`
}

// GuardrailRules configure the three validators. SecretPatterns are regular
// expressions; everything else matches as case-insensitive substrings.
type GuardrailRules struct {
	JailbreakVocab []string `yaml:"jailbreak_vocab"`
	ShellDenylist  []string `yaml:"shell_denylist"`
	WriteDenyPaths []string `yaml:"write_deny_paths"`
	UIActionTypes  []string `yaml:"ui_action_types"`
	SecretPatterns []string `yaml:"secret_patterns"`
}

// DefaultRuleset returns the built-in ruleset. Callers may serve it as-is or
// override it from <home>/ruleset.yaml (see LoadRuleset).
func DefaultRuleset() Ruleset {
	return Ruleset{
		Version: 1,
		Risk: RiskRules{
			AbsoluteDenylist: []string{
				`rm\s+-[a-z]*r[a-z]*\s+/(\s|\*|$)`,
				`delete\s+all\s+files\s+in\s+(the\s+)?root`,
				`mkfs\.`,
				`>\s*/dev/sd`,
				`:\(\)\{\s*:\|:&\s*\};:`, // fork bomb
				`drop\s+database`,
			},
			DestructiveVocab: []string{
				"delete", "rm -rf", "drop table", "truncate", "wipe", "erase all", "rm -fr",
			},
			DestructiveWeight: 40,
			CredentialVocab: []string{
				"dump secrets", "show environment variables", "print all keys",
				"exfiltrate", "leak credentials", "cat .env", "print secrets",
			},
			CredentialWeight: 40,
			SensitivePaths: []string{
				".env", ".env.local", ".env.production",
				"package-lock.json", "yarn.lock", "pnpm-lock.yaml",
				"package.json", "go.mod", "go.sum", "Cargo.lock", "Gemfile.lock",
				".github/workflows", ".gitlab-ci.yml", "Jenkinsfile",
			},
			SensitivePathWeight: 15,
			MutationVerbs: []string{
				"update", "modify", "change", "write", "rename", "move", "overwrite", "install",
			},
			MutationWeight:    10,
			MediumThreshold:   25,
			HighThreshold:     50,
			CriticalThreshold: 80,
		},
		Guardrails: GuardrailRules{
			JailbreakVocab: []string{
				"ignore all rules", "ignore previous instructions", "ignore your instructions",
				"bypass the guardrails", "disable safety", "override restrictions",
				"pretend you have no rules",
			},
			ShellDenylist: []string{
				"rm -rf /", "rm -rf ~", "rm -rf *", "rm -rf .git",
				"drop table", "delete from",
				"chmod 777", "mkfs.", "> /dev/sd",
				"curl | sh", "wget | sh", "| sh", "| bash", "eval $(",
				":(){ :|:& };:", // fork bomb
			},
			WriteDenyPaths: []string{
				".env", ".env.local", ".env.production",
				".aws/credentials", ".netrc", ".npmrc", ".pgpass",
				"id_rsa", "id_ed25519", "credentials.json", "secrets.yaml", "secrets.yml",
			},
			UIActionTypes: []string{"ui_render", "component_write"},
			SecretPatterns: []string{
				`github_pat_[A-Za-z0-9_]+`,
				`ghp_[A-Za-z0-9]{36}`,
				`AKIA[0-9A-Z]{16}`,
				`xox[baprs]-[A-Za-z0-9-]{10,}`,
				`sk-[A-Za-z0-9]{32,}`,
				`-----BEGIN [A-Z ]*PRIVATE KEY-----`,
			},
		},
	}
}

// LoadRuleset reads a ruleset from path. A missing file returns the default
// ruleset; a present file replaces the defaults wholesale (per-section
// merging would make the effective ruleset hard to reason about).
func LoadRuleset(path string) (Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRuleset(), nil
		}
		return Ruleset{}, err
	}
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return Ruleset{}, fmt.Errorf("parse ruleset %s: %w", path, err)
	}
	if rs.Version == 0 {
		return Ruleset{}, fmt.Errorf("ruleset %s: version is required", path)
	}
	applyThresholdDefaults(&rs.Risk)
	return rs, nil
}

func applyThresholdDefaults(r *RiskRules) {
	if r.MediumThreshold == 0 {
		r.MediumThreshold = 25
	}
	if r.HighThreshold == 0 {
		r.HighThreshold = 50
	}
	if r.CriticalThreshold == 0 {
		r.CriticalThreshold = 80
	}
}
