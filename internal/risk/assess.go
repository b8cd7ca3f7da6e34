// Package risk scores instructions against a configured ruleset, classifies
// them into tiers, and manages rollback checkpoints for risky actions.
package risk

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rahlplx/workforce/internal/config"
)

// Level classifies an instruction's danger.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
	LevelBlocked  Level = "BLOCKED"
)

// Request is one instruction to assess, with the files it targets (if known).
type Request struct {
	Instruction string   `json:"instruction"`
	TargetFiles []string `json:"target_files,omitempty"`
}

// Profile is the assessment result. It is recomputed per call and never
// persisted; identical input always yields an identical profile.
type Profile struct {
	Level                Level    `json:"level"`
	Score                int      `json:"score"`
	RequiresConfirmation bool     `json:"requires_confirmation"`
	RequiresBackup       bool     `json:"requires_backup"`
	Reasons              []string `json:"reasons,omitempty"`
}

// Blocked reports whether the profile forbids execution outright.
func (p Profile) Blocked() bool { return p.Level == LevelBlocked }

// Assessor applies the risk ruleset. Construct once; Analyze is safe for
// concurrent use because the assessor holds no mutable state.
type Assessor struct {
	rules    config.RiskRules
	denylist []*regexp.Regexp
}

// NewAssessor compiles the absolute denylist and returns an assessor.
func NewAssessor(rules config.RiskRules) (*Assessor, error) {
	a := &Assessor{rules: rules}
	for _, src := range rules.AbsoluteDenylist {
		re, err := regexp.Compile("(?i)" + src)
		if err != nil {
			return nil, fmt.Errorf("risk denylist pattern %q: %w", src, err)
		}
		a.denylist = append(a.denylist, re)
	}
	return a, nil
}

// Analyze scores the request with the ordered rule set. Rules contribute
// fixed increments and append their names to Reasons. A denylist hit forces
// BLOCKED no matter what the score says; blocking is absolute, not a high
// score.
func (a *Assessor) Analyze(req Request) Profile {
	instr := strings.ToLower(req.Instruction)
	var (
		score   int
		reasons []string
		blocked bool
	)

	for _, re := range a.denylist {
		if re.MatchString(req.Instruction) {
			blocked = true
			reasons = append(reasons, "absolute-denylist")
			break
		}
	}

	destructive := containsAny(instr, a.rules.DestructiveVocab)
	if destructive {
		score += a.rules.DestructiveWeight
		reasons = append(reasons, "destructive-vocab")
	}
	if containsAny(instr, a.rules.CredentialVocab) {
		score += a.rules.CredentialWeight
		reasons = append(reasons, "credential-vocab")
	}
	for _, f := range req.TargetFiles {
		if p, ok := matchSensitivePath(f, a.rules.SensitivePaths); ok {
			score += a.rules.SensitivePathWeight
			reasons = append(reasons, "sensitive-path:"+p)
		}
	}
	// Mutation verbs only count when no destructive vocabulary matched;
	// destructive instructions already carry the larger increment.
	if !destructive && containsAny(instr, a.rules.MutationVerbs) {
		score += a.rules.MutationWeight
		reasons = append(reasons, "mutation-verb")
	}

	level := a.level(score)
	if blocked {
		return Profile{Level: LevelBlocked, Score: score, Reasons: reasons}
	}
	return Profile{
		Level:                level,
		Score:                score,
		RequiresConfirmation: level == LevelHigh || level == LevelCritical,
		RequiresBackup:       level != LevelLow,
		Reasons:              reasons,
	}
}

func (a *Assessor) level(score int) Level {
	switch {
	case score >= a.rules.CriticalThreshold:
		return LevelCritical
	case score >= a.rules.HighThreshold:
		return LevelHigh
	case score >= a.rules.MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

func containsAny(lower string, vocab []string) bool {
	for _, v := range vocab {
		if v == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(v)) {
			return true
		}
	}
	return false
}

func matchSensitivePath(file string, sensitive []string) (string, bool) {
	f := strings.ToLower(strings.TrimSpace(file))
	if f == "" {
		return "", false
	}
	for _, s := range sensitive {
		if s == "" {
			continue
		}
		if strings.Contains(f, strings.ToLower(s)) {
			return file, true
		}
	}
	return "", false
}
