// Package guardrail implements the three validation gates applied to a
// request: stated reasoning, proposed action, and produced output. All three
// are pure functions of their input and the configured ruleset, with no I/O
// and no hidden state.
package guardrail

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rahlplx/workforce/internal/config"
)

// Level names the validation stage a result came from.
type Level string

const (
	LevelReasoning Level = "reasoning"
	LevelAction    Level = "action"
	LevelOutput    Level = "output"
)

// Result is one validation outcome. Reason carries the failing rule's name
// and what it matched; it is empty on pass.
type Result struct {
	Passed bool   `json:"passed"`
	Level  Level  `json:"level"`
	Reason string `json:"reason,omitempty"`
}

// Action is the concrete effect an executor intends to perform.
type Action struct {
	Type    string `json:"type"`
	Target  string `json:"target"`
	Payload string `json:"payload,omitempty"`
}

// Pipeline holds the compiled ruleset for all three validators.
type Pipeline struct {
	rules config.GuardrailRules

	// Reasoning shares the risk vocabularies: text announcing a destructive
	// or credential-exfiltrating intent fails before any action is taken.
	destructiveVocab []string
	credentialVocab  []string

	secretPatterns []*regexp.Regexp
	uiTypes        map[string]bool
}

var (
	responsiveGridRe = regexp.MustCompile(`(?:sm|md|lg|xl|2xl):grid-cols-\d+`)
	baseGridRe       = regexp.MustCompile(`(?:^|[\s"'` + "`" + `])grid-cols-\d+`)
)

// New compiles the ruleset into a pipeline. Secret patterns that fail to
// compile reject the whole ruleset; a guardrail that silently skips rules
// would fail open.
func New(rs config.Ruleset) (*Pipeline, error) {
	p := &Pipeline{
		rules:            rs.Guardrails,
		destructiveVocab: rs.Risk.DestructiveVocab,
		credentialVocab:  rs.Risk.CredentialVocab,
		uiTypes:          make(map[string]bool, len(rs.Guardrails.UIActionTypes)),
	}
	for _, t := range rs.Guardrails.UIActionTypes {
		p.uiTypes[strings.ToLower(t)] = true
	}
	for _, src := range rs.Guardrails.SecretPatterns {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("secret pattern %q: %w", src, err)
		}
		p.secretPatterns = append(p.secretPatterns, re)
	}
	return p, nil
}

// ValidateReasoning gates the stated intent before anything runs: jailbreak
// or override phrasing, destructive vocabulary, and credential-exfiltration
// vocabulary all fail here, at the earliest possible interception point.
func (p *Pipeline) ValidateReasoning(text string) Result {
	lower := strings.ToLower(text)
	if m := firstMatch(lower, p.rules.JailbreakVocab); m != "" {
		return fail(LevelReasoning, "jailbreak-vocab", m)
	}
	if m := firstMatch(lower, p.destructiveVocab); m != "" {
		return fail(LevelReasoning, "destructive-vocab", m)
	}
	if m := firstMatch(lower, p.credentialVocab); m != "" {
		return fail(LevelReasoning, "credential-vocab", m)
	}
	return pass(LevelReasoning)
}

// ValidateAction gates the concrete action: dangerous shell substrings in
// the payload or target, writes to denylisted paths, and, for UI-generating
// action types, responsive grid utilities without their mobile-first base
// class. The first failing rule decides the result.
func (p *Pipeline) ValidateAction(a Action) Result {
	lowerPayload := strings.ToLower(a.Payload)
	lowerTarget := strings.ToLower(a.Target)

	if m := firstMatch(lowerPayload, p.rules.ShellDenylist); m != "" {
		return fail(LevelAction, "shell-denylist", m)
	}
	if m := firstMatch(lowerTarget, p.rules.ShellDenylist); m != "" {
		return fail(LevelAction, "shell-denylist", m)
	}
	if m := matchDenyPath(lowerTarget, p.rules.WriteDenyPaths); m != "" {
		return fail(LevelAction, "write-deny-path", m)
	}
	if p.uiTypes[strings.ToLower(a.Type)] {
		if responsiveGridRe.MatchString(a.Payload) && !baseGridRe.MatchString(a.Payload) {
			return fail(LevelAction, "ui-grid-missing-base", "responsive grid utility without mobile-first base class")
		}
	}
	return pass(LevelAction)
}

// ValidateOutput scans produced text for secret-shaped substrings using the
// configured provider-prefixed patterns. Pattern matching only, no entropy
// analysis.
func (p *Pipeline) ValidateOutput(text string) Result {
	for _, re := range p.secretPatterns {
		if re.MatchString(text) {
			return fail(LevelOutput, "secret-pattern", re.String())
		}
	}
	return pass(LevelOutput)
}

func pass(level Level) Result { return Result{Passed: true, Level: level} }

func fail(level Level, rule, matched string) Result {
	return Result{Passed: false, Level: level, Reason: rule + ": " + matched}
}

func firstMatch(lower string, vocab []string) string {
	if lower == "" {
		return ""
	}
	for _, v := range vocab {
		if v == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(v)) {
			return v
		}
	}
	return ""
}

func matchDenyPath(lowerTarget string, deny []string) string {
	if lowerTarget == "" {
		return ""
	}
	for _, d := range deny {
		if d == "" {
			continue
		}
		if strings.Contains(lowerTarget, strings.ToLower(d)) {
			return d
		}
	}
	return ""
}
