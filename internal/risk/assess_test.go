package risk

import (
	"reflect"
	"testing"

	"github.com/rahlplx/workforce/internal/config"
)

func newAssessor(t *testing.T) *Assessor {
	t.Helper()
	a, err := NewAssessor(config.DefaultRuleset().Risk)
	if err != nil {
		t.Fatalf("NewAssessor: %v", err)
	}
	return a
}

func TestAnalyzeBlockedPatterns(t *testing.T) {
	t.Parallel()
	a := newAssessor(t)

	blocked := []string{
		"rm -rf /",
		"please run rm -rf /*",
		"delete all files in root",
		"delete all files in the root directory",
		"mkfs.ext4 the disk",
		"cat garbage > /dev/sda",
	}
	for _, instr := range blocked {
		p := a.Analyze(Request{Instruction: instr})
		if p.Level != LevelBlocked {
			t.Errorf("Analyze(%q).Level = %s, want BLOCKED", instr, p.Level)
		}
		if !p.Blocked() {
			t.Errorf("Blocked() false for %q", instr)
		}
		if len(p.Reasons) == 0 || p.Reasons[0] != "absolute-denylist" {
			t.Errorf("reasons = %v", p.Reasons)
		}
	}

	// Deleting inside a project directory is destructive but not absolute.
	p := a.Analyze(Request{Instruction: "delete the build cache under ./tmp"})
	if p.Level == LevelBlocked {
		t.Fatalf("scoped delete must not be BLOCKED: %+v", p)
	}
}

func TestAnalyzeBenignIsLow(t *testing.T) {
	t.Parallel()
	a := newAssessor(t)

	for _, instr := range []string{
		"summarize the architecture docs",
		"explain how routing works",
		"create a new component for the dashboard",
	} {
		p := a.Analyze(Request{Instruction: instr})
		if p.Level != LevelLow {
			t.Errorf("Analyze(%q).Level = %s, want LOW", instr, p.Level)
		}
		if p.Score >= 25 {
			t.Errorf("Analyze(%q).Score = %d, want < 25", instr, p.Score)
		}
		if p.RequiresConfirmation || p.RequiresBackup {
			t.Errorf("benign instruction flagged: %+v", p)
		}
	}
}

func TestAnalyzeScoringTiers(t *testing.T) {
	t.Parallel()
	a := newAssessor(t)

	cases := []struct {
		name string
		req  Request
		want Level
	}{
		{
			name: "mutation verb only is low",
			req:  Request{Instruction: "update the readme wording"},
			want: LevelLow,
		},
		{
			name: "one sensitive file is medium",
			req:  Request{Instruction: "refresh dependency pins", TargetFiles: []string{"package-lock.json", "README.md"}},
			want: LevelLow, // one sensitive path = 15, below the medium threshold
		},
		{
			name: "two sensitive files cross medium",
			req:  Request{Instruction: "refresh dependency pins", TargetFiles: []string{"package-lock.json", "go.sum"}},
			want: LevelMedium,
		},
		{
			name: "destructive vocab plus sensitive file is high",
			req:  Request{Instruction: "delete the stale entries", TargetFiles: []string{".env"}},
			want: LevelHigh,
		},
		{
			name: "destructive plus credential is critical",
			req:  Request{Instruction: "delete the logs and dump secrets"},
			want: LevelCritical,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := a.Analyze(tc.req)
			if p.Level != tc.want {
				t.Fatalf("level = %s (score %d, reasons %v), want %s", p.Level, p.Score, p.Reasons, tc.want)
			}
		})
	}
}

func TestAnalyzeFlags(t *testing.T) {
	t.Parallel()
	a := newAssessor(t)

	high := a.Analyze(Request{Instruction: "delete the stale entries", TargetFiles: []string{".env"}})
	if !high.RequiresConfirmation || !high.RequiresBackup {
		t.Fatalf("HIGH should require confirmation and backup: %+v", high)
	}

	medium := a.Analyze(Request{Instruction: "refresh pins", TargetFiles: []string{"package-lock.json", "go.sum"}})
	if medium.RequiresConfirmation {
		t.Fatalf("MEDIUM must not require confirmation: %+v", medium)
	}
	if !medium.RequiresBackup {
		t.Fatalf("MEDIUM must require backup: %+v", medium)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	t.Parallel()
	a := newAssessor(t)
	req := Request{Instruction: "delete old logs and update the index", TargetFiles: []string{".env", "main.go"}}
	first := a.Analyze(req)
	for i := 0; i < 10; i++ {
		if got := a.Analyze(req); !reflect.DeepEqual(got, first) {
			t.Fatalf("profile changed: %+v vs %+v", got, first)
		}
	}
}

func TestAnalyzeSensitivePathReasons(t *testing.T) {
	t.Parallel()
	a := newAssessor(t)
	p := a.Analyze(Request{Instruction: "touch files", TargetFiles: []string{"config/.env", "src/main.go", ".github/workflows/ci.yml"}})
	var sensitive int
	for _, r := range p.Reasons {
		if len(r) > len("sensitive-path:") && r[:len("sensitive-path:")] == "sensitive-path:" {
			sensitive++
		}
	}
	if sensitive != 2 {
		t.Fatalf("expected 2 sensitive-path reasons, got %v", p.Reasons)
	}
}

func TestNewAssessorRejectsBadPattern(t *testing.T) {
	t.Parallel()
	rules := config.DefaultRuleset().Risk
	rules.AbsoluteDenylist = append(rules.AbsoluteDenylist, "([bad")
	if _, err := NewAssessor(rules); err == nil {
		t.Fatal("expected compile error")
	}
}
