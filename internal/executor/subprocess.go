package executor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/rahlplx/workforce/internal/guardrail"
)

// Subprocess runs a local worker binary: stdin = JSON Request, stdout =
// NDJSON events per line. Non-JSON lines accumulate into the result output.
// The binary is trusted to do the effect; the pipeline has already validated
// the proposed action before Execute is called.
type Subprocess struct {
	Command string
	Args    []string
	Timeout time.Duration // 0 = context only
}

func (s Subprocess) Name() string { return "subprocess" }

// Propose declares the intended action: invoking the configured command with
// the instruction as payload. The action guardrail screens both.
func (s Subprocess) Propose(ctx context.Context, req Request) (guardrail.Action, error) {
	if s.Command == "" {
		return guardrail.Action{}, errors.New("subprocess command is required")
	}
	return guardrail.Action{
		Type:    "subprocess",
		Target:  s.Command,
		Payload: req.Instruction,
	}, nil
}

func (s Subprocess) Execute(ctx context.Context, action guardrail.Action, req Request, emit func(Event)) (Result, error) {
	if s.Command == "" {
		return Result{}, errors.New("subprocess command is required")
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, s.Command, s.Args...)

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return Result{}, err
	}
	cmd.Stdin = strings.NewReader(string(reqJSON) + "\n")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, err
	}
	if err := cmd.Start(); err != nil {
		return Result{}, err
	}
	defer func() {
		if ctx.Err() != nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		if err := cmd.Wait(); err != nil {
			slog.Warn("subprocess exited with error", "command", s.Command, "err", err)
		}
	}()

	var output strings.Builder
	sc := bufio.NewScanner(stdout)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			output.WriteString(line)
			output.WriteString("\n")
			continue
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now().UTC()
		}
		emit(ev)
	}
	if err := sc.Err(); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Output: strings.TrimSpace(output.String())}, nil
}
