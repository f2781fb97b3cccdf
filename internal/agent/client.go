// Package agent runs the local llama.cpp command line binary and cleans up
// what it prints.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// NoTokens is returned as the answer text when the model printed nothing,
// even after the retry.
const NoTokens = "(no tokens generated — try a shorter question or fewer max tokens)"

const instruction = "You are a helpful physiotherapy assistant. " +
	"Respond in clear Markdown with these sections: **Summary**, **Steps**, **Cautions**. " +
	"Use short bullet points. Avoid repeating the prompt.\n\n"

// logPrefixes mark llama.cpp diagnostics that end up on stdout.
var logPrefixes = []string{
	"llama_", "ggml_", "build:", "main:", "load:", "print_info:",
	"sampler", "generate:", "llama_perf", "system_info:", "ggml_metal_",
}

// Options are the llama-cli invocation settings.
type Options struct {
	BinPath     string
	ModelPath   string
	MaxTokens   int
	Threads     int
	Batch       int
	NoWarmup    bool
	Temperature float64
	TopP        float64
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		BinPath:     "bin/llama-cli",
		ModelPath:   "model/model.gguf",
		MaxTokens:   800,
		Threads:     max(1, runtime.NumCPU()/2),
		Batch:       1024,
		NoWarmup:    true,
		Temperature: 0.7,
		TopP:        0.9,
	}
}

// Answer is one model reply.
type Answer struct {
	Text    string
	Latency time.Duration
	Stderr  string
}

// Model is what the chat needs from an inference backend.
type Model interface {
	Preflight() error
	Generate(ctx context.Context, prompt string) (Answer, error)
}

// PreflightError lists every problem found before any invocation.
type PreflightError struct {
	Problems []string
}

func (e *PreflightError) Error() string {
	return "model unavailable: " + strings.Join(e.Problems, "; ")
}

type LlamaCLI struct {
	opts   Options
	logger *zap.Logger
}

func NewLlamaCLI(opts Options, logger *zap.Logger) *LlamaCLI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LlamaCLI{opts: opts, logger: logger}
}

// Preflight checks the binary and model files without running anything.
func (c *LlamaCLI) Preflight() error {
	var problems []string
	if fi, err := os.Stat(c.opts.BinPath); err != nil || fi.IsDir() {
		problems = append(problems, fmt.Sprintf("missing binary: %s", c.opts.BinPath))
	} else if fi.Mode().Perm()&0o111 == 0 {
		problems = append(problems, fmt.Sprintf("binary not executable: %s (run chmod +x %s)", c.opts.BinPath, c.opts.BinPath))
	}
	if fi, err := os.Stat(c.opts.ModelPath); err != nil || fi.IsDir() {
		problems = append(problems, fmt.Sprintf("missing model: %s", c.opts.ModelPath))
	}
	if len(problems) > 0 {
		return &PreflightError{Problems: problems}
	}
	return nil
}

// Generate asks the model once with the instruction template and once more
// with the bare prompt if the first reply is empty. The exit status of the
// binary is ignored; only a failure to run it is an error.
func (c *LlamaCLI) Generate(ctx context.Context, prompt string) (Answer, error) {
	prompt = strings.TrimSpace(prompt)

	ans, err := c.run(ctx, instruction+prompt+"\n\nAnswer:")
	if err != nil {
		return Answer{}, err
	}
	if ans.Text == "" {
		c.logger.Debug("empty reply, retrying with raw prompt")
		if ans, err = c.run(ctx, prompt); err != nil {
			return Answer{}, err
		}
	}
	if ans.Text == "" {
		ans.Text = NoTokens
	}
	return ans, nil
}

func (c *LlamaCLI) args(prompt string) []string {
	args := []string{
		"-m", c.opts.ModelPath,
		"-p", prompt,
		"-n", strconv.Itoa(c.opts.MaxTokens),
		"-t", strconv.Itoa(c.opts.Threads),
		"-b", strconv.Itoa(c.opts.Batch),
		"--temp", strconv.FormatFloat(c.opts.Temperature, 'f', -1, 64),
		"--top-p", strconv.FormatFloat(c.opts.TopP, 'f', -1, 64),
	}
	if c.opts.NoWarmup {
		args = append(args, "--no-warmup")
	}
	return args
}

func (c *LlamaCLI) run(ctx context.Context, prompt string) (Answer, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.opts.BinPath, c.args(prompt)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	err := cmd.Run()
	latency := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Answer{}, fmt.Errorf("llama-cli: %w", ctxErr)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return Answer{}, fmt.Errorf("run llama-cli: %w", err)
	}
	if exitErr != nil {
		c.logger.Debug("llama-cli exited with status", zap.Int("code", exitErr.ExitCode()))
	}

	return Answer{
		Text:    filterOutput(stdout.String()),
		Latency: latency,
		Stderr:  strings.TrimSpace(stderr.String()),
	}, nil
}

// filterOutput drops the llama.cpp log lines from stdout.
func filterOutput(raw string) string {
	var kept []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if isLogLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isLogLine(line string) bool {
	for _, p := range logPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
