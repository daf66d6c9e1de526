package codegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"appforge/internal/domain"
)

// distDirName is the conventional build output directory the toolchain
// must produce for a build to count as successful.
const distDirName = "dist"

// ProjectBuilder invokes the external build toolchain against a
// materialized project directory.
type ProjectBuilder struct {
	command string
	timeout time.Duration
	logger  *slog.Logger
}

// NewProjectBuilder creates a builder running the given shell-less command
// line (e.g. "npm run build") with a fixed per-build timeout.
func NewProjectBuilder(command string, timeout time.Duration, logger *slog.Logger) *ProjectBuilder {
	return &ProjectBuilder{
		command: command,
		timeout: timeout,
		logger:  logger,
	}
}

// Build runs the toolchain in projectDir and blocks until completion or
// timeout. It succeeds only if the process exits cleanly AND a non-empty
// dist directory exists afterwards. Build failure is terminal for the
// caller's deploy attempt; it is surfaced, never retried here.
func (b *ProjectBuilder) Build(ctx context.Context, projectDir string) error {
	info, err := os.Stat(projectDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: project directory %s does not exist", domain.ErrBuildFailed, projectDir)
	}

	parts := strings.Fields(b.command)
	if len(parts) == 0 {
		return fmt.Errorf("%w: build command is empty", domain.ErrBuildFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = projectDir

	start := time.Now()
	output, err := cmd.CombinedOutput()
	elapsed := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: timed out after %s", domain.ErrBuildFailed, b.timeout)
	}
	if err != nil {
		b.logger.Error("build command failed",
			"dir", projectDir,
			"command", b.command,
			"elapsed", elapsed,
			"output", tail(string(output), 2000),
		)
		return fmt.Errorf("%w: %v", domain.ErrBuildFailed, err)
	}

	if err := checkDistDir(projectDir); err != nil {
		return err
	}

	b.logger.Info("project built",
		"dir", projectDir,
		"elapsed", elapsed,
	)

	return nil
}

// checkDistDir verifies the conventional output directory exists and is
// non-empty.
func checkDistDir(projectDir string) error {
	distDir := filepath.Join(projectDir, distDirName)

	entries, err := os.ReadDir(distDir)
	if err != nil {
		return fmt.Errorf("%w: build produced no %s directory", domain.ErrBuildFailed, distDirName)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: %s directory is empty", domain.ErrBuildFailed, distDirName)
	}

	return nil
}

// tail returns at most the last n bytes of s, for log-friendly output.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
