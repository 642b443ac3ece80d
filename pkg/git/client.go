// Package git versions a note store by shelling out to the git binary.
package git

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
)

// ErrNothingToCommit is returned by Commit when the working tree is clean.
var ErrNothingToCommit = errors.New("nothing to commit")

// Client wraps git command execution with a file-based lock so that several
// processes sharing a store do not interleave commits.
type Client struct {
	WorkDir  string
	Logger   *slog.Logger
	lockPath string
}

// NewClient creates a git client for workDir. lockName is relative to workDir.
func NewClient(workDir, lockName string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if lockName == "" {
		lockName = ".notefold.lock"
	}
	return &Client{
		WorkDir:  workDir,
		Logger:   logger,
		lockPath: lockName,
	}
}

// IsInstalled reports whether a git binary is on PATH.
func IsInstalled() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsNothingToCommit reports whether err is a commit of a clean tree.
func IsNothingToCommit(err error) bool {
	return errors.Is(err, ErrNothingToCommit)
}

// IsRepo reports whether WorkDir is the top of a git repository.
func (c *Client) IsRepo() bool {
	info, err := os.Stat(filepath.Join(c.WorkDir, ".git"))
	return err == nil && info.IsDir()
}

// Lock acquires the file lock, polling until it is free or ctx is done.
func (c *Client) Lock(ctx context.Context) (func(), error) {
	fullLockPath := filepath.Join(c.WorkDir, c.lockPath)

	for {
		f, err := os.OpenFile(fullLockPath, os.O_CREATE|os.O_EXCL, 0666)
		if err == nil {
			f.Close()
			return func() {
				os.Remove(fullLockPath)
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire lock: %w", ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Run executes a raw git command in the working directory.
// It does not take the lock; callers wrap mutations in Lock.
func (c *Client) Run(args ...string) (string, error) {
	c.Logger.Debug("executing git", "args", args, "dir", c.WorkDir)

	cmd := exec.Command("git", args...)
	cmd.Dir = c.WorkDir

	out, err := cmd.CombinedOutput()
	output := string(out)
	if err != nil {
		if strings.Contains(output, "nothing to commit") || strings.Contains(output, "nothing added to commit") {
			return output, ErrNothingToCommit
		}
		return output, fmt.Errorf("git %s failed: %w\nOutput: %s", args[0], err, output)
	}
	return strings.TrimSpace(output), nil
}

// Init initializes a repository. Re-running on an existing one is harmless.
func (c *Client) Init() error {
	_, err := c.Run("init")
	return err
}

// Add stages paths.
func (c *Client) Add(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := c.Run(append([]string{"add"}, paths...)...)
	return err
}

// Commit records staged changes.
func (c *Client) Commit(msg string) error {
	_, err := c.Run("commit", "-m", msg)
	return err
}

// Status returns the porcelain status of the repository.
func (c *Client) Status() (string, error) {
	return c.Run("status", "--porcelain")
}

// Log returns the last n commit subjects, newest first.
func (c *Client) Log(n int) ([]string, error) {
	out, err := c.Run("log", fmt.Sprintf("-%d", n), "--pretty=format:%s")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}
