// Package ytdlp wraps the yt-dlp binary for metadata probes and downloads.
package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrNotFound is returned when yt-dlp reports the source as missing (HTTP 404).
	ErrNotFound = errors.New("yt-dlp: source not found")

	// ErrFailed is returned for any other yt-dlp failure.
	ErrFailed = errors.New("yt-dlp failed")
)

// Info is the subset of yt-dlp metadata the bot uses.
type Info struct {
	ID       string
	Title    string
	Uploader string
	Duration float64
}

// Runner executes a command and returns its stdout and stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	err := cmd.Run()
	return out.Bytes(), stderr.Bytes(), err
}

// Client invokes yt-dlp.
type Client struct {
	binaryPath string
	retries    int
	runner     Runner
}

// NewClient locates yt-dlp in PATH.
func NewClient(retries int) (*Client, error) {
	path, err := exec.LookPath("yt-dlp")
	if err != nil {
		return nil, fmt.Errorf("yt-dlp not found in PATH: %w", err)
	}
	return NewClientWithRunner(path, retries, ExecRunner{}), nil
}

// NewClientWithRunner creates a client that executes through runner.
func NewClientWithRunner(binaryPath string, retries int, runner Runner) *Client {
	return &Client{
		binaryPath: binaryPath,
		retries:    retries,
		runner:     runner,
	}
}

// Probe reads metadata without downloading the media.
func (c *Client) Probe(ctx context.Context, url string) (*Info, error) {
	out, stderr, err := c.runner.Run(ctx, c.binaryPath, c.probeArgs(url)...)
	if err != nil {
		return nil, classify("probe", err, stderr)
	}

	if !gjson.ValidBytes(out) {
		return nil, fmt.Errorf("%w: probe returned invalid JSON", ErrFailed)
	}

	return &Info{
		ID:       gjson.GetBytes(out, "id").String(),
		Title:    gjson.GetBytes(out, "title").String(),
		Uploader: gjson.GetBytes(out, "uploader").String(),
		Duration: gjson.GetBytes(out, "duration").Float(),
	}, nil
}

// Download saves the media at url to outputPath.
func (c *Client) Download(ctx context.Context, url, outputPath string) error {
	_, stderr, err := c.runner.Run(ctx, c.binaryPath, c.downloadArgs(url, outputPath)...)
	if err != nil {
		return classify("download", err, stderr)
	}
	return nil
}

// Version returns the yt-dlp version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, _, err := c.runner.Run(ctx, c.binaryPath, "--version")
	if err != nil {
		return "", fmt.Errorf("%w: version: %v", ErrFailed, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *Client) probeArgs(url string) []string {
	return []string{
		"--dump-single-json",
		"--skip-download",
		"--no-warnings",
		"--quiet",
		"--retries", strconv.Itoa(c.retries),
		url,
	}
}

func (c *Client) downloadArgs(url, outputPath string) []string {
	return []string{
		"--output", outputPath,
		"--retries", strconv.Itoa(c.retries),
		"--quiet",
		"--no-warnings",
		"--no-progress",
		"--no-playlist",
		url,
	}
}

// classify turns a yt-dlp failure into a sentinel error. yt-dlp only reports
// HTTP status through its stderr text.
func classify(op string, err error, stderr []byte) error {
	msg := lastLine(stderr)
	if msg == "" {
		msg = err.Error()
	}
	if strings.Contains(msg, "404") {
		return fmt.Errorf("%w: %s: %s", ErrNotFound, op, msg)
	}
	return fmt.Errorf("%w: %s: %s", ErrFailed, op, msg)
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
