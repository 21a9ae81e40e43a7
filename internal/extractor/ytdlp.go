package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
)

// waitDelay bounds how long Fetch waits for output pipes after the process is killed.
const waitDelay = 2 * time.Second

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// YtDlpSource runs the yt-dlp binary and decodes its info JSON.
type YtDlpSource struct {
	binaryPath string
	proxyURL   string
	name       string
}

// NewYtDlpSource creates a source for binaryPath. An empty path means
// "yt-dlp" on PATH.
func NewYtDlpSource(binaryPath string) *YtDlpSource {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}
	return &YtDlpSource{binaryPath: binaryPath, name: "yt-dlp"}
}

// WithProxy returns a copy that routes requests through proxyURL.
func (s *YtDlpSource) WithProxy(proxyURL string) *YtDlpSource {
	cp := *s
	cp.proxyURL = proxyURL
	cp.name = "yt-dlp+proxy"
	return &cp
}

func (s *YtDlpSource) Name() string { return s.name }

// Available reports whether the binary can be found.
func (s *YtDlpSource) Available() bool {
	_, err := exec.LookPath(s.binaryPath)
	return err == nil
}

func (s *YtDlpSource) args(rawURL string) []string {
	args := []string{
		"-J",
		"--skip-download",
		"--no-warnings",
		"--no-playlist",
		"--user-agent", userAgent,
	}
	if s.proxyURL != "" {
		args = append(args, "--proxy", s.proxyURL)
	}
	return append(args, rawURL)
}

// Fetch runs yt-dlp until ctx is done. Failures are classified from stderr.
func (s *YtDlpSource) Fetch(ctx context.Context, rawURL string) (*VideoInfo, error) {
	cmd := exec.CommandContext(ctx, s.binaryPath, s.args(rawURL)...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, classify(ctx.Err(), "")
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.Wrap(apperr.CodeServiceUnavailable, "yt-dlp binary is not available", err)
		}
		return nil, classify(fmt.Errorf("yt-dlp failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String())), stderr.String())
	}

	var info VideoInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, apperr.Wrap(apperr.CodeExtractionFailed, "yt-dlp returned malformed output", err)
	}
	return &info, nil
}
