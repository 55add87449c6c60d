package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrFailed is returned when ffmpeg or ffprobe exits with an error.
var ErrFailed = errors.New("ffmpeg failed")

// Runner executes a command and returns its stdout and stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	err := cmd.Run()
	return out.Bytes(), stderr.Bytes(), err
}

// VideoProcessor handles video conversion and analysis using ffmpeg.
type VideoProcessor struct {
	ffmpegPath  string
	ffprobePath string
	runner      Runner
}

// NewVideoProcessor creates a new video processor.
// It will attempt to find ffmpeg and ffprobe in PATH.
func NewVideoProcessor() (*VideoProcessor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return NewVideoProcessorWithRunner(ffmpegPath, ffprobePath, execRunner{}), nil
}

// NewVideoProcessorWithRunner creates a processor that executes through runner.
func NewVideoProcessorWithRunner(ffmpegPath, ffprobePath string, runner Runner) *VideoProcessor {
	return &VideoProcessor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		runner:      runner,
	}
}

// TranscodeConfig configures a conversion.
type TranscodeConfig struct {
	VideoCodec string // e.g. "libx264"
	Preset     string // ultrafast ... veryslow
	CRF        int    // 0 is lossless, 51 is worst quality
}

// Transcode re-encodes the video stream of inputPath into outputPath and
// copies the audio stream unchanged. outputPath is overwritten.
func (p *VideoProcessor) Transcode(ctx context.Context, inputPath, outputPath string, cfg TranscodeConfig) error {
	if inputPath == outputPath {
		return fmt.Errorf("%w: input and output are the same file", ErrFailed)
	}

	_, stderr, err := p.runner.Run(ctx, p.ffmpegPath, transcodeArgs(inputPath, outputPath, cfg)...)
	if err != nil {
		return fmt.Errorf("%w: transcode: %v: %s", ErrFailed, err, tail(stderr))
	}
	return nil
}

func transcodeArgs(inputPath, outputPath string, cfg TranscodeConfig) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-codec:v", cfg.VideoCodec,
		"-codec:a", "copy",
		"-preset", cfg.Preset,
		"-crf", strconv.Itoa(cfg.CRF),
		outputPath,
	}
}

// VideoInfo contains metadata about a video file.
type VideoInfo struct {
	Duration   float64 // Duration in seconds
	Width      int
	Height     int
	HasAudio   bool
	AudioCodec string
	VideoCodec string
	FileSize   int64
}

// GetVideoInfo extracts metadata from a video file.
func (p *VideoProcessor) GetVideoInfo(ctx context.Context, videoPath string) (*VideoInfo, error) {
	stat, err := os.Stat(videoPath)
	if err != nil {
		return nil, fmt.Errorf("stat video: %w", err)
	}

	output, stderr, err := p.runner.Run(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe: %v: %s", ErrFailed, err, tail(stderr))
	}

	info, err := parseProbe(output)
	if err != nil {
		return nil, err
	}
	info.FileSize = stat.Size()
	return info, nil
}

func parseProbe(output []byte) (*VideoInfo, error) {
	type ffprobeFormat struct {
		Duration string `json:"duration"`
	}
	type ffprobeStream struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	}
	type ffprobeOutput struct {
		Format  ffprobeFormat   `json:"format"`
		Streams []ffprobeStream `json:"streams"`
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &VideoInfo{}
	if dur, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		info.Duration = dur
	}

	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
			if info.AudioCodec == "" {
				info.AudioCodec = s.CodecName
			}
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec = s.CodecName
				info.Width = s.Width
				info.Height = s.Height
			}
		}
	}
	return info, nil
}

// Version returns the first line of `ffmpeg -version`.
func (p *VideoProcessor) Version(ctx context.Context) (string, error) {
	out, _, err := p.runner.Run(ctx, p.ffmpegPath, "-version")
	if err != nil {
		return "", fmt.Errorf("%w: version: %v", ErrFailed, err)
	}
	lines := strings.Split(string(out), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		return strings.TrimSpace(lines[0]), nil
	}
	return "unknown", nil
}

func tail(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if len(s) > 512 {
		s = s[len(s)-512:]
	}
	return s
}
