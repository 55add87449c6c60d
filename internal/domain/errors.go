package domain

import "errors"

// Domain errors.
var (
	// ErrNotFound is returned when the remote page or media no longer exists.
	ErrNotFound = errors.New("remote media not found")

	// ErrFetchFailed is returned when a page or photo fetch fails.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrRateLimited is returned when rate limited by the remote platform.
	ErrRateLimited = errors.New("rate limited")

	// ErrWorkdirExists is returned when a working directory for a message already exists.
	ErrWorkdirExists = errors.New("working directory already exists")

	// ErrToolMissing is returned when yt-dlp or ffmpeg cannot be found.
	ErrToolMissing = errors.New("external tool not found in PATH")

	// ErrProbeFailed is returned when video metadata cannot be read.
	ErrProbeFailed = errors.New("video metadata probe failed")

	// ErrDownloadFailed is returned when the video download fails.
	ErrDownloadFailed = errors.New("video download failed")

	// ErrTranscodeFailed is returned when ffmpeg fails to convert the video.
	ErrTranscodeFailed = errors.New("video transcode failed")

	// ErrUploadFailed is returned when the chat platform rejects an upload.
	ErrUploadFailed = errors.New("upload failed")

	// ErrNoPhotos is returned when a slideshow page yields no photo URLs.
	ErrNoPhotos = errors.New("no slideshow photos found")

	// ErrRunNotFound is returned when a run cannot be found.
	ErrRunNotFound = errors.New("run not found")
)

// RunError wraps an error with the triggering message and the failing step.
type RunError struct {
	MessageID MessageID
	Op        string
	Err       error
}

func (e *RunError) Error() string {
	if e.MessageID != "" {
		return e.Op + " [" + e.MessageID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError creates a new RunError.
func NewRunError(messageID MessageID, op string, err error) *RunError {
	return &RunError{
		MessageID: messageID,
		Op:        op,
		Err:       err,
	}
}
