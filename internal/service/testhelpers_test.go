package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/iconidentify/tokgrabba/internal/chat"
	"github.com/iconidentify/tokgrabba/internal/config"
	"github.com/iconidentify/tokgrabba/internal/domain"
	"github.com/iconidentify/tokgrabba/pkg/ffmpeg"
	"github.com/iconidentify/tokgrabba/pkg/ytdlp"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMarkers() config.MarkerConfig {
	return config.MarkerConfig{Pending: "⌛", TooLarge: "📦", Error: "❌"}
}

func testMedia() config.MediaConfig {
	return config.MediaConfig{
		SlideshowMarker: "i-photomode",
		Extension:       "mp4",
		VideoCodec:      "libx264",
		Preset:          "medium",
		Compression:     23,
		MaxUploadBytes:  25_000_000,
		YtDlpRetries:    3,
		UploadPacing:    time.Second,
	}
}

func testBot() config.BotConfig {
	return config.BotConfig{
		Prefix:             "-",
		NoScanCommand:      "ns",
		RescanCommand:      "rs",
		DefaultRescanCount: 25,
		MaxRescanCount:     0,
		DomainMarker:       "tiktok.com",
	}
}

// platformCall is one recorded chat operation.
type platformCall struct {
	Op      string
	Channel domain.ChannelID
	Message domain.MessageID
	Arg     string // content, emoji, thread name or file path
}

// fakePlatform is a test implementation of chat.Platform.
type fakePlatform struct {
	mu        sync.Mutex
	calls     []platformCall
	reactions map[domain.MessageID][]string
	history   []chat.Message
	limits    []int
	next      int

	failOp string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{reactions: make(map[domain.MessageID][]string)}
}

func (f *fakePlatform) record(op string, ch domain.ChannelID, msg domain.MessageID, arg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, platformCall{Op: op, Channel: ch, Message: msg, Arg: arg})
	if f.failOp == op {
		return fmt.Errorf("%s rejected", op)
	}
	return nil
}

func (f *fakePlatform) newID(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return fmt.Sprintf("%s-%d", prefix, f.next)
}

func (f *fakePlatform) Send(ctx context.Context, ch domain.ChannelID, content string) (*chat.Message, error) {
	if err := f.record("send", ch, "", content); err != nil {
		return nil, err
	}
	return &chat.Message{ID: domain.MessageID(f.newID("sent")), ChannelID: ch, Content: content}, nil
}

func (f *fakePlatform) SendFile(ctx context.Context, ch domain.ChannelID, content, path string) (*chat.Message, error) {
	if err := f.record("send_file", ch, "", path); err != nil {
		return nil, err
	}
	return &chat.Message{ID: domain.MessageID(f.newID("file")), ChannelID: ch, Content: content}, nil
}

func (f *fakePlatform) Delete(ctx context.Context, ch domain.ChannelID, msg domain.MessageID) error {
	return f.record("delete", ch, msg, "")
}

func (f *fakePlatform) React(ctx context.Context, ch domain.ChannelID, msg domain.MessageID, emoji string) error {
	if err := f.record("react", ch, msg, emoji); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions[msg] = append(f.reactions[msg], emoji)
	return nil
}

func (f *fakePlatform) Unreact(ctx context.Context, ch domain.ChannelID, msg domain.MessageID, emoji string) error {
	if err := f.record("unreact", ch, msg, emoji); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.reactions[msg][:0]
	for _, e := range f.reactions[msg] {
		if e != emoji {
			kept = append(kept, e)
		}
	}
	f.reactions[msg] = kept
	return nil
}

func (f *fakePlatform) StartThread(ctx context.Context, ch domain.ChannelID, msg domain.MessageID, name string) (domain.ChannelID, error) {
	if err := f.record("start_thread", ch, msg, name); err != nil {
		return "", err
	}
	return domain.ChannelID(f.newID("thread")), nil
}

func (f *fakePlatform) History(ctx context.Context, ch domain.ChannelID, limit int) ([]chat.Message, error) {
	if err := f.record("history", ch, "", fmt.Sprint(limit)); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	n := min(limit, len(f.history))
	out := make([]chat.Message, n)
	copy(out, f.history[:n])
	return out, nil
}

func (f *fakePlatform) ops(op string) []platformCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []platformCall
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakePlatform) reactionsOn(msg domain.MessageID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reactions[msg]...)
}

func (f *fakePlatform) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeFetcher is a test implementation of downloader.Fetcher.
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	files    map[string][]byte
	pageErr  error
	fileErr  error
	textURLs []string
	fileURLs []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string]string), files: make(map[string][]byte)}
}

func (f *fakeFetcher) FetchText(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textURLs = append(f.textURLs, url)
	if f.pageErr != nil {
		return "", f.pageErr
	}
	return f.pages[url], nil
}

func (f *fakeFetcher) FetchToFile(ctx context.Context, url, path string) (int64, error) {
	f.mu.Lock()
	f.fileURLs = append(f.fileURLs, url)
	data, ok := f.files[url]
	err := f.fileErr
	f.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: status code 404", domain.ErrNotFound)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (f *fakeFetcher) textCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.textURLs)
}

// fakeSource is a test implementation of VideoSource.
type fakeSource struct {
	title       string
	rawSize     int64
	probeErr    error
	downloadErr error
	downloads   int
}

func (f *fakeSource) Probe(ctx context.Context, url string) (*ytdlp.Info, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return &ytdlp.Info{ID: "1", Title: f.title}, nil
}

func (f *fakeSource) Download(ctx context.Context, url, outputPath string) error {
	f.downloads++
	if f.downloadErr != nil {
		return f.downloadErr
	}
	return writeSized(outputPath, f.rawSize)
}

// fakeTranscoder is a test implementation of Transcoder.
type fakeTranscoder struct {
	outSize int64
	err     error
	calls   []ffmpeg.TranscodeConfig
	inputs  []string
	outputs []string

	// info is returned by GetVideoInfo with FileSize filled from disk.
	info    ffmpeg.VideoInfo
	infoErr error
}

func newFakeTranscoder(outSize int64) *fakeTranscoder {
	return &fakeTranscoder{
		outSize: outSize,
		info:    ffmpeg.VideoInfo{VideoCodec: "h264", Duration: 12.5, HasAudio: true, AudioCodec: "aac"},
	}
}

func (f *fakeTranscoder) Transcode(ctx context.Context, in, out string, cfg ffmpeg.TranscodeConfig) error {
	f.calls = append(f.calls, cfg)
	f.inputs = append(f.inputs, in)
	f.outputs = append(f.outputs, out)
	if f.err != nil {
		return f.err
	}
	return writeSized(out, f.outSize)
}

func (f *fakeTranscoder) GetVideoInfo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	info := f.info
	info.FileSize = stat.Size()
	return &info, nil
}

// writeSized creates a sparse file of size bytes.
func writeSized(path string, size int64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := file.Truncate(size); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// syncSpawner runs tasks inline.
type syncSpawner struct {
	names []string
	errs  []error
	err   error
}

func (s *syncSpawner) Go(name string, task func(ctx context.Context) error) error {
	if s.err != nil {
		return s.err
	}
	s.names = append(s.names, name)
	s.errs = append(s.errs, task(context.Background()))
	return nil
}

// fakeLinkHandler records handled links.
type fakeLinkHandler struct {
	links  []domain.Link
	failOn domain.MessageID
}

var errLinkFailed = errors.New("link failed")

func (f *fakeLinkHandler) HandleLink(ctx context.Context, link domain.Link) error {
	f.links = append(f.links, link)
	if link.MessageID == f.failOn {
		return errLinkFailed
	}
	return nil
}

func (f *fakeLinkHandler) messageIDs() []domain.MessageID {
	out := make([]domain.MessageID, len(f.links))
	for i, l := range f.links {
		out[i] = l.MessageID
	}
	return out
}
