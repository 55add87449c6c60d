package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iconidentify/tokgrabba/internal/config"
	"github.com/iconidentify/tokgrabba/internal/domain"
	"github.com/iconidentify/tokgrabba/internal/workspace"
)

const slideshowURL = "https://www.tiktok.com/@user/video/7221939078197955846?lang=en"

func slideshowPage() string {
	return `<script>{"images":["https://cdn/i-photomode-us/a~1.jpeg","https://cdn/i-photomode-us/b~2.jpeg","https://cdn/i-photomode-tx/a~3.jpeg"]}</script>`
}

type slideshowFixture struct {
	svc      *SlideshowService
	platform *fakePlatform
	fetcher  *fakeFetcher
	dir      workspace.Dir
	sleeps   []time.Duration
}

func newSlideshowFixture(t *testing.T) *slideshowFixture {
	t.Helper()

	f := &slideshowFixture{
		platform: newFakePlatform(),
		fetcher:  newFakeFetcher(),
		dir:      workspace.Dir{Path: t.TempDir()},
	}
	f.fetcher.pages[slideshowURL] = slideshowPage()
	f.fetcher.files["https://cdn/i-photomode-tx/a~3.jpeg"] = []byte("photo-a")
	f.fetcher.files["https://cdn/i-photomode-us/b~2.jpeg"] = []byte("photo-b")

	f.svc = NewSlideshowService(f.fetcher, f.platform, testMedia(), config.TimeoutConfig{}, testLogger())
	f.svc.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return nil
	}
	return f
}

func slideshowLink() domain.Link {
	return domain.Link{URL: slideshowURL, MessageID: "1001", ChannelID: "chan", Author: "alice"}
}

func TestSlideshowService_Deliver(t *testing.T) {
	f := newSlideshowFixture(t)

	n, err := f.svc.Deliver(context.Background(), slideshowLink(), f.dir)
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if n != 2 {
		t.Errorf("photos = %d, want 2", n)
	}

	// The page is fetched again, independent of classification.
	if f.fetcher.textCalls() != 1 {
		t.Errorf("page fetches = %d, want 1", f.fetcher.textCalls())
	}

	sends := f.platform.ops("send")
	if len(sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(sends))
	}
	wantHeader := "*alice*:\n<https://www.tiktok.com/@user/video/7221939078197955846>\n"
	if sends[0].Arg != wantHeader {
		t.Errorf("header = %q, want %q", sends[0].Arg, wantHeader)
	}

	threads := f.platform.ops("start_thread")
	if len(threads) != 1 || threads[0].Arg != "Slideshow Thread 7221939078197955846" {
		t.Fatalf("threads = %+v", threads)
	}
	if threads[0].Message != "sent-1" {
		t.Errorf("thread anchored to %q, want the header message", threads[0].Message)
	}

	uploads := f.platform.ops("send_file")
	wantFiles := []string{"a.jpeg", "b.jpeg"}
	if len(uploads) != len(wantFiles) {
		t.Fatalf("uploads = %d, want %d", len(uploads), len(wantFiles))
	}
	for i, u := range uploads {
		if filepath.Base(u.Arg) != wantFiles[i] {
			t.Errorf("upload[%d] = %q, want %q", i, filepath.Base(u.Arg), wantFiles[i])
		}
		if u.Channel != "thread-2" {
			t.Errorf("upload[%d] went to %q, want the thread", i, u.Channel)
		}
	}

	data, err := os.ReadFile(filepath.Join(f.dir.Path, "a.jpeg"))
	if err != nil || string(data) != "photo-a" {
		t.Errorf("a.jpeg = %q, %v; want the last variant's bytes", data, err)
	}

	if len(f.sleeps) != 1 || f.sleeps[0] != time.Second {
		t.Errorf("sleeps = %v, want one 1s pause between two uploads", f.sleeps)
	}

	deletes := f.platform.ops("delete")
	if len(deletes) != 1 || deletes[0].Message != "1001" {
		t.Errorf("deletes = %+v, want original message", deletes)
	}
	last := f.platform.calls[len(f.platform.calls)-1]
	if last.Op != "delete" {
		t.Errorf("last call = %q, want delete", last.Op)
	}
}

func TestSlideshowService_NoPhotos(t *testing.T) {
	f := newSlideshowFixture(t)
	f.fetcher.pages[slideshowURL] = `<html>"i-photomode"</html>`

	_, err := f.svc.Deliver(context.Background(), slideshowLink(), f.dir)
	if !errors.Is(err, domain.ErrNoPhotos) {
		t.Errorf("expected ErrNoPhotos, got %v", err)
	}
	if f.platform.callCount() != 0 {
		t.Error("nothing should be posted without photos")
	}
}

func TestSlideshowService_PageFetchError(t *testing.T) {
	f := newSlideshowFixture(t)
	f.fetcher.pageErr = domain.ErrFetchFailed

	_, err := f.svc.Deliver(context.Background(), slideshowLink(), f.dir)
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Errorf("expected ErrFetchFailed, got %v", err)
	}
	if f.platform.callCount() != 0 {
		t.Error("nothing should be posted after a fetch failure")
	}
}

func TestSlideshowService_PhotoFetchError(t *testing.T) {
	f := newSlideshowFixture(t)
	delete(f.fetcher.files, "https://cdn/i-photomode-us/b~2.jpeg")

	_, err := f.svc.Deliver(context.Background(), slideshowLink(), f.dir)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(f.platform.ops("send")) != 0 {
		t.Error("header should not be posted before all photos are downloaded")
	}
	if len(f.platform.ops("delete")) != 0 {
		t.Error("original message should be kept on failure")
	}
}

func TestSlideshowService_UploadError(t *testing.T) {
	f := newSlideshowFixture(t)
	f.platform.failOp = "send_file"

	_, err := f.svc.Deliver(context.Background(), slideshowLink(), f.dir)
	if err == nil {
		t.Fatal("expected upload error")
	}
	if len(f.platform.ops("delete")) != 0 {
		t.Error("original message should be kept on failure")
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("zero sleep: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
