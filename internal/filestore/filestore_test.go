package filestore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/telebot.v4"
)

func fixedStore(t *testing.T) *Store {
	s := New(t.TempDir(), time.UTC)
	s.now = func() time.Time { return time.Date(2026, 3, 10, 8, 15, 30, 0, time.UTC) }
	return s
}

func TestSaveLayout(t *testing.T) {
	s := fixedStore(t)

	path, err := s.Save(-100, 7, "Breakfast Time", strings.NewReader("jpeg"), "../photo.jpg", "photos")
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	want := filepath.Join(s.base, "groups", "gid_-100", "photos", "2026_03_10", "Breakfast_Time", "7_081530_photo.jpg")
	if path != want {
		t.Errorf("path = %s, want %s", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "jpeg" {
		t.Errorf("file content = %q, %v", data, err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, temp file left behind?", len(entries))
	}
}

type locator map[string]string

type failingLocator struct{ err error }

func (l failingLocator) FileByID(string) (telebot.File, error) {
	return telebot.File{}, l.err
}

func (l locator) FileByID(id string) (telebot.File, error) {
	return telebot.File{FileID: id, FilePath: l[id]}, nil
}

func TestDownloaderPersist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/file/botTOKEN/videos/file_1.mp4" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("video-bytes"))
	}))
	defer srv.Close()

	s := fixedStore(t)
	d := NewDownloader(s, locator{"abc": "videos/file_1.mp4", "gone": "videos/missing.mp4"}, srv.URL+"/", "TOKEN")
	d.client.SetRetryCount(0)

	path, err := d.Persist(context.Background(), Request{
		GroupID: -1, UserID: 2, SlotName: "Lunch", FileID: "abc", Category: "videos",
	})
	if err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if filepath.Base(path) != "2_081530_file_1.mp4" {
		t.Errorf("saved as %s", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "video-bytes" {
		t.Errorf("content = %q", data)
	}

	if _, err := d.Persist(context.Background(), Request{GroupID: -1, FileID: "gone", Category: "videos"}); err == nil {
		t.Error("Persist() of a missing file succeeded")
	}
}

func TestDownloaderErrorsHideToken(t *testing.T) {
	const token = "123456:SECRET-TOKEN"
	s := fixedStore(t)

	d := NewDownloader(s, locator{"abc": "photos/a.jpg"}, "http://127.0.0.1:1", token)
	d.client.SetRetryCount(0)
	_, err := d.Persist(context.Background(), Request{GroupID: -1, FileID: "abc", Category: "photos"})
	if err == nil {
		t.Fatal("Persist() against a closed port succeeded")
	}
	if strings.Contains(err.Error(), "SECRET-TOKEN") {
		t.Errorf("download error leaks the token: %v", err)
	}

	resolveErr := errors.New(`Post "https://api.telegram.org/bot` + token + `/getFile": connection reset`)
	d = NewDownloader(s, failingLocator{err: resolveErr}, "http://127.0.0.1:1", token)
	_, err = d.Persist(context.Background(), Request{GroupID: -1, FileID: "abc", Category: "photos"})
	if err == nil {
		t.Fatal("Persist() with a failing locator succeeded")
	}
	if strings.Contains(err.Error(), "SECRET-TOKEN") {
		t.Errorf("resolve error leaks the token: %v", err)
	}
}

func TestRestyLoggerMasksToken(t *testing.T) {
	l := restyLogger{token: "T0K3N"}
	if got := l.mask("GET %s failed", []any{"https://x/file/botT0K3N/a"}); strings.Contains(got, "T0K3N") {
		t.Errorf("mask() = %q", got)
	}
}
