// Package filestore persists accepted media under
// <base>/groups/gid_<group>/<category>/<YYYY_MM_DD>/<slot>/<file>.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

type Store struct {
	base string
	now  func() time.Time
}

func New(base string, loc *time.Location) *Store {
	return &Store{
		base: base,
		now:  func() time.Time { return time.Now().In(loc) },
	}
}

var unsafeChars = strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_", " ", "_")

func clean(segment string) string {
	segment = unsafeChars.Replace(strings.TrimSpace(segment))
	if segment == "" {
		return "unnamed"
	}
	return segment
}

// Dir returns the folder a file saved now would land in.
func (s *Store) Dir(groupID int64, slotName, category string) string {
	return filepath.Join(
		s.base,
		"groups",
		fmt.Sprintf("gid_%d", groupID),
		clean(category),
		s.now().Format("2006_01_02"),
		clean(slotName),
	)
}

// Save writes raw to a new file and returns its path.
func (s *Store) Save(groupID, userID int64, slotName string, raw io.Reader, filename, category string) (string, error) {
	dir := s.Dir(groupID, slotName, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	name := fmt.Sprintf("%d_%s_%s", userID, s.now().Format("150405"), clean(filepath.Base(filename)))
	path := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, raw); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("moving %s into place: %w", name, err)
	}

	logrus.Debugf("saved file for user %d in group %d: %s", userID, groupID, path)
	return path, nil
}

type fileLocator interface {
	FileByID(fileID string) (telebot.File, error)
}

// Downloader fetches Telegram files by id and hands them to a Store.
type Downloader struct {
	store   *Store
	files   fileLocator
	baseURL string
	token   string
	client  *resty.Client
}

func NewDownloader(store *Store, files fileLocator, apiURL, token string) *Downloader {
	return &Downloader{
		store:   store,
		files:   files,
		baseURL: strings.TrimRight(apiURL, "/"),
		token:   token,
		client: resty.New().
			SetLogger(restyLogger{token: token}).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second).
			SetTimeout(time.Minute),
	}
}

type Request struct {
	GroupID  int64
	UserID   int64
	SlotName string
	FileID   string
	FileName string
	Category string
}

// Persist downloads the file and saves it locally, returning the local path.
func (d *Downloader) Persist(ctx context.Context, req Request) (string, error) {
	file, err := d.files.FileByID(req.FileID)
	if err != nil {
		return "", fmt.Errorf("resolving file %s: %w", req.FileID, d.scrub(err))
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(fmt.Sprintf("%s/file/bot%s/%s", d.baseURL, d.token, file.FilePath))
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", file.FilePath, d.scrub(err))
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	name := req.FileName
	if name == "" {
		name = filepath.Base(file.FilePath)
	}
	return d.store.Save(req.GroupID, req.UserID, req.SlotName, body, name, req.Category)
}

// scrub strips the request URL from a transport error. File URLs carry the bot token.
func (d *Downloader) scrub(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	if d.token == "" || !strings.Contains(err.Error(), d.token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), d.token, "<token>"))
}

// restyLogger routes resty's retry warnings to logrus with the token masked.
type restyLogger struct {
	token string
}

func (l restyLogger) mask(format string, v []any) string {
	msg := fmt.Sprintf(format, v...)
	if l.token == "" {
		return msg
	}
	return strings.ReplaceAll(msg, l.token, "<token>")
}

func (l restyLogger) Errorf(format string, v ...any) { logrus.Error(l.mask(format, v)) }
func (l restyLogger) Warnf(format string, v ...any)  { logrus.Warn(l.mask(format, v)) }
func (l restyLogger) Debugf(format string, v ...any) { logrus.Debug(l.mask(format, v)) }
