// Package backup exports finalized recordings to an FTP server after each
// schedule cycle.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"golang.org/x/sync/errgroup"

	"github.com/wavepulse/wavepulse-go/internal/conf"
	"github.com/wavepulse/wavepulse-go/internal/errors"
)

const (
	tempFilePrefix = "tmp-"
	retryBackoff   = 2 * time.Second
	// maxConcurrentUploads bounds parallel FTP sessions; each upload uses
	// its own control connection.
	maxConcurrentUploads = 4
)

// FTPUploader uploads the day's recordings into a dated folder on a remote
// FTP server. Files are stored under a temporary name and renamed into
// place, so a half-transferred file is never mistaken for a recording.
type FTPUploader struct {
	cfg    conf.BackupSettings
	logger *slog.Logger
}

// NewFTPUploader validates the backup settings and builds the uploader.
func NewFTPUploader(cfg conf.BackupSettings, logger *slog.Logger) (*FTPUploader, error) {
	if cfg.Host == "" {
		return nil, errors.Newf("backup host is required").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.Port == 0 {
		cfg.Port = 21
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FTPUploader{cfg: cfg, logger: logger}, nil
}

// UploadRecordings uploads every recording in localDir into the dated remote
// folder. Uploads run in parallel over independent connections; the first
// hard failure cancels the rest.
func (u *FTPUploader) UploadRecordings(ctx context.Context, localDir string) error {
	files, err := listRecordings(localDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		u.logger.Info("no recordings to back up", "dir", localDir)
		return nil
	}

	remoteDir := dayFolder(u.cfg.RemoteFolder, time.Now())
	if err := u.ensureRemoteDir(remoteDir); err != nil {
		return err
	}

	u.logger.Info("uploading recordings",
		"count", len(files),
		"host", u.cfg.Host,
		"remote_dir", remoteDir)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUploads)
	for _, file := range files {
		g.Go(func() error {
			return u.uploadWithRetry(ctx, file, remoteDir)
		})
	}
	if err := g.Wait(); err != nil {
		return errors.New(err).
			Category(errors.CategoryFTP).
			Context("host", u.cfg.Host).
			Build()
	}

	u.logger.Info("recordings uploaded", "count", len(files))
	return nil
}

// uploadWithRetry retries a single file upload on a fixed backoff, dialing a
// fresh connection per attempt since FTP sessions rarely survive errors.
func (u *FTPUploader) uploadWithRetry(ctx context.Context, localPath, remoteDir string) error {
	var lastErr error
	for attempt := 1; attempt <= u.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = u.uploadFile(localPath, remoteDir); lastErr == nil {
			return nil
		}
		u.logger.Warn("upload attempt failed",
			"file", filepath.Base(localPath),
			"attempt", attempt,
			"error", lastErr)
		if attempt < u.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff):
			}
		}
	}
	return fmt.Errorf("upload %s failed after %d attempts: %w",
		filepath.Base(localPath), u.cfg.MaxRetries, lastErr)
}

func (u *FTPUploader) uploadFile(localPath, remoteDir string) error {
	conn, err := u.connect()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Quit() }()

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	name := filepath.Base(localPath)
	tempName := path.Join(remoteDir, tempFilePrefix+name)
	finalName := path.Join(remoteDir, name)

	if err := conn.Stor(tempName, f); err != nil {
		_ = conn.Delete(tempName)
		return err
	}
	if err := conn.Rename(tempName, finalName); err != nil {
		_ = conn.Delete(tempName)
		return err
	}
	return nil
}

// ensureRemoteDir creates the dated folder path element by element. MakeDir
// on an existing directory fails, which is fine; the final ChangeDir is the
// real check.
func (u *FTPUploader) ensureRemoteDir(remoteDir string) error {
	conn, err := u.connect()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Quit() }()

	partial := ""
	for _, elem := range strings.Split(remoteDir, "/") {
		if elem == "" {
			continue
		}
		partial = path.Join(partial, elem)
		_ = conn.MakeDir(partial)
	}
	if err := conn.ChangeDir(remoteDir); err != nil {
		return errors.New(err).
			Category(errors.CategoryFTP).
			Context("remote_dir", remoteDir).
			Build()
	}
	return nil
}

func (u *FTPUploader) connect() (*ftp.ServerConn, error) {
	addr := fmt.Sprintf("%s:%d", u.cfg.Host, u.cfg.Port)
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(time.Duration(u.cfg.Timeout)*time.Second))
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFTP).
			Context("host", addr).
			Build()
	}
	if err := conn.Login(u.cfg.Username, u.cfg.Password); err != nil {
		_ = conn.Quit()
		return nil, errors.New(err).
			Category(errors.CategoryFTP).
			Context("host", addr).
			Context("operation", "login").
			Build()
	}
	return conn, nil
}

// listRecordings returns the absolute paths of the published recordings in
// dir. In-flight or foreign files are skipped.
func listRecordings(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("dir", dir).
			Build()
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".mp3") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// dayFolder returns the dated remote folder for a cycle's recordings.
func dayFolder(base string, now time.Time) string {
	return path.Join(base, now.Format("2006-01-02"))
}
