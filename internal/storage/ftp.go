package storage

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"path"
	"strconv"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/asterisksounds/asterisk-sound-bot/internal/conf"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
)

// FTPStore reads objects from an FTP server. The bucket is a directory
// relative to the login directory.
type FTPStore struct {
	settings conf.FTPSettings
}

// NewFTPStore creates an FTP store. Nothing is dialed until Get.
func NewFTPStore(settings *conf.FTPSettings) *FTPStore {
	s := &FTPStore{settings: *settings}
	if s.settings.Port == 0 {
		s.settings.Port = 21
	}
	if s.settings.Timeout == 0 {
		s.settings.Timeout = 30 * time.Second
	}
	return s
}

// connect dials and logs in. Anonymous login is used without a username.
func (s *FTPStore) connect(ctx context.Context) (*ftp.ServerConn, error) {
	addr := net.JoinHostPort(s.settings.Host, strconv.Itoa(s.settings.Port))
	conn, err := ftp.Dial(addr,
		ftp.DialWithTimeout(s.settings.Timeout),
		ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp: connection failed: %w", err)
	}

	username, password := s.settings.Username, s.settings.Password
	if username == "" {
		username, password = "anonymous", "anonymous"
	}
	if err := conn.Login(username, password); err != nil {
		if quitErr := conn.Quit(); quitErr != nil {
			GetLogger().Debug("Failed to quit FTP connection after login error", logger.Error(quitErr))
		}
		return nil, fmt.Errorf("ftp: login failed: %w", err)
	}

	return conn, nil
}

// Get downloads bucket/key over FTP.
func (s *FTPStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := validateBucket(bucket); err != nil {
		return nil, fetchError(err, "ftp", bucket, key)
	}
	if err := ValidateKey(key); err != nil {
		return nil, fetchError(err, "ftp", bucket, key)
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return nil, fetchError(err, "ftp", bucket, key)
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			GetLogger().Debug("Failed to quit FTP connection", logger.Error(err))
		}
	}()

	remotePath := path.Join(bucket, key)
	resp, err := conn.Retr(remotePath)
	if err != nil {
		if isFTPNotFound(err) {
			err = notFound(err, key)
		} else {
			err = fmt.Errorf("ftp: failed to retrieve %s: %w", remotePath, err)
		}
		return nil, fetchError(err, "ftp", bucket, key)
	}
	defer resp.Close()

	data, err := io.ReadAll(io.LimitReader(resp, MaxObjectSize+1))
	if err != nil {
		return nil, fetchError(fmt.Errorf("ftp: failed to read %s: %w", remotePath, err), "ftp", bucket, key)
	}
	if len(data) > MaxObjectSize {
		return nil, fetchError(fmt.Errorf("ftp: object exceeds %d bytes", MaxObjectSize), "ftp", bucket, key)
	}

	GetLogger().Debug("Fetched object",
		logger.String("backend", "ftp"),
		logger.String("host", s.settings.Host),
		logger.String("path", remotePath),
		logger.Int("bytes", len(data)))

	return data, nil
}

// isFTPNotFound reports a 550 reply, which servers use for missing files.
func isFTPNotFound(err error) bool {
	var protoErr *textproto.Error
	return errors.As(err, &protoErr) && protoErr.Code == ftp.StatusFileUnavailable
}
