package storage

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/asterisksounds/asterisk-sound-bot/internal/conf"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
)

// SFTPStore reads objects from an SSH server. The bucket is a directory
// relative to the login directory. A new connection is made per Get.
type SFTPStore struct {
	settings conf.SFTPSettings
}

// NewSFTPStore creates an SFTP store. Nothing is dialed until Get.
func NewSFTPStore(settings *conf.SFTPSettings) *SFTPStore {
	s := &SFTPStore{settings: *settings}
	if s.settings.Port == 0 {
		s.settings.Port = 22
	}
	if s.settings.Timeout == 0 {
		s.settings.Timeout = 30 * time.Second
	}
	return s
}

// sftpConn owns both layers of the connection.
type sftpConn struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (c *sftpConn) Close() error {
	return errors.Join(c.sftp.Close(), c.ssh.Close())
}

// clientConfig builds the SSH client configuration. Key files take
// precedence over passwords.
func (s *SFTPStore) clientConfig() (*ssh.ClientConfig, error) {
	config := &ssh.ClientConfig{
		User:    s.settings.Username,
		Timeout: s.settings.Timeout,
	}

	if s.settings.KnownHostsFile != "" {
		callback, err := knownhosts.New(s.settings.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("sftp: failed to load known hosts: %w", err)
		}
		config.HostKeyCallback = callback
	} else {
		GetLogger().Warn("SFTP host key verification disabled, set storage.sftp.knownhostsfile",
			logger.String("host", s.settings.Host))
		config.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in via config
	}

	switch {
	case s.settings.KeyFile != "":
		key, err := os.ReadFile(s.settings.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("sftp: failed to read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("sftp: failed to parse private key: %w", err)
		}
		config.Auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	case s.settings.Password != "":
		config.Auth = []ssh.AuthMethod{ssh.Password(s.settings.Password)}
	default:
		return nil, fmt.Errorf("sftp: no authentication method provided")
	}

	return config, nil
}

// connect dials in a goroutine so ctx can abandon a hanging handshake.
func (s *SFTPStore) connect(ctx context.Context) (*sftpConn, error) {
	config, err := s.clientConfig()
	if err != nil {
		return nil, err
	}

	type connResult struct {
		conn *sftpConn
		err  error
	}
	resultChan := make(chan connResult, 1)

	go func() {
		addr := net.JoinHostPort(s.settings.Host, strconv.Itoa(s.settings.Port))
		sshConn, err := ssh.Dial("tcp", addr, config)
		if err != nil {
			resultChan <- connResult{nil, fmt.Errorf("sftp: failed to connect: %w", err)}
			return
		}

		client, err := sftp.NewClient(sshConn)
		if err != nil {
			sshConn.Close()
			resultChan <- connResult{nil, fmt.Errorf("sftp: failed to create client: %w", err)}
			return
		}

		resultChan <- connResult{&sftpConn{ssh: sshConn, sftp: client}, nil}
	}()

	select {
	case <-ctx.Done():
		// Close whatever the dialer produces once it gives up
		go func() {
			if result := <-resultChan; result.conn != nil {
				result.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case result := <-resultChan:
		return result.conn, result.err
	}
}

// Get downloads bucket/key over SFTP.
func (s *SFTPStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := validateBucket(bucket); err != nil {
		return nil, fetchError(err, "sftp", bucket, key)
	}
	if err := ValidateKey(key); err != nil {
		return nil, fetchError(err, "sftp", bucket, key)
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return nil, fetchError(err, "sftp", bucket, key)
	}
	defer conn.Close()

	remotePath := path.Join(bucket, key)
	file, err := conn.sftp.Open(remotePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = notFound(err, key)
		} else {
			err = fmt.Errorf("sftp: failed to open %s: %w", remotePath, err)
		}
		return nil, fetchError(err, "sftp", bucket, key)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxObjectSize+1))
	if err != nil {
		return nil, fetchError(fmt.Errorf("sftp: failed to read %s: %w", remotePath, err), "sftp", bucket, key)
	}
	if len(data) > MaxObjectSize {
		return nil, fetchError(fmt.Errorf("sftp: object exceeds %d bytes", MaxObjectSize), "sftp", bucket, key)
	}

	GetLogger().Debug("Fetched object",
		logger.String("backend", "sftp"),
		logger.String("host", s.settings.Host),
		logger.String("path", remotePath),
		logger.Int("bytes", len(data)))

	return data, nil
}
