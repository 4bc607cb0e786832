package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPConfig holds the connection settings of an SFTP source
type SFTPConfig struct {
	Host     string
	Port     int
	Username string

	// Password enables password authentication when set
	Password string

	// KeyFile enables public key authentication when set
	KeyFile string

	// KnownHosts is the known_hosts file used to verify the server key
	KnownHosts string

	// InsecureIgnoreHostKey disables host key verification (tests only)
	InsecureIgnoreHostKey bool

	Timeout time.Duration

	// Root is the directory relative paths are resolved against
	Root string
}

// SFTP is a read-only Source on an SSH server
type SFTP struct {
	conn   *ssh.Client
	client *sftp.Client
	root   string
}

// DialSFTP connects and authenticates to the SSH server and starts an SFTP session
func DialSFTP(ctx context.Context, cfg SFTPConfig) (*SFTP, error) {
	clientCfg, err := clientConfig(cfg)
	if err != nil {
		return nil, err
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: cfg.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c, chans, reqs, err := ssh.NewClientConn(netConn, addr, clientCfg)
	if err != nil {
		netConn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	conn := ssh.NewClient(c, chans, reqs)

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to start sftp session: %w", err)
	}

	root := cfg.Root
	if root == "" {
		root = "/"
	}
	return NewSFTP(conn, client, root), nil
}

// NewSFTP wraps an established SFTP session. conn may be nil when the
// session does not own the SSH connection.
func NewSFTP(conn *ssh.Client, client *sftp.Client, root string) *SFTP {
	return &SFTP{conn: conn, client: client, root: path.Clean("/" + root)}
}

func clientConfig(cfg SFTPConfig) (*ssh.ClientConfig, error) {
	if cfg.Host == "" {
		return nil, errors.New("sftp host is required")
	}

	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		pem, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("failed to parse key file %s: %w", cfg.KeyFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("no ssh authentication method configured")
	}

	var hostKey ssh.HostKeyCallback
	switch {
	case cfg.InsecureIgnoreHostKey:
		hostKey = ssh.InsecureIgnoreHostKey()
	case cfg.KnownHosts != "":
		cb, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
		hostKey = cb
	default:
		return nil, errors.New("known_hosts file is required to verify the server")
	}

	return &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         cfg.Timeout,
	}, nil
}

func (s *SFTP) resolve(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(s.root, p)
}

func (s *SFTP) fileInfo(full string, info os.FileInfo) FileInfo {
	rel := strings.TrimPrefix(strings.TrimPrefix(full, s.root), "/")
	return FileInfo{
		Path:         full,
		RelativePath: rel,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		IsDir:        info.IsDir(),
		Permissions:  uint32(info.Mode().Perm()),
	}
}

// ReadDir returns the entries of a single remote directory
func (s *SFTP) ReadDir(ctx context.Context, dir string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := s.resolve(dir)
	entries, err := s.client.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote directory %s: %w", full, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		files = append(files, s.fileInfo(path.Join(full, e.Name()), e))
	}
	return files, nil
}

// List walks a remote directory recursively
func (s *SFTP) List(ctx context.Context, dir string) ([]FileInfo, error) {
	full := s.resolve(dir)
	var files []FileInfo

	walker := s.client.Walk(full)
	for walker.Step() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := walker.Err(); err != nil {
			return nil, fmt.Errorf("failed to list remote files: %w", err)
		}
		if walker.Path() == full {
			continue
		}
		files = append(files, s.fileInfo(walker.Path(), walker.Stat()))
	}

	return files, nil
}

// Read opens a remote file for reading
func (s *SFTP) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.client.Open(s.resolve(p))
	if err != nil {
		return nil, fmt.Errorf("failed to open remote file: %w", err)
	}
	return f, nil
}

// Stat returns remote file metadata
func (s *SFTP) Stat(ctx context.Context, p string) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := s.resolve(p)
	info, err := s.client.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("failed to stat remote file: %w", err)
	}
	fi := s.fileInfo(full, info)
	return &fi, nil
}

// Exists checks if a remote path exists
func (s *SFTP) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.Stat(ctx, p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Write always fails: remote product trees are never modified
func (s *SFTP) Write(ctx context.Context, p string, reader io.Reader, size int64, metadata *FileInfo) error {
	return fmt.Errorf("write %s: %w", p, ErrReadOnly)
}

// Delete always fails: remote product trees are never modified
func (s *SFTP) Delete(ctx context.Context, p string) error {
	return fmt.Errorf("delete %s: %w", p, ErrReadOnly)
}

// MkdirAll always fails: remote product trees are never modified
func (s *SFTP) MkdirAll(ctx context.Context, p string) error {
	return fmt.Errorf("mkdir %s: %w", p, ErrReadOnly)
}

// Close ends the SFTP session and the SSH connection it owns
func (s *SFTP) Close() error {
	err := s.client.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
