package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"restorable.io/restorectl/internal/config"
	"restorable.io/restorectl/internal/model"
)

const sftpDialTimeout = 30 * time.Second

// SFTPDigester streams artifacts from an SFTP server and hashes them.
// A connection is opened per digest.
type SFTPDigester struct {
	cfg *config.SFTP
}

// NewSFTPDigester validates the authentication settings and returns a digester.
func NewSFTPDigester(cfg *config.SFTP) (*SFTPDigester, error) {
	if cfg.KeyPath == "" && cfg.PasswordEnv == "" {
		return nil, fmt.Errorf("no authentication method provided for SFTP host %s", cfg.Host)
	}
	if cfg.KnownHostsPath == "" && !cfg.InsecureIgnoreHostKey {
		return nil, fmt.Errorf("SFTP host %s requires known_hosts_path or insecure_ignore_host_key", cfg.Host)
	}
	return &SFTPDigester{cfg: cfg}, nil
}

func (d *SFTPDigester) clientConfig() (*ssh.ClientConfig, error) {
	var hostKeyCallback ssh.HostKeyCallback
	if d.cfg.InsecureIgnoreHostKey {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		cb, err := knownhosts.New(d.cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts from %s: %w", d.cfg.KnownHostsPath, err)
		}
		hostKeyCallback = cb
	}

	sshConfig := &ssh.ClientConfig{
		User:            d.cfg.Username,
		HostKeyCallback: hostKeyCallback,
		Timeout:         sftpDialTimeout,
	}

	if d.cfg.KeyPath != "" {
		keyData, err := os.ReadFile(d.cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH key: %w", err)
		}
		sshConfig.Auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	} else {
		password := os.Getenv(d.cfg.PasswordEnv)
		if password == "" {
			return nil, fmt.Errorf("SFTP password environment variable %s is not set", d.cfg.PasswordEnv)
		}
		sshConfig.Auth = []ssh.AuthMethod{ssh.Password(password)}
	}
	return sshConfig, nil
}

func (d *SFTPDigester) addr() string {
	port := d.cfg.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(d.cfg.Host, strconv.Itoa(port))
}

// Digest downloads the artifact over SFTP and hashes it.
func (d *SFTPDigester) Digest(ctx context.Context, snap model.Snapshot, algorithm string) (string, error) {
	sshConfig, err := d.clientConfig()
	if err != nil {
		return "", err
	}

	sshClient, err := ssh.Dial("tcp", d.addr(), sshConfig)
	if err != nil {
		return "", fmt.Errorf("failed to connect to SSH server %s: %w", d.addr(), err)
	}
	defer sshClient.Close()

	// Closing the connection unblocks reads when the context ends first.
	stop := context.AfterFunc(ctx, func() { sshClient.Close() })
	defer stop()

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return "", fmt.Errorf("failed to create SFTP client: %w", err)
	}
	defer sftpClient.Close()

	remotePath := path.Join(d.cfg.Path, snap.Path)
	file, err := sftpClient.Open(remotePath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: sftp://%s%s", ErrArtifactNotFound, d.addr(), remotePath)
	}
	if err != nil {
		return "", fmt.Errorf("failed to open remote file %s: %w", remotePath, err)
	}
	defer file.Close()

	return HashReader(ctx, algorithm, file)
}

// Identifier returns the SFTP location for traceability.
func (d *SFTPDigester) Identifier() string {
	return fmt.Sprintf("sftp://%s@%s%s", d.cfg.Username, d.addr(), d.cfg.Path)
}
