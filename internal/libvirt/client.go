package libvirt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket/dialers"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultSocket is the qemu:///system daemon socket.
	DefaultSocket = "/var/run/libvirt/libvirt-sock"
	// DefaultTimeout bounds the socket dial.
	DefaultTimeout = 5 * time.Second
)

// Client is a connection to the local libvirt daemon.
type Client struct {
	libvirt *libvirt.Libvirt
	socket  string
}

// Connect dials the daemon socket. An empty socketPath selects
// DefaultSocket and a zero timeout selects DefaultTimeout. The Client
// must be closed.
func Connect(socketPath string, timeout time.Duration) (*Client, error) {
	if socketPath == "" {
		socketPath = DefaultSocket
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	dialer := dialers.NewLocal(
		dialers.WithSocket(socketPath),
		dialers.WithLocalTimeout(timeout),
	)
	l := libvirt.NewWithDialer(dialer)
	if err := l.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to libvirt at %s: %w", socketPath, err)
	}

	log.WithField("socket", socketPath).Debug("connected to libvirt")
	return &Client{libvirt: l, socket: socketPath}, nil
}

// ConnectWithContext is Connect bounded by ctx.
func ConnectWithContext(ctx context.Context, socketPath string, timeout time.Duration) (*Client, error) {
	type result struct {
		client *Client
		err    error
	}
	resultCh := make(chan result, 1)

	go func() {
		c, err := Connect(socketPath, timeout)
		resultCh <- result{client: c, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if res := <-resultCh; res.client != nil {
				_ = res.client.Close()
			}
		}()
		return nil, fmt.Errorf("connection cancelled: %w", ctx.Err())
	case res := <-resultCh:
		return res.client, res.err
	}
}

// Close disconnects. It is safe to call more than once.
func (c *Client) Close() error {
	if c.libvirt == nil {
		return nil
	}
	l := c.libvirt
	c.libvirt = nil
	if err := l.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect from libvirt: %w", err)
	}
	return nil
}

// Libvirt returns the underlying connection. It satisfies the
// consumer-side client interfaces of the install and storage packages.
func (c *Client) Libvirt() *libvirt.Libvirt {
	return c.libvirt
}

// Ping checks the connection is alive.
func (c *Client) Ping() error {
	if c.libvirt == nil {
		return errors.New("client not connected")
	}
	if _, err := c.libvirt.ConnectGetLibVersion(); err != nil {
		return fmt.Errorf("libvirt connection at %s is dead: %w", c.socket, err)
	}
	return nil
}
