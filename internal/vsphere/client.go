package vsphere

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/performance"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/session"
	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/soap"
	"go.uber.org/zap"

	"github.com/kubev2v/vminfo/internal/collector"
)

var ErrLoginFailed = errors.New("login failed")

var _ collector.Provider = &Client{}

// Client serves the collector from a single vSphere session. It is safe for
// concurrent use by the metric workers.
type Client struct {
	client *govmomi.Client
	vim    *vim25.Client
	pc     *property.Collector
	perf   *performance.Manager

	mu   sync.Mutex
	view *view.ContainerView
}

// BuildURL returns the SDK endpoint of host. host may be a bare name, a
// name:port pair or a full URL; port is used when host carries none.
func BuildURL(host string, port int, user, password string) (*url.URL, error) {
	if host == "" {
		return nil, errors.New("host is required")
	}

	raw := host
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid host %q", host)
	}
	if u.Port() == "" && port > 0 {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/sdk"
	}
	u.User = url.UserPassword(user, password)

	return u, nil
}

// Connect opens and authenticates a session against u, which must carry the
// credentials.
func Connect(ctx context.Context, u *url.URL, insecure bool) (*Client, error) {
	vimClient, err := vim25.NewClient(ctx, soap.NewClient(u, insecure))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", u.Host)
	}
	client := &govmomi.Client{
		SessionManager: session.NewManager(vimClient),
		Client:         vimClient,
	}

	zap.S().Named("vsphere").Infof("logging into %s as %s", u.Host, u.User.Username())
	if err := client.Login(ctx, u.User); err != nil {
		if isLoginFailure(err) {
			return nil, errors.Wrap(ErrLoginFailed, err.Error())
		}
		return nil, errors.Wrap(err, "failed to login")
	}

	c := NewFromVim(vimClient)
	c.client = client
	return c, nil
}

// NewFromVim wraps an already authenticated client. Close will not log out.
func NewFromVim(vimClient *vim25.Client) *Client {
	return &Client{
		vim:  vimClient,
		pc:   property.DefaultCollector(vimClient),
		perf: performance.NewManager(vimClient),
	}
}

// Close releases the server side view and ends the session opened by
// Connect.
func (c *Client) Close(ctx context.Context) error {
	c.destroyView(ctx)
	if c.client == nil {
		return nil
	}
	defer c.client.CloseIdleConnections()
	if err := c.client.Logout(ctx); err != nil {
		return errors.Wrap(err, "failed to logout")
	}
	return nil
}

// Endpoint is the host the client talks to.
func (c *Client) Endpoint() string {
	return c.vim.URL().Hostname()
}

// Both the production and the simulator wording of bad credentials.
func isLoginFailure(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Login failure") ||
		strings.Contains(msg, "incorrect") && strings.Contains(msg, "password")
}
