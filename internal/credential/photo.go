package credential

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"volid/internal/volunteer/models"
)

const (
	maxPhotoBytes       = 5 << 20
	defaultPhotoTimeout = 10 * time.Second
	maxPhotoRedirects   = 3
)

var (
	errPhotoHostNotAllowed = errors.New("photo host is not allowed")
	errPhotoAddrRefused    = errors.New("photo address is not public")
)

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// PhotoFetcher loads a profile image. Any error makes the card fall back to the
// placeholder.
type PhotoFetcher interface {
	Fetch(ctx context.Context, ref string) (Image, error)
}

// HTTPPhotoFetcher downloads absolute http(s) references. Only PNG and JPEG
// bodies up to 5 MiB are accepted.
//
// With the default client every connection, redirects included, must reach a
// public unicast address; loopback, private, link-local and shared ranges are
// refused at dial time after DNS resolution. An optional host allowlist is
// checked on the reference and on every redirect.
type HTTPPhotoFetcher struct {
	client *http.Client
	hosts  []string
}

type PhotoOption func(*HTTPPhotoFetcher)

// WithAllowedPhotoHosts limits fetches to these hosts and their subdomains.
// An empty list allows any public host.
func WithAllowedPhotoHosts(hosts ...string) PhotoOption {
	return func(f *HTTPPhotoFetcher) {
		for _, h := range hosts {
			if h = strings.Trim(strings.ToLower(strings.TrimSpace(h)), "."); h != "" {
				f.hosts = append(f.hosts, h)
			}
		}
	}
}

// NewHTTPPhotoFetcher uses client as given when non-nil; otherwise it builds
// the guarded default client.
func NewHTTPPhotoFetcher(client *http.Client, opts ...PhotoOption) *HTTPPhotoFetcher {
	f := &HTTPPhotoFetcher{client: client}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = f.guardedClient()
	}
	return f
}

func (f *HTTPPhotoFetcher) guardedClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultPhotoTimeout,
		Control: refuseNonPublic,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   defaultPhotoTimeout,
		ResponseHeaderTimeout: defaultPhotoTimeout,
		MaxIdleConns:          4,
		IdleConnTimeout:       30 * time.Second,
	}
	return &http.Client{
		Timeout:   defaultPhotoTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxPhotoRedirects {
				return fmt.Errorf("stopped after %d redirects", maxPhotoRedirects)
			}
			return f.checkHost(req.URL)
		},
	}
}

// refuseNonPublic runs on the resolved address of every dial.
func refuseNonPublic(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if !publicAddr(addr) {
		return fmt.Errorf("%w: %s", errPhotoAddrRefused, addr)
	}
	return nil
}

func publicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsUnspecified(),
		addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast(),
		sharedAddressSpace.Contains(addr):
		return false
	}
	return true
}

func (f *HTTPPhotoFetcher) checkHost(u *url.URL) error {
	if len(f.hosts) == 0 {
		return nil
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	for _, allowed := range f.hosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", errPhotoHostNotAllowed, host)
}

func (f *HTTPPhotoFetcher) Fetch(ctx context.Context, ref string) (Image, error) {
	if !models.IsRemoteReference(ref) {
		return Image{}, fmt.Errorf("photo reference is not an absolute http(s) url")
	}
	u, err := url.Parse(ref)
	if err != nil {
		return Image{}, fmt.Errorf("parse photo reference: %w", err)
	}
	if err := f.checkHost(u); err != nil {
		return Image{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return Image{}, fmt.Errorf("build photo request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("fetch photo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("fetch photo: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("read photo: %w", err)
	}
	if len(data) > maxPhotoBytes {
		return Image{}, fmt.Errorf("photo exceeds %d bytes", maxPhotoBytes)
	}

	var format ImageFormat
	switch http.DetectContentType(data) {
	case "image/png":
		format = FormatPNG
	case "image/jpeg":
		format = FormatJPEG
	default:
		return Image{}, fmt.Errorf("unsupported photo type %q", http.DetectContentType(data))
	}
	return Image{Name: "photo", Format: format, Data: data}, nil
}
