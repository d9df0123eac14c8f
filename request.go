package goGate

import (
	"context"
	"net"
	"net/http"
	"sort"
)

// Request carries the request-scoped state the engine needs: inbound
// cookies, headers used for fingerprinting, the client IP, outbound cookie
// writes and the resolved identity. A Request belongs to one inbound HTTP
// request and must not be shared between goroutines.
type Request struct {
	ClientIP string
	Header   http.Header

	transient *bool
	cookies   map[string]string
	writer    http.ResponseWriter
	written   []*http.Cookie

	identity User
	resolved bool
}

type requestContextKey struct{}

// NewRequest wraps an inbound HTTP request. Cookies the engine sets or
// deletes are written to w and are also visible to later reads on the
// returned Request.
func NewRequest(w http.ResponseWriter, r *http.Request) *Request {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	req := NewRequestFromValues(ip, r.Header, r.Cookies())
	req.writer = w
	return req
}

// NewRequestFromValues builds a Request without an HTTP round trip. Cookie
// writes are only recorded and can be read back with ResponseCookies.
func NewRequestFromValues(clientIP string, header http.Header, cookies []*http.Cookie) *Request {
	if header == nil {
		header = http.Header{}
	}
	req := &Request{
		ClientIP: clientIP,
		Header:   header,
		cookies:  make(map[string]string, len(cookies)),
	}
	for _, c := range cookies {
		req.cookies[c.Name] = c.Value
	}
	return req
}

// Cookie returns the current value of a cookie, including writes made
// earlier in this request.
func (r *Request) Cookie(name string) (string, bool) {
	v, ok := r.cookies[name]
	return v, ok
}

// CookieNames returns the names of all cookies currently visible, sorted.
func (r *Request) CookieNames() []string {
	names := make([]string, 0, len(r.cookies))
	for name := range r.cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetTransient overrides CookieConfig.Transient for logins performed
// through this request.
func (r *Request) SetTransient(transient bool) {
	r.transient = &transient
}

// ResponseCookies returns every cookie written during this request, in
// write order.
func (r *Request) ResponseCookies() []*http.Cookie {
	out := make([]*http.Cookie, len(r.written))
	copy(out, r.written)
	return out
}

func (r *Request) setCookie(c *http.Cookie) {
	if c.MaxAge < 0 {
		delete(r.cookies, c.Name)
	} else {
		r.cookies[c.Name] = c.Value
	}
	r.written = append(r.written, c)
	if r.writer != nil {
		http.SetCookie(r.writer, c)
	}
}

func (r *Request) setIdentity(u User) {
	r.identity = u
	r.resolved = true
}

func (r *Request) forgetIdentity() {
	r.identity = nil
	r.resolved = false
}

// WithRequest stores req in ctx for handlers behind a guard.
func WithRequest(ctx context.Context, req *Request) context.Context {
	return context.WithValue(ctx, requestContextKey{}, req)
}

// RequestFromContext returns the Request stored by WithRequest.
func RequestFromContext(ctx context.Context) (*Request, bool) {
	if ctx == nil {
		return nil, false
	}
	req, ok := ctx.Value(requestContextKey{}).(*Request)
	return req, ok && req != nil
}
