package tracing

import (
	"net"
	"net/http"
	"strings"
)

// Context is the enrichment payload attached to a sampled transaction. It is
// created lazily on first use and owned by exactly one transaction.
type Context struct {
	Request  *RequestInfo  `json:"request,omitempty"`
	Response *ResponseInfo `json:"response,omitempty"`
	User     *UserInfo     `json:"user,omitempty"`
}

// RequestInfo describes the incoming HTTP request.
type RequestInfo struct {
	Method      string            `json:"method"`
	URL         URLInfo           `json:"url"`
	Socket      SocketInfo        `json:"socket"`
	HTTPVersion string            `json:"http_version"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        string            `json:"body,omitempty"`
}

// URLInfo holds the decomposed request URL.
type URLInfo struct {
	Full     string `json:"full"`
	Raw      string `json:"raw"`
	Hostname string `json:"hostname"`
	Protocol string `json:"protocol"`
	Path     string `json:"path"`
	Query    string `json:"query,omitempty"`
}

// SocketInfo holds transport-level request details.
type SocketInfo struct {
	Encrypted     bool   `json:"encrypted"`
	RemoteAddress string `json:"remote_address,omitempty"`
}

// ResponseInfo describes the outgoing HTTP response.
type ResponseInfo struct {
	StatusCode int               `json:"status_code"`
	Finished   bool              `json:"finished"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// UserInfo describes the authenticated principal, if any.
type UserInfo struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Principal is the authenticated identity supplied by the surrounding
// application, typically decoded from a bearer token.
type Principal struct {
	Authenticated bool
	Username      string
	Claims        map[string]string
}

// Claim returns the first present claim value, trying the primary claim
// type before the vendor-specific fallback. Missing claims yield "".
func (p *Principal) Claim(primary, fallback string) string {
	if v, ok := p.Claims[primary]; ok {
		return v
	}
	if v, ok := p.Claims[fallback]; ok {
		return v
	}
	return ""
}

// Claim types consulted during user enrichment, primary then fallback.
const (
	claimUserID         = "sub"
	claimUserIDFallback = "oid"
	claimEmail          = "email"
	claimEmailFallback  = "preferred_username"
)

// fillRequest records URL, socket and header details of the request.
func fillRequest(tx *Transaction, r *http.Request) {
	scheme := "http"
	encrypted := r.TLS != nil
	if encrypted {
		scheme = "https"
	}

	u := *r.URL
	u.Scheme = scheme
	u.Host = r.Host
	full := u.String()

	// Prefer the unescaped wire-level target when the server kept it around.
	raw := r.RequestURI
	if raw == "" {
		raw = full
	}

	req := &RequestInfo{
		Method: r.Method,
		URL: URLInfo{
			Full:     full,
			Raw:      raw,
			Hostname: hostname(r.Host),
			Protocol: NormalizeProtocol(r.Proto),
			Path:     r.URL.Path,
			Query:    strings.TrimPrefix(r.URL.RawQuery, "?"),
		},
		Socket: SocketInfo{
			Encrypted:     encrypted,
			RemoteAddress: r.RemoteAddr,
		},
		HTTPVersion: HTTPVersion(r.Proto),
	}
	if tx.Config().CaptureHeaders {
		req.Headers = flattenHeaders(r.Header)
	}

	ctx := tx.EnsureContext()
	if ctx.Request != nil && ctx.Request.Body != "" {
		// A forced body capture may have run first; keep what it recorded.
		req.Body = ctx.Request.Body
	}
	ctx.Request = req
}

// fillResponse records status, completion state and headers of the response.
func fillResponse(tx *Transaction, status int, finished bool, h http.Header) {
	resp := &ResponseInfo{
		StatusCode: status,
		Finished:   finished,
	}
	if tx.Config().CaptureHeaders {
		resp.Headers = flattenHeaders(h)
	}
	tx.EnsureContext().Response = resp
}

// fillUser records the authenticated principal. The first write wins: a user
// set earlier in the request is never overwritten.
func fillUser(tx *Transaction, p *Principal) {
	if p == nil || !p.Authenticated {
		return
	}
	ctx := tx.EnsureContext()
	if ctx.User != nil {
		return
	}
	ctx.User = &UserInfo{
		ID:       p.Claim(claimUserID, claimUserIDFallback),
		Username: p.Username,
		Email:    p.Claim(claimEmail, claimEmailFallback),
	}
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vals := range h {
		out[k] = strings.Join(vals, ", ")
	}
	return out
}

func hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
