// Package landapi is a client for the land REST API. It implements
// ports.LandGateway for the map editor and exposes the record and account
// endpoints used by landctl.
package landapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/landplot/internal/core/domain"
	"github.com/samirrijal/landplot/internal/core/ports"
	"github.com/samirrijal/landplot/internal/pkg/telemetry"
)

const defaultTimeout = 10 * time.Second

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("land api: status %d: %s", e.Status, e.Body)
}

// Unwrap maps well-known statuses to domain errors.
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case fasthttp.StatusNotFound:
		return domain.ErrNotFound
	case fasthttp.StatusUnauthorized, fasthttp.StatusForbidden:
		return domain.ErrUnauthorized
	case fasthttp.StatusBadRequest, fasthttp.StatusUnprocessableEntity:
		return domain.ErrInvalidInput
	case fasthttp.StatusConflict:
		return domain.ErrConflict
	}
	return nil
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds requests whose context carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithSession attaches an existing session cookie to every request.
func WithSession(cookieName, token string) Option {
	return func(c *Client) {
		c.cookieName = cookieName
		c.token = token
	}
}

// WithDial replaces the transport dialer.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

// Client talks to the land API over HTTP.
type Client struct {
	baseURL    string
	http       *fasthttp.Client
	timeout    time.Duration
	cookieName string

	mu    sync.RWMutex
	token string
}

var _ ports.LandGateway = (*Client)(nil)

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		http:       &fasthttp.Client{Name: "landctl"},
		timeout:    defaultTimeout,
		cookieName: "landplot_session",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Session returns the current session token, if logged in.
func (c *Client) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// FetchPolygons reads the polygon collection of a land record.
func (c *Client) FetchPolygons(ctx context.Context, landID int64) ([]domain.Polygon, error) {
	land, err := c.GetLand(ctx, landID)
	if err != nil {
		return nil, err
	}
	if land.Polygons == nil {
		return []domain.Polygon{}, nil
	}
	return land.Polygons, nil
}

// PushPolygons replaces the polygon collection of a land record.
func (c *Client) PushPolygons(ctx context.Context, landID int64, polygons []domain.Polygon) error {
	body := struct {
		Polygons []domain.Polygon `json:"polygons"`
	}{Polygons: domain.ClonePolygons(polygons)}
	return c.do(ctx, fasthttp.MethodPut, landPath(landID), body, nil)
}

// GetLand fetches one record.
func (c *Client) GetLand(ctx context.Context, id int64) (*domain.Land, error) {
	var land domain.Land
	if err := c.do(ctx, fasthttp.MethodGet, landPath(id), nil, &land); err != nil {
		return nil, err
	}
	return &land, nil
}

// ListLands returns one page of records and the total number of matches.
func (c *Client) ListLands(ctx context.Context, f domain.LandFilter) ([]domain.Land, int, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	setArg := func(k, v string) {
		if v != "" {
			args.Set(k, v)
		}
	}
	setInt := func(k string, v int64) {
		if v > 0 {
			args.Set(k, strconv.FormatInt(v, 10))
		}
	}
	setArg("q", f.Query)
	setArg("owner", f.Owner)
	setArg("type", f.LandType)
	setInt("min_price", f.MinPrice)
	setInt("max_price", f.MaxPrice)
	setInt("min_size", f.MinSize)
	setInt("max_size", f.MaxSize)
	setInt("offset", int64(f.Offset))
	setInt("limit", int64(f.Limit))

	path := "/lands"
	if args.Len() > 0 {
		path += "?" + args.String()
	}

	var lands []domain.Land
	var total int
	err := c.exchange(ctx, fasthttp.MethodGet, path, nil, &lands, func(resp *fasthttp.Response) {
		total, _ = strconv.Atoi(string(resp.Header.Peek("X-Total-Count")))
	})
	if err != nil {
		return nil, 0, err
	}
	return lands, total, nil
}

// CreateLand creates a record. The server always starts it with no polygons.
func (c *Client) CreateLand(ctx context.Context, land *domain.Land) (*domain.Land, error) {
	in := *land
	in.Polygons = []domain.Polygon{}
	var out domain.Land
	if err := c.do(ctx, fasthttp.MethodPost, "/lands", &in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateLand merges patch into a record.
func (c *Client) UpdateLand(ctx context.Context, id int64, patch domain.LandPatch) (*domain.Land, error) {
	var out domain.Land
	if err := c.do(ctx, fasthttp.MethodPut, landPath(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteLand removes a whole record.
func (c *Client) DeleteLand(ctx context.Context, id int64) error {
	return c.do(ctx, fasthttp.MethodDelete, landPath(id), nil, nil)
}

// LandEvents returns the recorded change history of a record, newest first.
func (c *Client) LandEvents(ctx context.Context, id int64, limit int) ([]domain.LandEvent, error) {
	path := landPath(id) + "/events"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var events []domain.LandEvent
	if err := c.do(ctx, fasthttp.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Login authenticates and keeps the returned session cookie.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.User, error) {
	in := map[string]string{"email": email, "pass": password}
	var out struct {
		Success bool         `json:"success"`
		User    *domain.User `json:"user"`
	}
	var token string
	err := c.exchange(ctx, fasthttp.MethodPost, "/users/login", in, &out, func(resp *fasthttp.Response) {
		ck := fasthttp.AcquireCookie()
		defer fasthttp.ReleaseCookie(ck)
		ck.SetKey(c.cookieName)
		if resp.Header.Cookie(ck) {
			token = string(ck.Value())
		}
	})
	if err != nil {
		return nil, err
	}
	if !out.Success || token == "" {
		return nil, domain.ErrUnauthorized
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return out.User, nil
}

// Profile returns the logged-in user.
func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	var out struct {
		Success bool         `json:"success"`
		User    *domain.User `json:"user"`
	}
	if err := c.do(ctx, fasthttp.MethodGet, "/users/profile", nil, &out); err != nil {
		return nil, err
	}
	if !out.Success || out.User == nil {
		return nil, domain.ErrUnauthorized
	}
	return out.User, nil
}

// Logout ends the session on the server and forgets it locally.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, fasthttp.MethodPost, "/users/logout", nil, nil)
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	return err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	return c.exchange(ctx, method, path, in, out, nil)
}

func (c *Client) exchange(ctx context.Context, method, path string, in, out any, inspect func(*fasthttp.Response)) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, end := telemetry.StartSpan(ctx, "landapi "+method, attribute.String("http.target", path))
	defer func() { end(err) }()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	telemetry.Inject(ctx, headerCarrier{&req.Header})
	if token := c.Session(); token != "" {
		req.Header.SetCookie(c.cookieName, token)
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	if deadline, ok := ctx.Deadline(); ok {
		err = c.http.DoDeadline(req, resp, deadline)
	} else {
		err = c.http.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return &StatusError{Status: status, Body: string(resp.Body())}
	}
	if inspect != nil {
		inspect(resp)
	}
	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func landPath(id int64) string {
	return "/lands/" + strconv.FormatInt(id, 10)
}

// headerCarrier lets the otel propagator write trace headers.
type headerCarrier struct{ h *fasthttp.RequestHeader }

func (c headerCarrier) Get(key string) string { return string(c.h.Peek(key)) }
func (c headerCarrier) Set(key, value string) { c.h.Set(key, value) }
func (c headerCarrier) Keys() []string {
	var keys []string
	c.h.VisitAll(func(k, _ []byte) { keys = append(keys, string(k)) })
	return keys
}
