package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docarchive/internal/model"
	"docarchive/internal/session"
)

// DefaultMaxReplyBytes caps a reply body unless WithMaxReplyBytes says otherwise.
const DefaultMaxReplyBytes = 64 << 20

// ErrReplyTooLarge is wrapped in the TransportError of a reply over the size cap.
var ErrReplyTooLarge = errors.New("backend reply too large")

// Client calls the backend over JSON-encoded RPC:
//
//	POST {baseURL}/rpc/{method}  {"args": [...]}
//	200 {"result": ...} | {"error": "message"}
//
// Optional arguments are always sent, as null when absent, because the remote
// signatures have fixed arity. It is safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	maxReply int64
}

var _ Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each call. Zero leaves calls unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithMaxReplyBytes caps the size of a reply body. Values <= 0 keep the default.
func WithMaxReplyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxReply = n
		}
	}
}

// NewClient creates a Client for the backend at baseURL. Outgoing calls are traced.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		maxReply: DefaultMaxReplyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	Args []any `json:"args"`
}

type rpcReply struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// call invokes method with positional args and decodes the result into out (which may be nil).
func (c *Client) call(ctx context.Context, method string, out any, args ...any) error {
	if args == nil {
		args = []any{}
	}
	body, err := json.Marshal(rpcRequest{Args: args})
	if err != nil {
		return fmt.Errorf("encode %s args: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc/"+method, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Method: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if p, ok := session.PrincipalFrom(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+p.String())
	}
	if id, ok := session.RequestIDFrom(ctx); ok {
		req.Header.Set(session.RequestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxReply+1))
	if err != nil {
		return &TransportError{Method: method, Err: err}
	}
	if int64(len(raw)) > c.maxReply {
		return &TransportError{Method: method, Err: fmt.Errorf("%w: over %d bytes", ErrReplyTooLarge, c.maxReply)}
	}

	var reply rpcReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &TransportError{Method: method, Err: fmt.Errorf("status %d", resp.StatusCode)}
		}
		return &TransportError{Method: method, Err: fmt.Errorf("decode reply: %w", err)}
	}
	if reply.Error != nil {
		return &RejectionError{Method: method, Message: *reply.Error}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &TransportError{Method: method, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if out == nil || len(reply.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(reply.Result, out); err != nil {
		return &TransportError{Method: method, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

// optional maps the zero value to a JSON null.
func optional[T comparable](v T) any {
	var zero T
	if v == zero {
		return nil
	}
	return v
}

func optionalPtr[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func (c *Client) GetCategories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	if err := c.call(ctx, "getCategories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddCategory(ctx context.Context, id, name string) error {
	return c.call(ctx, "addCategory", nil, id, name)
}

func (c *Client) UpdateCategory(ctx context.Context, id, newName string) error {
	return c.call(ctx, "updateCategory", nil, id, newName)
}

func (c *Client) RemoveCategory(ctx context.Context, id string) error {
	return c.call(ctx, "removeCategory", nil, id)
}

func (c *Client) AddOfficeToCategory(ctx context.Context, categoryID, officeID, officeName string) error {
	return c.call(ctx, "addOfficeToCategory", nil, categoryID, officeID, officeName)
}

func (c *Client) UpdateOfficeInCategory(ctx context.Context, categoryID, officeID, newOfficeName string) error {
	return c.call(ctx, "updateOfficeInCategory", nil, categoryID, officeID, newOfficeName)
}

func (c *Client) RemoveOfficeFromCategory(ctx context.Context, categoryID, officeID string) error {
	return c.call(ctx, "removeOfficeFromCategory", nil, categoryID, officeID)
}

// FilterDocuments sends all six positional arguments; the trailing reserved slot is always null.
func (c *Client) FilterDocuments(ctx context.Context, f model.DocumentFilter) ([]model.Document, error) {
	var out []model.Document
	err := c.call(ctx, "filterDocuments", &out,
		optional(f.CategoryID),
		optional(f.OfficeID),
		optional(f.Direction),
		optionalPtr(f.Start),
		optionalPtr(f.End),
		nil,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddDocument(ctx context.Context, d model.NewDocument) error {
	return c.call(ctx, "addDocument", nil,
		d.ID,
		d.CategoryID,
		d.OfficeID,
		d.Direction,
		d.Title,
		optionalPtr(d.ReferenceNumber),
		d.DocumentDate,
		d.Filename,
		d.MimeType,
		d.FileSize,
		d.BlobID,
	)
}

// GetDocument returns nil when the backend answers with no document.
func (c *Client) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var out *model.Document
	if err := c.call(ctx, "getDocument", &out, id); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RemoveDocument(ctx context.Context, id string) error {
	return c.call(ctx, "removeDocument", nil, id)
}

func (c *Client) GetCallerUserRole(ctx context.Context) (model.Role, error) {
	var out model.Role
	if err := c.call(ctx, "getCallerUserRole", &out); err != nil {
		return "", err
	}
	if !out.Valid() {
		return "", &TransportError{Method: "getCallerUserRole", Err: fmt.Errorf("unknown role %q", out)}
	}
	return out, nil
}

func (c *Client) IsCallerAdmin(ctx context.Context) (bool, error) {
	var out bool
	err := c.call(ctx, "isCallerAdmin", &out)
	return out, err
}

// GetCallerUserProfile returns nil when the caller has not saved a profile yet.
func (c *Client) GetCallerUserProfile(ctx context.Context) (*model.UserProfile, error) {
	var out *model.UserProfile
	if err := c.call(ctx, "getCallerUserProfile", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SaveCallerUserProfile(ctx context.Context, profile model.UserProfile) error {
	return c.call(ctx, "saveCallerUserProfile", nil, profile)
}

func (c *Client) GetDashboardMetrics(ctx context.Context) (*model.DashboardMetrics, error) {
	var out model.DashboardMetrics
	if err := c.call(ctx, "getDashboardMetrics", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateUser(ctx context.Context, username, passwordHash string, role model.AccountRole) error {
	return c.call(ctx, "createUser", nil, username, passwordHash, role)
}

func (c *Client) DeleteUser(ctx context.Context, username string) error {
	return c.call(ctx, "deleteUser", nil, username)
}

func (c *Client) UpdateUser(ctx context.Context, username string, newPasswordHash *string, newRole *model.AccountRole) error {
	return c.call(ctx, "updateUser", nil, username, optionalPtr(newPasswordHash), optionalPtr(newRole))
}

func (c *Client) ListUsers(ctx context.Context) ([]model.UserAccount, error) {
	var out []model.UserAccount
	if err := c.call(ctx, "listUsers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser returns nil when no account has that username.
func (c *Client) GetUser(ctx context.Context, username string) (*model.UserAccount, error) {
	var out *model.UserAccount
	if err := c.call(ctx, "getUser", &out, username); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Authenticate(ctx context.Context, username, passwordHash string) (bool, error) {
	var out bool
	err := c.call(ctx, "authenticate", &out, username, passwordHash)
	return out, err
}

// Ping performs GET {baseURL}/health.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return &TransportError{Method: "health", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: "health", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &TransportError{Method: "health", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

// IsRejection reports whether err is an explicit backend rejection.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
