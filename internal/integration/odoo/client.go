package odoo

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kolo/xmlrpc"
)

// RPC is the XML-RPC surface used by Service.
type RPC interface {
	Authenticate(ctx context.Context, creds Credentials) (int64, error)
	CreateProduct(ctx context.Context, creds Credentials, uid int64, p Product) (int64, error)
}

// Client talks to Odoo's external API.
type Client struct {
	transport http.RoundTripper
}

// NewClient constructs a Client. A nil transport uses http.DefaultTransport.
func NewClient(transport http.RoundTripper) *Client {
	return &Client{transport: transport}
}

// Authenticate resolves the Odoo uid for the credentials.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) (int64, error) {
	var reply any
	err := c.call(ctx, creds.URL, "common", "authenticate",
		[]any{creds.DB, creds.Username, creds.Password, map[string]any{}}, &reply)
	if err != nil {
		return 0, fmt.Errorf("odoo authenticate: %w", err)
	}
	uid, ok := reply.(int64)
	if !ok || uid <= 0 {
		return 0, ErrAuthFailed
	}
	return uid, nil
}

// CreateProduct creates a product.product record and returns its id.
func (c *Client) CreateProduct(ctx context.Context, creds Credentials, uid int64, p Product) (int64, error) {
	values := map[string]any{
		"name":          p.Name,
		"list_price":    p.Price.InexactFloat64(),
		"qty_available": p.Available,
	}
	var reply any
	err := c.call(ctx, creds.URL, "object", "execute_kw",
		[]any{creds.DB, uid, creds.Password, "product.product", "create", []any{values}}, &reply)
	if err != nil {
		return 0, fmt.Errorf("odoo create product: %w", err)
	}
	id, ok := reply.(int64)
	if !ok {
		return 0, fmt.Errorf("odoo create product: unexpected reply %T", reply)
	}
	return id, nil
}

func (c *Client) call(ctx context.Context, baseURL, service, method string, args []any, reply any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := xmlrpc.NewClient(strings.TrimRight(baseURL, "/")+"/xmlrpc/2/"+service, c.transport)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Call(method, args, reply)
}
