package odoo

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var methodPattern = regexp.MustCompile(`<methodName>([^<]+)</methodName>`)

type rpcCall struct {
	path   string
	method string
	body   string
}

type fakeOdoo struct {
	mu      sync.Mutex
	calls   []rpcCall
	uid     string
	created string
}

func (f *fakeOdoo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	method := ""
	if m := methodPattern.FindSubmatch(body); m != nil {
		method = string(m[1])
	}
	f.mu.Lock()
	f.calls = append(f.calls, rpcCall{path: r.URL.Path, method: method, body: string(body)})
	f.mu.Unlock()

	value := f.created
	if method == "authenticate" {
		value = f.uid
	}
	w.Header().Set("Content-Type", "text/xml")
	_, _ = io.WriteString(w, `<?xml version="1.0"?><methodResponse><params><param><value>`+value+`</value></param></params></methodResponse>`)
}

func TestClientCreatesProduct(t *testing.T) {
	odoo := &fakeOdoo{uid: "<int>7</int>", created: "<int>501</int>"}
	srv := httptest.NewServer(odoo)
	defer srv.Close()

	client := NewClient(nil)
	creds := Credentials{URL: srv.URL + "/", DB: "shop", Username: "ops@example.com", Password: "pw"}

	uid, err := client.Authenticate(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, int64(7), uid)

	id, err := client.CreateProduct(context.Background(), creds, uid, Product{
		Name:      "Basmati Rice",
		Price:     decimal.RequireFromString("120.50"),
		Available: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(501), id)

	require.Len(t, odoo.calls, 2)
	assert.Equal(t, "/xmlrpc/2/common", odoo.calls[0].path)
	assert.Equal(t, "authenticate", odoo.calls[0].method)
	assert.Contains(t, odoo.calls[0].body, "<string>shop</string>")

	assert.Equal(t, "/xmlrpc/2/object", odoo.calls[1].path)
	assert.Equal(t, "execute_kw", odoo.calls[1].method)
	for _, fragment := range []string{"product.product", "create", "Basmati Rice", "list_price", "qty_available", "<int>40</int>"} {
		assert.Contains(t, odoo.calls[1].body, fragment)
	}
}

func TestClientRejectsFalseUID(t *testing.T) {
	srv := httptest.NewServer(&fakeOdoo{uid: "<boolean>0</boolean>"})
	defer srv.Close()

	_, err := NewClient(nil).Authenticate(context.Background(), Credentials{URL: srv.URL, DB: "shop"})
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestClientHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(nil).Authenticate(ctx, Credentials{URL: "http://127.0.0.1:1"})
	assert.ErrorIs(t, err, context.Canceled)
}
