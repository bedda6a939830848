package mqttbridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIDFormat(t *testing.T) {
	id := NewClientID()
	assert.Regexp(t, regexp.MustCompile(`^mqtt-listener-[0-9a-f]{8}$`), id)
	assert.NotEqual(t, id, NewClientID())
}

func TestPresencePayload(t *testing.T) {
	at := time.Unix(1700000000, 0)
	var got Presence
	require.NoError(t, json.Unmarshal(PresencePayload("mqtt-listener-abcd1234", StatusOffline, at), &got))
	assert.Equal(t, "mqtt-listener-abcd1234", got.ClientID)
	assert.Equal(t, StatusOffline, got.Status)
	assert.Equal(t, int64(1700000000), got.Timestamp)
	assert.NotEmpty(t, got.Hostname)
}

type fakeAPI struct {
	logins    atomic.Int32
	posts     atomic.Int32
	rejectOld bool
	lastBody  map[string]any
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		n := f.logins.Add(1)
		var creds map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access":            "token-" + string(rune('0'+n)),
			"access_expires_at": time.Now().Add(time.Hour),
		})
	})
	mux.HandleFunc("/api/v1/intake/qr", func(w http.ResponseWriter, r *http.Request) {
		f.posts.Add(1)
		if f.rejectOld && r.Header.Get("Authorization") == "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastBody))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"product_id": 4, "name": "Rice", "created": true, "available_quantity": 10, "status": "sufficient"})
	})
	return mux
}

func newForwarder(url, password string) *Forwarder {
	return NewForwarder(Config{APIBase: url + "/api/v1/", APIUsername: "scanner", APIPassword: password, CompanyID: 3}, nil)
}

func TestForwarderCachesToken(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()
	fwd := newForwarder(srv.URL, "secret")

	res, err := fwd.Forward(context.Background(), "name=Rice|quantity=10")
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.ProductID)
	assert.True(t, res.Created)
	assert.Equal(t, "name=Rice|quantity=10", api.lastBody["qr_text"])
	assert.Equal(t, float64(3), api.lastBody["company_id"])

	_, err = fwd.Forward(context.Background(), "name=Rice|quantity=2")
	require.NoError(t, err)
	assert.Equal(t, int32(1), api.logins.Load())
	assert.Equal(t, int32(2), api.posts.Load())
}

func TestForwarderRenewsExpiredToken(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()
	fwd := newForwarder(srv.URL, "secret")

	_, err := fwd.Forward(context.Background(), "name=A|quantity=1")
	require.NoError(t, err)
	fwd.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = fwd.Forward(context.Background(), "name=A|quantity=1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.logins.Load())
}

func TestForwarderRetriesOnceAfterUnauthorized(t *testing.T) {
	api := &fakeAPI{rejectOld: true}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	_, err := newForwarder(srv.URL, "secret").Forward(context.Background(), "name=A|quantity=1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.logins.Load())
	assert.Equal(t, int32(2), api.posts.Load())
}

func TestForwarderLoginFailure(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	_, err := newForwarder(srv.URL, "wrong").Forward(context.Background(), "name=A|quantity=1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(0), api.posts.Load())
}

func TestForwarderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{"access": "t", "access_expires_at": time.Now().Add(time.Hour)})
			return
		}
		http.Error(w, "invalid qr", http.StatusBadRequest)
	}))
	defer srv.Close()

	fwd := NewForwarder(Config{APIBase: srv.URL, APIUsername: "u", APIPassword: "p", CompanyID: 1}, nil)
	_, err := fwd.Forward(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrRejected)
}

type recordingForwarder struct {
	payloads []string
	err      error
}

func (r *recordingForwarder) Forward(_ context.Context, text string) (IntakeResult, error) {
	r.payloads = append(r.payloads, text)
	return IntakeResult{Name: text}, r.err
}

func TestListenerHandleFiltersTopic(t *testing.T) {
	fwd := &recordingForwarder{}
	l := NewListener(Config{QRTopic: "manufacturing/anomalies"}, fwd, nil)

	l.handle(context.Background(), "other/topic", []byte("x"))
	l.handle(context.Background(), "manufacturing/anomalies", []byte("name=A|quantity=1"))
	assert.Equal(t, []string{"name=A|quantity=1"}, fwd.payloads)

	fwd.err = errors.New("backend down")
	assert.NotPanics(t, func() {
		l.handle(context.Background(), "manufacturing/anomalies", []byte("name=B|quantity=1"))
	})
	assert.Len(t, fwd.payloads, 2)
}
