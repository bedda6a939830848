package connections

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/shared"
)

type memoryStore struct {
	companies   map[int64]bool
	invites     []Invite
	requests    []Request
	connections []Connection
	retailers   map[[2]int64]int64
}

func newMemoryStore(companyIDs ...int64) *memoryStore {
	m := &memoryStore{companies: map[int64]bool{}, retailers: map[[2]int64]int64{}}
	for _, id := range companyIDs {
		m.companies[id] = true
	}
	return m
}

// WithTx snapshots state and restores it when fn fails.
func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	invites := append([]Invite(nil), m.invites...)
	requests := append([]Request(nil), m.requests...)
	conns := append([]Connection(nil), m.connections...)
	if err := fn(ctx, m); err != nil {
		m.invites, m.requests, m.connections = invites, requests, conns
		return err
	}
	return nil
}

func (m *memoryStore) ListInvites(_ context.Context, companyID int64) ([]Invite, error) {
	var out []Invite
	for _, inv := range m.invites {
		if inv.CompanyID == companyID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memoryStore) ListRequests(_ context.Context, companyID int64, status RequestStatus) ([]Request, error) {
	var out []Request
	for _, r := range m.requests {
		if r.CompanyID == companyID && (status == "" || r.Status == status) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) ListConnections(_ context.Context, companyID int64, status Status) ([]Connection, error) {
	var out []Connection
	for _, c := range m.connections {
		if c.CompanyID == companyID && (status == "" || c.Status == status) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryStore) RetailerConnections(_ context.Context, userID int64, statuses []Status) ([]Connection, error) {
	var out []Connection
	for _, c := range m.connections {
		if c.RetailerUserID != userID {
			continue
		}
		for _, s := range statuses {
			if c.Status == s {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (m *memoryStore) CompanyExists(_ context.Context, companyID int64) (bool, error) {
	return m.companies[companyID], nil
}

func (m *memoryStore) CreateInvite(_ context.Context, inv Invite) (Invite, error) {
	for _, existing := range m.invites {
		if existing.Code == inv.Code {
			return Invite{}, fmt.Errorf("%w: code", httpx.ErrDuplicate)
		}
	}
	inv.ID = int64(len(m.invites) + 1)
	m.invites = append(m.invites, inv)
	return inv, nil
}

func (m *memoryStore) InviteByCodeForUpdate(_ context.Context, code string) (Invite, error) {
	for _, inv := range m.invites {
		if inv.Code == code {
			return inv, nil
		}
	}
	return Invite{}, shared.ErrNotFound
}

func (m *memoryStore) SaveInviteUsage(_ context.Context, inv Invite) error {
	for i := range m.invites {
		if m.invites[i].ID == inv.ID {
			m.invites[i] = inv
		}
	}
	return nil
}

func (m *memoryStore) RequestForUpdate(_ context.Context, companyID, id int64) (Request, error) {
	for _, r := range m.requests {
		if r.ID == id && r.CompanyID == companyID {
			return r, nil
		}
	}
	return Request{}, shared.ErrNotFound
}

func (m *memoryStore) RequestFor(_ context.Context, companyID, userID int64) (Request, error) {
	for _, r := range m.requests {
		if r.CompanyID == companyID && r.RetailerUserID == userID {
			return r, nil
		}
	}
	return Request{}, shared.ErrNotFound
}

func (m *memoryStore) SaveRequest(_ context.Context, req Request) (Request, error) {
	for i, r := range m.requests {
		if r.CompanyID == req.CompanyID && r.RetailerUserID == req.RetailerUserID {
			req.ID = r.ID
			m.requests[i] = req
			return req, nil
		}
	}
	req.ID = int64(len(m.requests) + 1)
	m.requests = append(m.requests, req)
	return req, nil
}

func (m *memoryStore) ConnectionForUpdate(_ context.Context, companyID, id int64) (Connection, error) {
	for _, c := range m.connections {
		if c.ID == id && c.CompanyID == companyID {
			return c, nil
		}
	}
	return Connection{}, shared.ErrNotFound
}

func (m *memoryStore) ConnectionBetween(_ context.Context, companyID, userID int64) (Connection, error) {
	for _, c := range m.connections {
		if c.CompanyID == companyID && c.RetailerUserID == userID {
			return c, nil
		}
	}
	return Connection{}, shared.ErrNotFound
}

func (m *memoryStore) CreateConnection(_ context.Context, c Connection) (Connection, error) {
	c.ID = int64(len(m.connections) + 1)
	m.connections = append(m.connections, c)
	return c, nil
}

func (m *memoryStore) UpdateConnection(_ context.Context, c Connection) (Connection, error) {
	for i := range m.connections {
		if m.connections[i].ID == c.ID {
			m.connections[i] = c
			return c, nil
		}
	}
	return Connection{}, shared.ErrNotFound
}

func (m *memoryStore) EnsureRetailer(_ context.Context, companyID, userID int64) (int64, error) {
	key := [2]int64{companyID, userID}
	if id, ok := m.retailers[key]; ok {
		return id, nil
	}
	id := int64(len(m.retailers) + 100)
	m.retailers[key] = id
	return id, nil
}

var (
	manufacturer = shared.Principal{UserID: 1, Groups: []string{shared.GroupManufacturer}}
	retailer     = shared.Principal{UserID: 7, Groups: []string{shared.GroupRetailer}}
)

func newTestService(store *memoryStore, codes ...string) *Service {
	svc := NewService(store, nil, nil)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	if len(codes) > 0 {
		i := 0
		svc.code = func() (string, error) {
			c := codes[min(i, len(codes)-1)]
			i++
			return c, nil
		}
	}
	return svc
}

func TestGenerateInviteDefaultsAndRetriesDuplicates(t *testing.T) {
	store := newMemoryStore(10)
	svc := newTestService(store, "AAAA1111", "AAAA1111", "BBBB2222")

	first, err := svc.GenerateInvite(context.Background(), manufacturer, 10, GenerateInviteRequest{})
	require.NoError(t, err)
	require.Equal(t, "AAAA1111", first.Code)
	require.Equal(t, 1, first.MaxUses)
	require.Equal(t, svc.now().AddDate(0, 0, 7), first.ExpiresAt)

	second, err := svc.GenerateInvite(context.Background(), manufacturer, 10, GenerateInviteRequest{MaxUses: 3})
	require.NoError(t, err)
	require.Equal(t, "BBBB2222", second.Code)
	require.Equal(t, 3, second.MaxUses)
}

func TestGeneratedCodesUseAlphabet(t *testing.T) {
	code, err := generateCode()
	require.NoError(t, err)
	require.Len(t, code, inviteCodeLength)
	for _, r := range code {
		require.Contains(t, inviteCodeAlphabet, string(r))
	}
}

func TestJoinByCodeConsumesInvite(t *testing.T) {
	store := newMemoryStore(10)
	svc := newTestService(store, "JOIN0001")
	ctx := context.Background()
	_, err := svc.GenerateInvite(ctx, manufacturer, 10, GenerateInviteRequest{})
	require.NoError(t, err)

	conn, err := svc.JoinByCode(ctx, retailer, JoinRequest{Code: "join0001"})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, conn.Status)
	require.Equal(t, DefaultPaymentTerms, conn.PaymentTerms)
	require.NotZero(t, conn.RetailerID)
	require.True(t, store.invites[0].IsUsed)
	require.Equal(t, 1, store.invites[0].CurrentUses)

	other := shared.Principal{UserID: 8, Groups: []string{shared.GroupRetailer}}
	_, err = svc.JoinByCode(ctx, other, JoinRequest{Code: "JOIN0001"})
	require.ErrorIs(t, err, ErrInvalidInvite)

	_, err = svc.JoinByCode(ctx, retailer, JoinRequest{Code: "NOPE0000"})
	require.ErrorIs(t, err, ErrInvalidInvite)
}

func TestJoinByCodeRejectsExpiredAndExistingConnection(t *testing.T) {
	store := newMemoryStore(10)
	svc := newTestService(store, "EXPD0001", "MULT0001")
	ctx := context.Background()
	_, err := svc.GenerateInvite(ctx, manufacturer, 10, GenerateInviteRequest{ExpiresInDays: 1})
	require.NoError(t, err)
	store.invites[0].ExpiresAt = svc.now().Add(-time.Minute)
	_, err = svc.JoinByCode(ctx, retailer, JoinRequest{Code: "EXPD0001"})
	require.ErrorIs(t, err, ErrInvalidInvite)

	_, err = svc.GenerateInvite(ctx, manufacturer, 10, GenerateInviteRequest{MaxUses: 5})
	require.NoError(t, err)
	_, err = svc.JoinByCode(ctx, retailer, JoinRequest{Code: "MULT0001"})
	require.NoError(t, err)
	_, err = svc.JoinByCode(ctx, retailer, JoinRequest{Code: "MULT0001"})
	require.ErrorIs(t, err, ErrAlreadyConnected)
	require.Equal(t, 1, store.invites[1].CurrentUses, "failed join must not consume a use")
}

func TestRequestApprovalLifecycle(t *testing.T) {
	store := newMemoryStore(10)
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.RequestApproval(ctx, retailer, ApprovalRequest{CompanyID: 99, Message: "hi"})
	require.ErrorIs(t, err, ErrCompanyNotFound)

	req, err := svc.RequestApproval(ctx, retailer, ApprovalRequest{CompanyID: 10, Message: "please"})
	require.NoError(t, err)
	require.Equal(t, RequestPending, req.Status)

	_, err = svc.RequestApproval(ctx, retailer, ApprovalRequest{CompanyID: 10, Message: "again"})
	require.ErrorIs(t, err, ErrRequestPending)

	_, err = svc.RespondRequest(ctx, manufacturer, 10, req.ID, RespondRequest{Action: "reject"})
	require.ErrorIs(t, err, ErrReasonRequired)

	rejected, err := svc.RespondRequest(ctx, manufacturer, 10, req.ID, RespondRequest{Action: "reject", Reason: "out of area"})
	require.NoError(t, err)
	require.Equal(t, RequestRejected, rejected.Status)
	require.Equal(t, "out of area", rejected.RejectionReason)

	_, err = svc.RespondRequest(ctx, manufacturer, 10, req.ID, RespondRequest{Action: "approve"})
	require.ErrorIs(t, err, ErrRequestProcessed)

	again, err := svc.RequestApproval(ctx, retailer, ApprovalRequest{CompanyID: 10, Message: "reconsider"})
	require.NoError(t, err)
	require.Equal(t, req.ID, again.ID)

	limit := decimal.RequireFromString("5000")
	approved, err := svc.RespondRequest(ctx, manufacturer, 10, again.ID, RespondRequest{Action: "approve", CreditLimit: &limit, PaymentTerms: "Net 15 days"})
	require.NoError(t, err)
	require.Equal(t, RequestApproved, approved.Status)

	conns, err := svc.ListConnections(ctx, 10, StatusApproved)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	require.True(t, limit.Equal(conns[0].CreditLimit))
	require.Equal(t, "Net 15 days", conns[0].PaymentTerms)

	_, err = svc.RequestApproval(ctx, retailer, ApprovalRequest{CompanyID: 10, Message: "dup"})
	require.ErrorIs(t, err, ErrAlreadyConnected)
}

func TestUpdateConnectionSuspendAndRestore(t *testing.T) {
	store := newMemoryStore(10)
	svc := newTestService(store, "CODE0001")
	ctx := context.Background()
	_, err := svc.GenerateInvite(ctx, manufacturer, 10, GenerateInviteRequest{})
	require.NoError(t, err)
	conn, err := svc.JoinByCode(ctx, retailer, JoinRequest{Code: "CODE0001"})
	require.NoError(t, err)

	suspended, err := svc.UpdateConnection(ctx, manufacturer, 10, conn.ID, UpdateConnectionRequest{Status: StatusSuspended, Reason: "late payments"})
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, suspended.Status)
	require.NotNil(t, suspended.SuspendedAt)
	require.Equal(t, "late payments", suspended.SuspensionReason)

	count, err := svc.CountCompanies(ctx, retailer.UserID)
	require.NoError(t, err)
	require.Zero(t, count)
	listed, err := svc.ListCompanies(ctx, retailer.UserID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	notes := "priority account"
	restored, err := svc.UpdateConnection(ctx, manufacturer, 10, conn.ID, UpdateConnectionRequest{Status: StatusApproved, Notes: &notes})
	require.NoError(t, err)
	require.Nil(t, restored.SuspendedAt)
	require.Empty(t, restored.SuspensionReason)
	require.Equal(t, notes, restored.Notes)

	negative := decimal.NewFromInt(-1)
	_, err = svc.UpdateConnection(ctx, manufacturer, 10, conn.ID, UpdateConnectionRequest{CreditLimit: &negative})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.UpdateConnection(ctx, manufacturer, 11, conn.ID, UpdateConnectionRequest{Status: StatusTerminated})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTerminatedConnectionCanBeRevived(t *testing.T) {
	store := newMemoryStore(10)
	svc := newTestService(store, "CODE0001", "CODE0002")
	ctx := context.Background()
	_, err := svc.GenerateInvite(ctx, manufacturer, 10, GenerateInviteRequest{})
	require.NoError(t, err)
	conn, err := svc.JoinByCode(ctx, retailer, JoinRequest{Code: "CODE0001"})
	require.NoError(t, err)
	_, err = svc.UpdateConnection(ctx, manufacturer, 10, conn.ID, UpdateConnectionRequest{Status: StatusTerminated})
	require.NoError(t, err)

	_, err = svc.GenerateInvite(ctx, manufacturer, 10, GenerateInviteRequest{})
	require.NoError(t, err)
	revived, err := svc.JoinByCode(ctx, retailer, JoinRequest{Code: "CODE0002"})
	require.NoError(t, err)
	require.Equal(t, conn.ID, revived.ID)
	require.Equal(t, StatusApproved, revived.Status)
	require.Len(t, store.connections, 1)
}

func TestListFiltersRejectUnknownStatus(t *testing.T) {
	svc := newTestService(newMemoryStore(10))
	_, err := svc.ListRequests(context.Background(), 10, "maybe")
	require.ErrorIs(t, err, httpx.ErrValidation)
	_, err = svc.ListConnections(context.Background(), 10, "gone")
	require.ErrorIs(t, err, httpx.ErrValidation)
}
