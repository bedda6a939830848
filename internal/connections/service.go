package connections

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/shared"
)

const maxCodeAttempts = 5

// Service implements the invite, request and connection workflows.
type Service struct {
	store  Store
	audit  shared.AuditRecorder
	logger *slog.Logger
	now    func() time.Time
	code   func() (string, error)
}

// NewService constructs Service.
func NewService(store Store, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, audit: audit, logger: logger, now: time.Now, code: generateCode}
}

// GenerateInvite issues a new join code for the company.
func (s *Service) GenerateInvite(ctx context.Context, actor shared.Principal, companyID int64, req GenerateInviteRequest) (Invite, error) {
	days := req.ExpiresInDays
	if days <= 0 {
		days = defaultInviteDays
	}
	uses := req.MaxUses
	if uses <= 0 {
		uses = defaultInviteMaxUses
	}
	var created Invite
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.code()
		if err != nil {
			return Invite{}, fmt.Errorf("generate invite code: %w", err)
		}
		err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
			var err error
			created, err = tx.CreateInvite(ctx, Invite{
				CompanyID: companyID,
				Code:      code,
				CreatedBy: actor.UserID,
				ExpiresAt: s.now().AddDate(0, 0, days),
				MaxUses:   uses,
			})
			return err
		})
		if errors.Is(err, httpx.ErrDuplicate) {
			continue
		}
		if err != nil {
			return Invite{}, err
		}
		s.record(ctx, actor, companyID, "invite.create", "invite", created.ID, map[string]any{"max_uses": uses})
		return created, nil
	}
	return Invite{}, fmt.Errorf("%w: could not allocate a unique invite code", httpx.ErrConflict)
}

// ListInvites returns the company's invites, newest first.
func (s *Service) ListInvites(ctx context.Context, companyID int64) ([]Invite, error) {
	return s.store.ListInvites(ctx, companyID)
}

// ListRequests returns requests, optionally filtered by status.
func (s *Service) ListRequests(ctx context.Context, companyID int64, status RequestStatus) ([]Request, error) {
	switch status {
	case "", RequestPending, RequestApproved, RequestRejected:
	default:
		return nil, fmt.Errorf("%w: unknown request status %q", httpx.ErrValidation, status)
	}
	return s.store.ListRequests(ctx, companyID, status)
}

// RespondRequest approves or rejects a pending request. Approval creates the
// connection and the retailer row for the company.
func (s *Service) RespondRequest(ctx context.Context, actor shared.Principal, companyID, requestID int64, in RespondRequest) (Request, error) {
	reason := strings.TrimSpace(in.Reason)
	if in.Action == "reject" && reason == "" {
		return Request{}, ErrReasonRequired
	}
	if in.CreditLimit != nil && in.CreditLimit.IsNegative() {
		return Request{}, fmt.Errorf("%w: credit limit cannot be negative", httpx.ErrValidation)
	}
	var out Request
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		req, err := tx.RequestForUpdate(ctx, companyID, requestID)
		if err != nil {
			return err
		}
		if req.Status != RequestPending {
			return ErrRequestProcessed
		}
		now := s.now()
		req.RespondedBy = &actor.UserID
		req.RespondedAt = &now
		if in.Action == "reject" {
			req.Status = RequestRejected
			req.RejectionReason = reason
		} else {
			req.Status = RequestApproved
			req.RejectionReason = ""
			terms := strings.TrimSpace(in.PaymentTerms)
			limit := decimal.Zero
			if in.CreditLimit != nil {
				limit = *in.CreditLimit
			}
			if _, err := s.connect(ctx, tx, Connection{
				CompanyID:      companyID,
				RetailerUserID: req.RetailerUserID,
				CreditLimit:    limit,
				PaymentTerms:   terms,
				ApprovedBy:     &actor.UserID,
			}); err != nil {
				return err
			}
		}
		out, err = tx.SaveRequest(ctx, req)
		if err == nil {
			out.RetailerName, out.CompanyName = req.RetailerName, req.CompanyName
		}
		return err
	})
	if err != nil {
		return Request{}, err
	}
	s.record(ctx, actor, companyID, "request."+string(out.Status), "retailer_request", out.ID, nil)
	return out, nil
}

// ListConnections returns the company's connections, optionally filtered by status.
func (s *Service) ListConnections(ctx context.Context, companyID int64, status Status) ([]Connection, error) {
	switch status {
	case "", StatusApproved, StatusSuspended, StatusTerminated:
	default:
		return nil, fmt.Errorf("%w: unknown connection status %q", httpx.ErrValidation, status)
	}
	return s.store.ListConnections(ctx, companyID, status)
}

// UpdateConnection changes status and terms of one connection.
func (s *Service) UpdateConnection(ctx context.Context, actor shared.Principal, companyID, id int64, in UpdateConnectionRequest) (Connection, error) {
	if in.CreditLimit != nil && in.CreditLimit.IsNegative() {
		return Connection{}, fmt.Errorf("%w: credit limit cannot be negative", httpx.ErrValidation)
	}
	var out Connection
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		c, err := tx.ConnectionForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if in.Status != "" && in.Status != c.Status {
			switch in.Status {
			case StatusSuspended:
				now := s.now()
				c.SuspendedAt = &now
				c.SuspensionReason = strings.TrimSpace(in.Reason)
			case StatusApproved:
				c.SuspendedAt = nil
				c.SuspensionReason = ""
			case StatusTerminated:
				c.SuspendedAt = nil
				c.SuspensionReason = strings.TrimSpace(in.Reason)
			}
			c.Status = in.Status
		}
		if in.CreditLimit != nil {
			c.CreditLimit = *in.CreditLimit
		}
		if in.PaymentTerms != nil {
			c.PaymentTerms = strings.TrimSpace(*in.PaymentTerms)
		}
		if in.Notes != nil {
			c.Notes = strings.TrimSpace(*in.Notes)
		}
		out, err = tx.UpdateConnection(ctx, c)
		return err
	})
	if err != nil {
		return Connection{}, err
	}
	s.record(ctx, actor, companyID, "connection.update", "connection", out.ID, map[string]any{"status": string(out.Status)})
	return out, nil
}

// JoinByCode redeems an invite and connects the retailer to the issuing company.
func (s *Service) JoinByCode(ctx context.Context, actor shared.Principal, in JoinRequest) (Connection, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	var out Connection
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		inv, err := tx.InviteByCodeForUpdate(ctx, code)
		if errors.Is(err, httpx.ErrNotFound) {
			return ErrInvalidInvite
		}
		if err != nil {
			return err
		}
		if !inv.Usable(s.now()) {
			return ErrInvalidInvite
		}
		out, err = s.connect(ctx, tx, Connection{
			CompanyID:      inv.CompanyID,
			RetailerUserID: actor.UserID,
			CreditLimit:    decimal.Zero,
			InviteID:       &inv.ID,
			ApprovedBy:     &inv.CreatedBy,
		})
		if err != nil {
			return err
		}
		inv.CurrentUses++
		if inv.CurrentUses >= inv.MaxUses {
			inv.IsUsed = true
		}
		return tx.SaveInviteUsage(ctx, inv)
	})
	if err != nil {
		return Connection{}, err
	}
	s.record(ctx, actor, out.CompanyID, "connection.join", "connection", out.ID, map[string]any{"invite_code": code})
	return out, nil
}

// RequestApproval files a request to connect with a company.
func (s *Service) RequestApproval(ctx context.Context, actor shared.Principal, in ApprovalRequest) (Request, error) {
	var out Request
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		ok, err := tx.CompanyExists(ctx, in.CompanyID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCompanyNotFound
		}
		conn, err := tx.ConnectionBetween(ctx, in.CompanyID, actor.UserID)
		switch {
		case err == nil && conn.Status.Active():
			return ErrAlreadyConnected
		case err != nil && !errors.Is(err, httpx.ErrNotFound):
			return err
		}
		req, err := tx.RequestFor(ctx, in.CompanyID, actor.UserID)
		switch {
		case err == nil && req.Status == RequestPending:
			return ErrRequestPending
		case err != nil && !errors.Is(err, httpx.ErrNotFound):
			return err
		}
		out, err = tx.SaveRequest(ctx, Request{
			RetailerUserID: actor.UserID,
			CompanyID:      in.CompanyID,
			Status:         RequestPending,
			Message:        strings.TrimSpace(in.Message),
		})
		return err
	})
	if err != nil {
		return Request{}, err
	}
	s.logger.Info("retailer requested approval", slog.Int64("user_id", actor.UserID), slog.Int64("company_id", in.CompanyID))
	return out, nil
}

// ListCompanies returns the companies the retailer is connected to.
func (s *Service) ListCompanies(ctx context.Context, userID int64) ([]Connection, error) {
	return s.store.RetailerConnections(ctx, userID, []Status{StatusApproved, StatusSuspended})
}

// CountCompanies returns the number of approved connections of the retailer.
func (s *Service) CountCompanies(ctx context.Context, userID int64) (int, error) {
	conns, err := s.store.RetailerConnections(ctx, userID, []Status{StatusApproved})
	if err != nil {
		return 0, err
	}
	return len(conns), nil
}

// connect creates the approved connection or revives a terminated one.
func (s *Service) connect(ctx context.Context, tx TxStore, c Connection) (Connection, error) {
	if c.PaymentTerms == "" {
		c.PaymentTerms = DefaultPaymentTerms
	}
	retailerID, err := tx.EnsureRetailer(ctx, c.CompanyID, c.RetailerUserID)
	if err != nil {
		return Connection{}, fmt.Errorf("ensure retailer: %w", err)
	}
	c.RetailerID = retailerID
	c.Status = StatusApproved
	existing, err := tx.ConnectionBetween(ctx, c.CompanyID, c.RetailerUserID)
	if errors.Is(err, httpx.ErrNotFound) {
		return tx.CreateConnection(ctx, c)
	}
	if err != nil {
		return Connection{}, err
	}
	if existing.Status.Active() {
		return Connection{}, ErrAlreadyConnected
	}
	existing.RetailerID = c.RetailerID
	existing.Status = StatusApproved
	existing.CreditLimit = c.CreditLimit
	existing.PaymentTerms = c.PaymentTerms
	existing.InviteID = c.InviteID
	existing.ApprovedBy = c.ApprovedBy
	existing.ConnectedAt = s.now()
	existing.SuspendedAt = nil
	existing.SuspensionReason = ""
	return tx.UpdateConnection(ctx, existing)
}

func (s *Service) record(ctx context.Context, actor shared.Principal, companyID int64, action, entity string, id int64, meta map[string]any) {
	shared.RecordQuietly(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:   actor.UserID,
		CompanyID: companyID,
		Action:    action,
		Entity:    entity,
		EntityID:  strconv.FormatInt(id, 10),
		Meta:      meta,
	})
}

func generateCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	limit := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
