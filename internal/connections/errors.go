package connections

import (
	"fmt"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
)

var (
	// ErrInvalidInvite covers unknown, used up and expired codes.
	ErrInvalidInvite = fmt.Errorf("%w: invalid or expired invite code", httpx.ErrValidation)
	// ErrAlreadyConnected indicates an approved or suspended connection exists.
	ErrAlreadyConnected = fmt.Errorf("%w: already connected to this company", httpx.ErrConflict)
	// ErrRequestPending indicates a pending request for the same company.
	ErrRequestPending = fmt.Errorf("%w: a request to this company is already pending", httpx.ErrConflict)
	// ErrRequestProcessed indicates the request was already approved or rejected.
	ErrRequestProcessed = fmt.Errorf("%w: request already processed", httpx.ErrConflict)
	// ErrReasonRequired indicates a rejection without a reason.
	ErrReasonRequired = fmt.Errorf("%w: a reason is required to reject a request", httpx.ErrValidation)
	// ErrCompanyNotFound indicates the target company does not exist.
	ErrCompanyNotFound = fmt.Errorf("%w: company not found", httpx.ErrNotFound)
)
