package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/vendorflow/vendorflow/internal/masterdata/companies"
	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// Service manages trucks and delivery employees.
type Service struct {
	store  Store
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs Service.
func NewService(store Store, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, audit: audit, logger: logger}
}

// CreateTruck registers a truck for the company.
func (s *Service) CreateTruck(ctx context.Context, actor shared.Principal, companyID int64, in TruckInput) (Truck, error) {
	t := truckFromInput(in)
	t.CompanyID = companyID
	if in.IsAvailable == nil {
		t.IsAvailable = true
	}
	created, err := s.store.CreateTruck(ctx, t)
	if err != nil {
		return Truck{}, fmt.Errorf("create truck: %w", err)
	}
	s.record(ctx, actor, companyID, "create", "truck", created.ID)
	return created, nil
}

// ListTrucks returns the company's trucks.
func (s *Service) ListTrucks(ctx context.Context, companyID int64) ([]Truck, error) {
	return s.store.ListTrucks(ctx, companyID)
}

// GetTruck returns one truck.
func (s *Service) GetTruck(ctx context.Context, companyID, id int64) (Truck, error) {
	return s.store.GetTruck(ctx, companyID, id)
}

// UpdateTruck replaces the editable fields of a truck.
func (s *Service) UpdateTruck(ctx context.Context, actor shared.Principal, companyID, id int64, in TruckInput) (Truck, error) {
	current, err := s.store.GetTruck(ctx, companyID, id)
	if err != nil {
		return Truck{}, err
	}
	t := truckFromInput(in)
	t.ID, t.CompanyID = id, companyID
	if in.IsAvailable == nil {
		t.IsAvailable = current.IsAvailable
	}
	updated, err := s.store.UpdateTruck(ctx, t)
	if err != nil {
		return Truck{}, fmt.Errorf("update truck: %w", err)
	}
	s.record(ctx, actor, companyID, "update", "truck", id)
	return updated, nil
}

// DeleteTruck removes a truck. An assigned employee keeps working without one.
func (s *Service) DeleteTruck(ctx context.Context, actor shared.Principal, companyID, id int64) error {
	if err := s.store.DeleteTruck(ctx, companyID, id); err != nil {
		return err
	}
	s.record(ctx, actor, companyID, "delete", "truck", id)
	return nil
}

// CreateEmployee adds an employee and assigns the requested truck or the first free one.
func (s *Service) CreateEmployee(ctx context.Context, actor shared.Principal, companyID int64, in EmployeeInput) (Employee, error) {
	contact, err := normalizeContact(in.Contact)
	if err != nil {
		return Employee{}, err
	}
	var created Employee
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if in.RetailerID != nil {
			ok, err := tx.RetailerBelongs(ctx, companyID, *in.RetailerID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrForeignRetailer
			}
		}
		truckID, err := s.pickTruck(ctx, tx, companyID, in.TruckID)
		if err != nil {
			return err
		}
		created, err = tx.CreateEmployee(ctx, Employee{
			CompanyID:  companyID,
			RetailerID: in.RetailerID,
			UserID:     in.UserID,
			Contact:    contact,
			TruckID:    truckID,
		})
		return err
	})
	if err != nil {
		return Employee{}, fmt.Errorf("create employee: %w", err)
	}
	s.logger.Info("employee created",
		slog.Int64("employee_id", created.ID),
		slog.Int64("company_id", companyID),
		slog.Bool("truck_assigned", created.TruckID != nil))
	s.record(ctx, actor, companyID, "create", "employee", created.ID)
	return created, nil
}

func (s *Service) pickTruck(ctx context.Context, tx TxStore, companyID int64, requested *int64) (*int64, error) {
	if requested == nil {
		t, err := tx.FirstFreeTruck(ctx, companyID)
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &t.ID, nil
	}
	t, err := tx.TruckForUpdate(ctx, *requested)
	if err != nil {
		return nil, err
	}
	if t.CompanyID != companyID {
		return nil, ErrForeignTruck
	}
	taken, err := tx.TruckAssigned(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrTruckTaken
	}
	return &t.ID, nil
}

// DeleteEmployee removes an employee and frees the truck.
func (s *Service) DeleteEmployee(ctx context.Context, actor shared.Principal, companyID, id int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		e, err := tx.EmployeeForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteEmployee(ctx, e.ID); err != nil {
			return err
		}
		if e.TruckID != nil {
			return tx.SetTruckAvailable(ctx, *e.TruckID, true)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	s.record(ctx, actor, companyID, "delete", "employee", id)
	return nil
}

// ListEmployees returns the company's employees.
func (s *Service) ListEmployees(ctx context.Context, companyID int64) ([]Employee, error) {
	return s.store.ListEmployees(ctx, companyID)
}

// AvailableForOrder returns the company's employees plus those of the order's retailer.
func (s *Service) AvailableForOrder(ctx context.Context, companyID, orderID int64) ([]Employee, error) {
	return s.store.EmployeesForOrder(ctx, companyID, orderID)
}

// EmployeeFor returns the employee record of a user.
func (s *Service) EmployeeFor(ctx context.Context, userID int64) (Employee, error) {
	e, err := s.store.EmployeeByUser(ctx, userID)
	if errors.Is(err, httpx.ErrNotFound) {
		return Employee{}, ErrNotEmployee
	}
	return e, err
}

func truckFromInput(in TruckInput) Truck {
	t := Truck{
		LicensePlate: strings.ToUpper(strings.TrimSpace(in.LicensePlate)),
		Capacity:     in.Capacity,
	}
	if in.IsAvailable != nil {
		t.IsAvailable = *in.IsAvailable
	}
	return t
}

func normalizeContact(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultContact, nil
	}
	return companies.NormalizePhone(raw)
}

func (s *Service) record(ctx context.Context, actor shared.Principal, companyID int64, action, entity string, id int64) {
	shared.RecordQuietly(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:   actor.UserID,
		CompanyID: companyID,
		Action:    action,
		Entity:    entity,
		EntityID:  strconv.FormatInt(id, 10),
	})
}
