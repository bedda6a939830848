package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeProductSync exports a newly created product to the creator's Odoo instance.
	TaskTypeProductSync = "odoo:product.sync"
	// TaskTypeStockReconcile recomputes required quantities and stock status per company.
	TaskTypeStockReconcile = "inventory:reconcile"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

// ProductSyncPayload identifies the product to export and the user whose credentials apply.
type ProductSyncPayload struct {
	ProductID int64 `json:"product_id"`
	UserID    int64 `json:"user_id"`
}

// StockReconcilePayload scopes a reconcile run. A zero CompanyID covers every company.
type StockReconcilePayload struct {
	CompanyID    int64     `json:"company_id,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewProductSyncTask constructs the Odoo export task.
func NewProductSyncTask(productID, userID int64) (*asynq.Task, error) {
	data, err := json.Marshal(ProductSyncPayload{ProductID: productID, UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeProductSync, data, asynq.MaxRetry(0)), nil
}

// NewStockReconcileTask constructs a reconcile task.
func NewStockReconcileTask(companyID int64, at time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(StockReconcilePayload{CompanyID: companyID, ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeStockReconcile, data, asynq.Queue(QueueDefault)), nil
}
