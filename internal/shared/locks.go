package shared

import (
	"fmt"
	"strings"
)

// InventoryLockKey builds the redis key guarding a company's stock counters.
func InventoryLockKey(companyID int64) string {
	return fmt.Sprintf("inventory:company:%d:lock", companyID)
}

// IntakeLockKey builds the redis key guarding QR intake of one product name.
func IntakeLockKey(companyID int64, productName string) string {
	return fmt.Sprintf("intake:company:%d:%s:lock", companyID, strings.ToLower(strings.TrimSpace(productName)))
}
