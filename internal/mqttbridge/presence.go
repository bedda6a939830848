package mqttbridge

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Presence statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Presence is the retained status message of a listener.
type Presence struct {
	ClientID  string `json:"client_id"`
	Hostname  string `json:"hostname"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// NewClientID returns mqtt-listener-<8 hex>.
func NewClientID() string {
	return "mqtt-listener-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// PresencePayload encodes the presence message for status at the given time.
func PresencePayload(clientID, status string, at time.Time) []byte {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	body, _ := json.Marshal(Presence{ClientID: clientID, Hostname: host, Status: status, Timestamp: at.Unix()})
	return body
}
