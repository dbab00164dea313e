package monitor

import "time"

// GroupStatusEvent is published whenever a job group's aggregated status changes
type GroupStatusEvent struct {
	JobGroupID     int64     `json:"jobgroup_id"`
	UID            string    `json:"uid"`
	SubscriptionID int64     `json:"subscription_id"`
	Status         string    `json:"status"`
	Previous       string    `json:"previous,omitempty"`
	ObservedAt     time.Time `json:"observed_at"`
}
