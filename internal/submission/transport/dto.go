// Package transport defines response DTOs for the submission endpoints.
package transport

import (
	"time"

	"funnel_backend/internal/submission/repository"
)

// DeliveryView is one recorded downstream delivery outcome.
type DeliveryView struct {
	Destination string    `json:"destination"`
	State       string    `json:"state"`
	Detail      string    `json:"detail,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// DeliveryListResponse wraps the delivery history of one submission.
type DeliveryListResponse struct {
	Deliveries []DeliveryView `json:"deliveries"`
}

// ToDeliveryList maps repository deliveries to the response shape.
func ToDeliveryList(deliveries []repository.Delivery) DeliveryListResponse {
	views := make([]DeliveryView, 0, len(deliveries))
	for _, d := range deliveries {
		views = append(views, DeliveryView{
			Destination: string(d.Destination),
			State:       string(d.State),
			Detail:      d.Detail,
			RecordedAt:  d.RecordedAt,
		})
	}
	return DeliveryListResponse{Deliveries: views}
}
