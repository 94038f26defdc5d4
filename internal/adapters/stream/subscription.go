package stream

import "github.com/okian/vesselsnap/internal/domain/model"

// Subscription is the first and only message sent upstream. Field names are
// the feed's.
type Subscription struct {
	APIKey             string          `json:"APIKey"`
	BoundingBoxes      [][2][2]float64 `json:"BoundingBoxes"`
	FilterMessageTypes []string        `json:"FilterMessageTypes,omitempty"`
}

// NewSubscription builds a subscription for one box. The feed wants opposite
// corners as [lat, lon] pairs, north-west first.
func NewSubscription(apiKey string, box model.BoundingBox, messageTypes []string) Subscription {
	return Subscription{
		APIKey:             apiKey,
		BoundingBoxes:      [][2][2]float64{box.Corners()},
		FilterMessageTypes: messageTypes,
	}
}
