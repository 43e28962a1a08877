package hub

import (
	"errors"
	"fmt"
)

// ErrDuplicateID indicates a registration conflict: a live connection with
// the same identifier already exists. The registry is left unchanged.
var ErrDuplicateID = errors.New("connection id already registered")

// DeliveryError reports a failed delivery to a single recipient. Delivery
// failures are isolated: they are logged and never abort fan-out to the
// remaining recipients.
type DeliveryError struct {
	RecipientID string
	Reason      string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %s", e.RecipientID, e.Reason)
}
