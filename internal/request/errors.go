package request

import "fmt"

// MaxScanLimitExceededError rejects a scan whose limit is above the cap. It is
// raised before dispatch and never retried.
type MaxScanLimitExceededError struct {
	Limit    uint32
	MaxLimit uint32
}

func (e *MaxScanLimitExceededError) Error() string {
	return fmt.Sprintf("limit %d exceeds max scan limit %d", e.Limit, e.MaxLimit)
}
