package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Price is an oracle observation for a feed.
type Price struct {
	Feed      common.Address `json:"feed"`
	Value     int64          `json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}
