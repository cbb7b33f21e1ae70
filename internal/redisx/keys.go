package redisx

import "time"

const (
	// Cache verify result: payment_status:{reference} -> payment JSON
	KeyPaymentStatus = "payment_status:%s"

	// Dedup event publish/processing: dedup:{service}:{id} (id = reference:status or event_id)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 30 * time.Second
	TTLDedup       = 48 * time.Hour
)
