package redisx

import "time"

const (
	// Cart per session: cart:{session_id}:{namespace} -> JSON line items (tanpa TTL)
	KeyCart = "cart:%s:%s"

	// Cache tracking order: order_status:{order_number} -> JSON TrackedOrder
	KeyOrderStatus = "order_status:%d"

	// Cache katalog
	KeyProduct      = "catalog:product:%s"
	KeyGovernorates = "catalog:governorates"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLCatalog     = time.Minute
	TTLDedup       = 48 * time.Hour
)
