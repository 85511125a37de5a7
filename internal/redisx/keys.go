package redisx

import "time"

const (
	// Idempotent order create: idem:order:create:{Idempotency-Key} -> order id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Cached order document: order:{id} -> JSON
	KeyOrder = "order:%s"

	// Product lookup projection: catalog:snapshot:{product id} -> JSON
	KeyProductSnapshot = "catalog:snapshot:%s"

	// Event dedup: dedup:{consumer}:{event id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	// a claim outlives any single create; a crashed holder frees the key
	TTLIdempotencyClaim = 30 * time.Second
	TTLOrderCache       = 5 * time.Minute
	TTLDedup            = 48 * time.Hour
)
