package catalogclient

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-catalog-orders/internal/events"
	"github.com/ariefcatur/go-catalog-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// Invalidator consumes catalog events and drops the affected snapshots from
// the lookup cache. It is installed as a kafka consumer handler.
type Invalidator struct {
	Cache    SnapshotCache
	Redis    *redis.Client // optional, dedups redelivered events
	Consumer string
	Log      zerolog.Logger
}

func (v *Invalidator) Handle(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		v.Log.Warn().Err(err).Str("topic", m.Topic).Msg("skip undecodable event")
		return nil
	}

	var ids []string
	switch env.EventType {
	case events.TypeStockReserved:
		p, err := events.Decode[events.StockReservedPayload](env)
		if err != nil {
			return nil
		}
		for _, l := range p.Lines {
			ids = append(ids, l.ProductID)
		}
	case events.TypeProductChanged:
		p, err := events.Decode[events.ProductChangedPayload](env)
		if err != nil {
			return nil
		}
		ids = append(ids, p.ProductID)
	default:
		return nil
	}

	if v.Cache == nil || len(ids) == 0 {
		return nil
	}
	dedup := ""
	if v.Redis != nil && env.EventID != "" {
		dedup = fmt.Sprintf(redisx.KeyDedup, v.Consumer, env.EventID)
		first, err := redisx.MarkOnce(ctx, v.Redis, dedup, redisx.TTLDedup)
		if err == nil && !first {
			return nil
		}
	}
	if err := v.Cache.Evict(ctx, ids...); err != nil {
		if dedup != "" {
			_ = v.Redis.Del(ctx, dedup).Err()
		}
		return err
	}
	v.Log.Debug().Str("event_type", env.EventType).Strs("product_ids", ids).Msg("evicted snapshots")
	return nil
}
