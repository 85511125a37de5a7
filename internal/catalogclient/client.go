// Package catalogclient is the order service's caller of the catalog S2S API.
package catalogclient

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/ariefcatur/go-catalog-orders/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	pathLookup  = "/api/public/products/lookup"
	pathReserve = "/api/public/inventory/decrement"
)

type Options struct {
	Resolver Resolver
	Key      string
	Timeout  time.Duration
	Cache    SnapshotCache // optional
	Log      zerolog.Logger
}

type Client struct {
	resolver Resolver
	key      string
	http     *http.Client
	tracer   trace.Tracer
	cache    SnapshotCache
	group    singleflight.Group
	log      zerolog.Logger
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Client{
		resolver: opts.Resolver,
		key:      opts.Key,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: &http.Transport{MaxIdleConns: 100, MaxIdleConnsPerHost: 100, IdleConnTimeout: 90 * time.Second},
		},
		tracer: otel.Tracer("catalogclient"),
		cache:  opts.Cache,
		log:    opts.Log,
	}
}

type lookupRequest struct {
	IDs []string `json:"ids"`
}

// Lookup returns the snapshots of the ids the catalog knows. Cached entries
// are served locally; concurrent fetches of the same id set share one call.
func (c *Client) Lookup(ctx context.Context, ids []string) ([]ProductSnapshot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found := make(map[string]ProductSnapshot, len(ids))
	missing := ids
	if c.cache != nil {
		hit, err := c.cache.GetMany(ctx, ids)
		if err != nil {
			c.log.Warn().Err(err).Msg("lookup cache read")
		}
		missing = missing[:0:0]
		for _, id := range ids {
			if s, ok := hit[id]; ok {
				found[id] = s
				continue
			}
			missing = append(missing, id)
		}
		metrics.LookupCache.WithLabelValues("hit").Add(float64(len(found)))
		metrics.LookupCache.WithLabelValues("miss").Add(float64(len(missing)))
	}

	if len(missing) > 0 {
		key := append([]string(nil), missing...)
		sort.Strings(key)
		// The shared call must not die with whichever caller started it; each
		// caller still stops waiting when its own context ends.
		shared := context.WithoutCancel(ctx)
		ch := c.group.DoChan(strings.Join(key, ","), func() (any, error) {
			var out []ProductSnapshot
			if err := c.post(shared, "lookup", pathLookup, lookupRequest{IDs: missing}, &out); err != nil {
				return nil, err
			}
			if c.cache != nil && len(out) > 0 {
				if err := c.cache.SetMany(shared, out); err != nil {
					c.log.Warn().Err(err).Msg("lookup cache write")
				}
			}
			return out, nil
		})
		var v any
		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			v = res.Val
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, ctx.Err(), "catalog lookup")
		}
		for _, s := range v.([]ProductSnapshot) {
			found[s.ID] = s
		}
	}

	out := make([]ProductSnapshot, 0, len(found))
	for _, id := range ids {
		if s, ok := found[id]; ok {
			out = append(out, s)
			delete(found, id)
		}
	}
	return out, nil
}

type reserveRequest struct {
	Lines []Line `json:"lines"`
}

type reserveResponse struct {
	OK      bool     `json:"ok"`
	Results []Result `json:"results"`
}

// Reserve asks the catalog to decrement every line atomically.
func (c *Client) Reserve(ctx context.Context, lines []Line) ([]Result, error) {
	var resp reserveResponse
	if err := c.post(ctx, "reserve", pathReserve, reserveRequest{Lines: lines}, &resp); err != nil {
		return nil, err
	}
	if !resp.OK || len(resp.Results) != len(lines) {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, errors.New("malformed reservation response"), "catalog reserve")
	}
	if c.cache != nil {
		evict := make([]string, 0, len(lines))
		for _, l := range lines {
			evict = append(evict, l.ProductID)
		}
		if err := c.cache.Evict(ctx, evict...); err != nil {
			c.log.Warn().Err(err).Msg("lookup cache evict")
		}
	}
	return resp.Results, nil
}

type errorBody struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details"`
	Issues  []apperr.Issue `json:"issues"`
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "catalog."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(apperr.KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		metrics.CatalogCalls.WithLabelValues(op, outcome).Inc()
		span.End()
	}()

	if c.resolver == nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, errors.New("catalog base url not configured"), "catalog "+op)
	}
	base, err := c.resolver.BaseURL(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, err, "resolve catalog")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	url := strings.TrimRight(base, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}
	span.SetAttributes(attribute.String("http.url", url), attribute.String("http.method", http.MethodPost))
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, err, "catalog "+op)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, err, "read catalog response")
	}
	if resp.StatusCode/100 != 2 {
		return decodeFailure(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, err, "decode catalog response")
	}
	return nil
}

// decodeFailure maps a catalog error response onto the shared taxonomy.
func decodeFailure(status int, raw []byte) error {
	var body errorBody
	_ = json.Unmarshal(raw, &body)

	switch status {
	case http.StatusConflict:
		return apperr.New(apperr.KindInsufficientStock, body.Details)
	case http.StatusUnauthorized:
		return apperr.New(apperr.KindUnauthorized, nil)
	case http.StatusForbidden:
		return apperr.New(apperr.KindForbidden, nil)
	case http.StatusUnprocessableEntity:
		return apperr.Validation(body.Issues...)
	case http.StatusNotFound:
		return apperr.NotFound()
	}
	if status >= 500 {
		return apperr.New(apperr.KindUpstreamUnavailable, map[string]any{"status": status, "upstream": body.Error})
	}
	return apperr.Wrap(apperr.KindInternal, errors.Errorf("catalog answered %d %s", status, body.Error), "catalog")
}
