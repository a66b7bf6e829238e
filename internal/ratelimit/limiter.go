package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/checkvibe/gatekeeper/internal/clock"
	"github.com/checkvibe/gatekeeper/internal/observability/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// Subject names one rate limited identity, e.g. {Kind: "key", ID: "123"}.
type Subject struct {
	Kind string
	ID   string
}

func (s Subject) String() string {
	return s.Kind + ":" + s.ID
}

type Result struct {
	Subject    Subject
	Allowed    bool
	Count      int64
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Check describes one request for CheckAll. KeyID is empty for session requests.
type Check struct {
	KeyID  string
	UserID string
	IP     string
	Plan   string
}

// Decision is the combined outcome of every subject checked for a request.
type Decision struct {
	Allowed bool
	// Denied is the first rejecting result, nil when allowed.
	Denied  *Result
	Results []Result
	Headers map[string]string
}

type Limiter struct {
	store   Store
	policy  *Policy
	clock   clock.Clock
	metrics *metrics.GateMetrics
	log     *zap.Logger
}

func NewLimiter(store Store, policy *Policy, clk clock.Clock, gate *metrics.GateMetrics, log *zap.Logger) *Limiter {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Limiter{
		store:   store,
		policy:  policy,
		clock:   clk,
		metrics: gate,
		log:     log.Named("ratelimit"),
	}
}

// Allow consumes one unit of subject's quota in the current window. The
// increment is never rolled back, so rejected requests also count.
func (l *Limiter) Allow(ctx context.Context, subject Subject, max int, window time.Duration) (*Result, error) {
	if subject.Kind == "" || strings.TrimSpace(subject.ID) == "" {
		return nil, errors.New("rate limit subject is empty")
	}
	if max <= 0 || window < time.Second {
		return nil, fmt.Errorf("invalid rate limit %d per %s", max, window)
	}

	now := l.clock.Now()
	seconds := int64(window / time.Second)
	bucket := now.Unix() / seconds
	resetAt := time.Unix((bucket+1)*seconds, 0).UTC()
	key := fmt.Sprintf("ratelimit:%s:%s:%d", subject.Kind, subject.ID, bucket)

	count, err := l.store.Incr(ctx, key, resetAt.Sub(now)+time.Second)
	if err != nil {
		l.metrics.IncRateLimitStoreError()
		return nil, fmt.Errorf("rate limit increment: %w", err)
	}

	result := &Result{
		Subject: subject,
		Allowed: count <= int64(max),
		Count:   count,
		Limit:   max,
		ResetAt: resetAt,
	}
	if remaining := int64(max) - count; remaining > 0 {
		result.Remaining = int(remaining)
	}
	if !result.Allowed {
		result.RetryAfter = resetAt.Sub(now)
	}
	l.metrics.ObserveRateLimit(subject.Kind, result.Allowed)
	return result, nil
}

// CheckAll applies the per-key (when present), per-user and per-IP limits of
// the caller's plan. Every applicable counter is incremented.
func (l *Limiter) CheckAll(ctx context.Context, check Check) (*Decision, error) {
	limits := l.policy.Limits(check.Plan)

	type item struct {
		subject Subject
		max     int
	}
	items := make([]item, 0, 3)
	if check.KeyID != "" {
		items = append(items, item{Subject{metrics.RateLimitSubjectKey, check.KeyID}, limits.PerKey})
	}
	if check.UserID != "" {
		items = append(items, item{Subject{metrics.RateLimitSubjectUser, check.UserID}, limits.PerUser})
	}
	if check.IP != "" {
		items = append(items, item{Subject{metrics.RateLimitSubjectIP, check.IP}, limits.PerIP})
	}
	if len(items) == 0 {
		return nil, errors.New("rate limit check has no subject")
	}

	results := make([]Result, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i := range items {
		g.Go(func() error {
			res, err := l.Allow(gctx, items[i].subject, items[i].max, limits.Window)
			if err != nil {
				return err
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	decision := &Decision{Allowed: true, Results: results}
	for i := range results {
		if !results[i].Allowed {
			decision.Allowed = false
			decision.Denied = &results[i]
			break
		}
	}
	decision.Headers = headersFor(decision)

	if !decision.Allowed {
		l.log.Debug("rate limit exceeded",
			zap.String("subject", decision.Denied.Subject.Kind),
			zap.Int64("count", decision.Denied.Count),
			zap.Int("limit", decision.Denied.Limit),
		)
	}
	return decision, nil
}

// headersFor reports the key window when present, else the user window.
func headersFor(d *Decision) map[string]string {
	source := &d.Results[0]
	for _, kind := range []string{metrics.RateLimitSubjectKey, metrics.RateLimitSubjectUser} {
		if res := findResult(d.Results, kind); res != nil {
			source = res
			break
		}
	}

	headers := map[string]string{
		HeaderLimit:     strconv.Itoa(source.Limit),
		HeaderRemaining: strconv.Itoa(source.Remaining),
		HeaderReset:     source.ResetAt.Format(time.RFC3339),
	}
	if d.Denied != nil {
		headers[HeaderRetryAfter] = strconv.FormatInt(retryAfterSeconds(d.Denied.RetryAfter), 10)
	}
	return headers
}

func findResult(results []Result, kind string) *Result {
	for i := range results {
		if results[i].Subject.Kind == kind {
			return &results[i]
		}
	}
	return nil
}

func retryAfterSeconds(d time.Duration) int64 {
	seconds := int64((d + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
