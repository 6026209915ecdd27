// Package metrics holds the Prometheus collectors the application exports on
// /metrics. Collectors register with the default registry at init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UsersRegistered counts successful registrations.
	UsersRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_users_registered_total",
		Help: "Total number of registered users",
	})

	// UsersDeleted counts deleted accounts.
	UsersDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_users_deleted_total",
		Help: "Total number of deleted user accounts",
	})

	// Logins counts credential checks by outcome ("success" or "failure").
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_logins_total",
		Help: "Total number of credential checks by outcome",
	}, []string{"outcome"})

	// PostMutations counts committed post writes by action
	// ("create", "edit", "delete").
	PostMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_post_mutations_total",
		Help: "Total number of committed post mutations by action",
	}, []string{"action"})

	// CommentsAdded counts new comments.
	CommentsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_comments_added_total",
		Help: "Total number of comments added",
	})

	// FollowEdges counts follow and unfollow requests that reached the store.
	FollowEdges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_follow_requests_total",
		Help: "Total number of follow and unfollow requests",
	}, []string{"action"})

	// FeedCache counts feed cache lookups by result ("hit", "miss", "error").
	FeedCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_feed_cache_lookups_total",
		Help: "Feed cache lookups by result",
	}, []string{"result"})

	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// HTTPRequests counts served requests by method, route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPDuration records request latency by method and route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Label values shared by callers.
const (
	ActionCreate   = "create"
	ActionEdit     = "edit"
	ActionDelete   = "delete"
	ActionFollow   = "follow"
	ActionUnfollow = "unfollow"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)
