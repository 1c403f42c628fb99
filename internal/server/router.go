package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/graph-gophers/graphql-transport-ws/graphqlws"
	"github.com/huddleup/huddle/internal/auth"
	"github.com/huddleup/huddle/internal/graph"
	"github.com/huddleup/huddle/internal/metrics"
	"github.com/huddleup/huddle/internal/model"
	"github.com/huddleup/huddle/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	errMissingSchema       = errors.New("graphql schema dependency required")
	errMissingTokenManager = errors.New("token manager dependency required")
	errMissingStore        = errors.New("record store dependency required")
)

// Dependencies wires the GraphQL endpoint into the HTTP layer.
type Dependencies struct {
	Schema  *graphql.Schema
	Tokens  *auth.TokenIssuer
	Store   store.Store
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// NewHTTPHandler builds the router: /graphql for queries, mutations and
// WebSocket subscriptions, /metrics and /healthz alongside.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Schema == nil {
		return nil, errMissingSchema
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenManager
	}
	if deps.Store == nil {
		return nil, errMissingStore
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	collectors := deps.Metrics
	if collectors == nil {
		collectors = metrics.New()
	}

	handler := &httpHandler{
		tokens:  deps.Tokens,
		store:   deps.Store,
		metrics: collectors,
		logger:  logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	router.Use(handler.recordMetrics)

	// The same handler serves plain HTTP operations and WebSocket
	// subscription upgrades; the transport-ws wrapper sniffs the upgrade.
	graphqlHandler := graphqlws.NewHandlerFunc(deps.Schema, handler.withViewer(&relay.Handler{Schema: deps.Schema}),
		graphqlws.WithContextGenerator(graphqlws.ContextGeneratorFunc(handler.buildContext)))
	router.POST("/graphql", gin.WrapH(graphqlHandler))
	router.GET("/graphql", gin.WrapH(graphqlHandler))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(collectors.Registry(), promhttp.HandlerOpts{})))

	return router, nil
}

type httpHandler struct {
	tokens  *auth.TokenIssuer
	store   store.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// withViewer attaches the lazily-resolved acting user to the request
// context before the GraphQL handler runs.
func (h *httpHandler) withViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := h.buildContext(r.Context(), r)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// buildContext is shared between the plain HTTP path and the WebSocket
// context generator. An absent or invalid token resolves to an anonymous
// viewer; individual resolvers decide what anonymous may see.
func (h *httpHandler) buildContext(ctx context.Context, r *http.Request) (context.Context, error) {
	token := bearerToken(r)
	requestContext := graph.NewRequestContext(func(ctx context.Context) (*model.User, error) {
		if token == "" {
			return nil, nil
		}
		subject, err := h.tokens.ValidateToken(token)
		if err != nil {
			h.logger.Warn("token validation failed", zap.Error(err))
			return nil, nil
		}
		user, err := h.store.UserByID(ctx, subject)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return user, nil
	})
	return graph.WithRequestContext(ctx, requestContext), nil
}

func (h *httpHandler) recordMetrics(c *gin.Context) {
	start := time.Now()
	c.Next()

	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	h.metrics.RequestsTotal.WithLabelValues(path, strconv.Itoa(c.Writer.Status())).Inc()
	h.metrics.RequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
