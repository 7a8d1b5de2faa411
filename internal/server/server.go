package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sashabaranov/go-openai"
	"tailscale.com/client/tailscale/apitype"

	"github.com/meltforce/trainergpt/internal/agent"
	"github.com/meltforce/trainergpt/internal/cache"
	"github.com/meltforce/trainergpt/internal/ingest"
	"github.com/meltforce/trainergpt/internal/metrics"
	"github.com/meltforce/trainergpt/internal/models"
	"github.com/meltforce/trainergpt/internal/storage"
	"github.com/meltforce/trainergpt/internal/tools"
)

// Store is the storage the server needs outside of tool calls.
type Store interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	ActiveSession(ctx context.Context, userID int) (*models.ActiveSession, error)
	Ping(ctx context.Context) error
}

var _ Store = (*storage.DB)(nil)

// ProfileStore manages the training setup the tools read: profile, volume
// landmarks, mesocycles and session completion.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, userID int, p models.UserProfile) error
	SetLandmark(ctx context.Context, userID int, group string, lm models.Landmark) error
	StartMesocycle(ctx context.Context, userID int, name, splitType string, totalWeeks int) (*models.Mesocycle, error)
	AdvanceMesocycleWeek(ctx context.Context, userID int) error
	CompleteSession(ctx context.Context, userID int, sessionID string, minutes int) error
}

var _ ProfileStore = (*storage.DB)(nil)

// WhoIsClient resolves a tailnet peer address to its user.
type WhoIsClient interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

// Importer stores an uploaded training log export for a user.
type Importer interface {
	Import(ctx context.Context, userID int, r io.Reader) (*ingest.Result, error)
}

// CatalogueFor returns the tool catalogue bound to a user.
type CatalogueFor func(userID int) *tools.Catalogue

// Config carries the server's dependencies.
type Config struct {
	Store        Store
	CatalogueFor CatalogueFor
	Chat         agent.ChatClient
	Model        string
	AgentOptions []agent.Option
	Policy       string
	APIKey       string
	Importer     Importer
	// Profiles enables the setup endpoints under /api/v1 when set.
	Profiles ProfileStore
	// Cache is invalidated after setup changes. May be nil.
	Cache *cache.Cache
	// MCP is mounted at /mcp when set.
	MCP http.Handler
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store        Store
	catalogueFor CatalogueFor
	chat         agent.ChatClient
	model        string
	agentOpts    []agent.Option
	policy       string
	mcp          http.Handler
	importer     Importer
	profiles     ProfileStore
	cache        *cache.Cache
	log          *slog.Logger
	apiKey       string
	router       chi.Router
	whois        WhoIsClient
	now          func() time.Time
}

// New creates a new Server with all routes configured.
func New(cfg Config, log *slog.Logger) *Server {
	s := &Server{
		store:        cfg.Store,
		catalogueFor: cfg.CatalogueFor,
		chat:         cfg.Chat,
		model:        cfg.Model,
		agentOpts:    cfg.AgentOptions,
		policy:       cfg.Policy,
		mcp:          cfg.MCP,
		importer:     cfg.Importer,
		profiles:     cfg.Profiles,
		cache:        cfg.Cache,
		log:          log,
		apiKey:       cfg.APIKey,
		now:          time.Now,
	}
	s.buildRouter()
	return s
}

// SetTailscale switches identity resolution to tailnet WhoIs lookups. Must be
// called before the server starts handling requests.
func (s *Server) SetTailscale(lc WhoIsClient) {
	s.whois = lc
	s.buildRouter()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) buildRouter() {
	r := chi.NewRouter()
	r.Use(RequestLogging(s.log))
	r.Use(CORS)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(APIKeyAuth(s.apiKey))
		}
		r.Use(s.identity())

		r.Get("/api/v1/me", s.handleMe)
		r.Get("/api/v1/tools", s.handleListTools)
		r.Post("/api/v1/tools/{name}", s.handleCallTool)
		r.Post("/api/v1/chat", s.handleChat)
		if s.importer != nil {
			r.Post("/api/v1/import", s.handleImport)
		}
		if s.profiles != nil {
			r.Put("/api/v1/profile", s.handlePutProfile)
			r.Put("/api/v1/landmarks/{group}", s.handlePutLandmark)
			r.Post("/api/v1/mesocycles", s.handleStartMesocycle)
			r.Post("/api/v1/mesocycles/advance", s.handleAdvanceMesocycle)
			r.Post("/api/v1/sessions/active/complete", s.handleCompleteSession)
		}
		if s.mcp != nil {
			r.Handle("/mcp", s.mcp)
		}
	})
	s.router = r
}

// identity picks the identity middleware for the current deployment.
func (s *Server) identity() func(http.Handler) http.Handler {
	switch {
	case s.whois != nil:
		return TailscaleIdentity(s.whois, s.store, s.log)
	case s.store != nil:
		return HeaderIdentity(s.store, s.log)
	default:
		return DevIdentity
	}
}

// newAgent builds a per-request agent over the user's catalogue.
func (s *Server) newAgent(userID int) (*agent.Agent, error) {
	return agent.New(s.chat, s.catalogueFor(userID), s.model, s.log.With("user_id", userID), s.agentOpts...)
}

func toMessages(in []chatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(in))
	for _, m := range in {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
