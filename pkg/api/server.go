package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"

	"stealth-swap/pkg/catalog"
	"stealth-swap/pkg/session"
	"stealth-swap/pkg/swap"
	"stealth-swap/pkg/types"
)

// Server exposes swap sessions over HTTP for a browser front end
type Server struct {
	store  *Store
	chains catalog.ChainProvider
	tokens catalog.TokenProvider
	router chi.Router
	log    *zap.Logger
}

// NewServer creates the API server and its routes
func NewServer(store *Store, chains catalog.ChainProvider, tokens catalog.TokenProvider, log *zap.Logger) *Server {
	s := &Server{
		store:  store,
		chains: chains,
		tokens: tokens,
		log:    log.Named("api"),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/health", s.health)
	r.Get("/chains", s.listChains)
	r.Get("/tokens", s.listTokens)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.withSession(s.getSession))
			r.Delete("/", s.deleteSession)

			r.Post("/connect", s.withSession(s.connect))
			r.Post("/disconnect", s.withSession(s.disconnect))
			r.Get("/wallet", s.withSession(s.walletCard))
			r.Get("/tokens", s.withSession(s.sessionTokens))

			r.Post("/legs/{side}/chain", s.withSession(s.selectChain))
			r.Post("/legs/{side}/token", s.withSession(s.selectToken))
			r.Post("/legs/{side}/amount", s.withSession(s.setAmount))
			r.Post("/legs/{side}/max", s.withSession(s.applyMax))

			r.Post("/reverse", s.withSession(s.reverse))
			r.Post("/visibility", s.withSession(s.visibility))
			r.Post("/submit", s.withSession(s.submit))
		})
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	server := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("HTTP service started", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error listening to %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}
	s.log.Info("HTTP service stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP service shutdown error: %w", err)
	}
	s.log.Info("HTTP service shutdown normal")
	return nil
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.store.Get(chi.URLParam(r, "id"))
		if err != nil {
			responseError(w, err, http.StatusNotFound)
			return
		}
		h(w, r, sess)
	}
}

func sideParam(r *http.Request) (types.Side, error) {
	raw := chi.URLParam(r, "side")
	side, ok := types.ParseSide(raw)
	if !ok {
		return 0, fmt.Errorf("unknown side %q", raw)
	}
	return side, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, map[string]interface{}{
		"status":   "ok",
		"sessions": s.store.Count(),
	}, http.StatusOK)
}

func (s *Server) listChains(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, s.chains.Chains(), http.StatusOK)
}

// listTokens serves the shared catalog. Balances belong to a session and are
// served by sessionTokens.
func (s *Server) listTokens(w http.ResponseWriter, r *http.Request) {
	tokens := s.tokens.Tokens()
	if q := r.URL.Query().Get("q"); q != "" {
		tokens = s.tokens.Search(q)
	}
	responseJSON(w, renderBalances(tokens, func(string) string { return "" }), http.StatusOK)
}

// sessionTokens serves the session's catalog with balance snapshots rendered
// under the session's visibility mode
func (s *Server) sessionTokens(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	cat := sess.Catalog()
	tokens := cat.Tokens()
	if q := r.URL.Query().Get("q"); q != "" {
		tokens = cat.Search(q)
	}

	vis := sess.Coordinator().Visibility()
	responseJSON(w, renderBalances(tokens, func(b string) string {
		return swap.FormatAmount(b, vis)
	}), http.StatusOK)
}

func renderBalances(tokens []types.Token, render func(string) string) []types.Token {
	out := make([]types.Token, len(tokens))
	for i, t := range tokens {
		if t.HasBalance() {
			t.Balance = render(t.Balance)
		}
		out[i] = t
	}
	return out
}

type sessionResponse struct {
	ID   string       `json:"id"`
	View session.View `json:"view"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id, sess := s.store.Create()
	responseJSON(w, sessionResponse{ID: id, View: sess.View()}, http.StatusCreated)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	responseJSON(w, sess.View(), http.StatusOK)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "id")); err != nil {
		responseError(w, err, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.Connect(r.Context()); err != nil {
		s.log.Warn("wallet connect failed", zap.Error(err))
		responseError(w, err, http.StatusBadGateway)
		return
	}
	responseJSON(w, sess.View(), http.StatusOK)
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Disconnect()
	responseJSON(w, sess.View(), http.StatusOK)
}

func (s *Server) walletCard(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	card, err := sess.WalletCard(r.Context())
	if err != nil {
		responseError(w, err, http.StatusBadGateway)
		return
	}
	responseJSON(w, card, http.StatusOK)
}

type selectRequest struct {
	ID string `json:"id"`
}

func (s *Server) selectChain(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.selectByID(w, r, sess, sess.Coordinator().SelectChainByID)
}

func (s *Server) selectToken(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.selectByID(w, r, sess, sess.Coordinator().SelectTokenByID)
}

func (s *Server) selectByID(w http.ResponseWriter, r *http.Request, sess *session.Session, selectFn func(types.Side, string) error) {
	side, err := sideParam(r)
	if err != nil {
		responseError(w, err, http.StatusBadRequest)
		return
	}

	var req selectRequest
	if err := decodeBody(r, &req); err != nil || req.ID == "" {
		responseError(w, fmt.Errorf("request body must be {\"id\": \"...\"}"), http.StatusBadRequest)
		return
	}

	if err := selectFn(side, req.ID); err != nil {
		responseError(w, err, statusFor(err))
		return
	}
	responseJSON(w, sess.View(), http.StatusOK)
}

type amountRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) setAmount(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	side, err := sideParam(r)
	if err != nil {
		responseError(w, err, http.StatusBadRequest)
		return
	}

	var req amountRequest
	if err := decodeBody(r, &req); err != nil {
		responseError(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}

	// Raw input is stored verbatim, even while it does not parse
	sess.Coordinator().SetAmount(side, req.Amount)
	responseJSON(w, sess.View(), http.StatusOK)
}

func (s *Server) applyMax(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	side, err := sideParam(r)
	if err != nil {
		responseError(w, err, http.StatusBadRequest)
		return
	}

	if err := sess.ApplyMax(r.Context(), side); err != nil {
		responseError(w, err, statusFor(err))
		return
	}
	responseJSON(w, sess.View(), http.StatusOK)
}

func (s *Server) reverse(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Coordinator().ReverseDirection()
	responseJSON(w, sess.View(), http.StatusOK)
}

type visibilityRequest struct {
	Mode string `json:"mode"`
}

// visibility sets the mode given in the body, or toggles without one
func (s *Server) visibility(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req visibilityRequest
	if err := decodeBody(r, &req); err != nil {
		responseError(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}

	if req.Mode == "" {
		sess.Coordinator().ToggleVisibility()
	} else {
		mode, err := swap.ParseVisibility(req.Mode)
		if err != nil {
			responseError(w, err, http.StatusBadRequest)
			return
		}
		sess.Coordinator().SetVisibility(mode)
	}
	responseJSON(w, sess.View(), http.StatusOK)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	outcome, err := sess.Submit(r.Context())
	if err != nil {
		code := statusFor(err)
		if code == http.StatusBadGateway {
			s.log.Warn("swap submission failed", zap.Error(err))
		}
		responseJSON(w, errorResponse{Status: "error", Message: err.Error(), Outcome: outcome}, code)
		return
	}
	responseJSON(w, outcome, http.StatusOK)
}
