// Package statusapi — HTTP только на чтение: что сейчас в комнате.
//
//	GET /health
//	GET /room
//	GET /history/plays?limit=N
//	GET /history/chat?limit=N
//	GET /users/{id}
//
// Снимок читается в цикле бота через Query, обработчики HTTP сами состояние
// не трогают.
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/EgorLis/dubbot/internal/bot"
	"github.com/EgorLis/dubbot/internal/event"
)

const queryTimeout = 5 * time.Second

// Querier — часть бота, нужная серверу.
type Querier interface {
	Query(ctx context.Context, fn func(st *bot.State)) error
}

type Server struct {
	q   Querier
	log *slog.Logger
	r   *mux.Router
}

func New(q Querier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{q: q, log: logger, r: mux.NewRouter()}

	s.r.HandleFunc("/health", s.health).Methods("GET")
	s.r.HandleFunc("/room", s.room).Methods("GET")
	s.r.HandleFunc("/history/plays", s.plays).Methods("GET")
	s.r.HandleFunc("/history/chat", s.chat).Methods("GET")
	s.r.HandleFunc("/users/{id}", s.user).Methods("GET")
	return s
}

func (s *Server) Handler() http.Handler { return s.r }

// ListenAndServe работает до отмены ctx.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("status api listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// query выполняет fn в цикле бота; false — ответ уже записан.
func (s *Server) query(w http.ResponseWriter, r *http.Request, fn func(st *bot.State)) bool {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	if err := s.q.Query(ctx, fn); err != nil {
		s.log.Warn("status query failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusServiceUnavailable, "bot unavailable")
		return false
	}
	return true
}

type healthResponse struct {
	Status string `json:"status"`
	Room   string `json:"room"`
	Self   string `json:"self"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	var resp healthResponse
	if !s.query(w, r, func(st *bot.State) {
		resp = healthResponse{Status: "ok", Room: st.Options.Room, Self: st.Bot.SelfID()}
	}) {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type roomResponse struct {
	Room        string             `json:"room"`
	Users       []event.User       `json:"users"`
	CurrentPlay *event.Play        `json:"currentPlay"`
	WaitList    []event.QueueEntry `json:"waitList"`
}

func (s *Server) room(w http.ResponseWriter, r *http.Request) {
	var resp roomResponse
	if !s.query(w, r, func(st *bot.State) {
		resp.Room = st.Options.Room
		resp.Users = st.Room.Users()
		resp.WaitList = st.Room.WaitList()
		if p, ok := st.Room.CurrentPlay(); ok {
			resp.CurrentPlay = &p
		}
	}) {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) plays(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	var plays []event.Play
	if !s.query(w, r, func(st *bot.State) { plays = st.Room.PlayHistory() }) {
		return
	}
	writeJSON(w, http.StatusOK, head(plays, limit))
}

// chat — свежие сообщения первыми, как в трекере.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	var msgs []event.ChatMessage
	if !s.query(w, r, func(st *bot.State) { msgs = st.Room.ChatHistory() }) {
		return
	}
	writeJSON(w, http.StatusOK, head(msgs, limit))
}

func (s *Server) user(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var (
		u     event.User
		found bool
	)
	if !s.query(w, r, func(st *bot.State) { u, found = st.Room.User(id) }) {
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative number")
		return 0, false
	}
	return n, true
}

func head[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
