package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/catalog"
	"github.com/peterkuimelis/duelcore/internal/game"
	"github.com/peterkuimelis/duelcore/internal/log"
	"github.com/peterkuimelis/duelcore/internal/match"
	"github.com/peterkuimelis/duelcore/internal/net"
)

//go:embed static
var staticFiles embed.FS

// CardInfo is the JSON representation of a card for the /api/cards endpoint.
type CardInfo struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	CardType  string   `json:"cardType"`
	Subtype   string   `json:"subtype,omitempty"`
	Archetype string   `json:"archetype,omitempty"`
	Level     int      `json:"level,omitempty"`
	ATK       int      `json:"atk,omitempty"`
	DEF       int      `json:"def,omitempty"`
	Effects   []string `json:"effects,omitempty"`
	ArtPath   string   `json:"artPath,omitempty"`
}

// DeckInfo is the JSON representation of a deck for the /api/decks endpoint.
type DeckInfo struct {
	Number int      `json:"number"`
	Name   string   `json:"name"`
	Size   int      `json:"size"`
	Cards  []string `json:"cards"`
}

// Options configures a spectator server. Service and ArtDir are optional.
type Options struct {
	Catalog     *catalog.Catalog
	Decks       *catalog.Decks
	Feed        *log.Feed
	Service     *match.Service
	ArtDir      string
	MappingFile string // card name -> art file path, JSON
	Logger      *zap.Logger
}

// Server is the duelcore spectator server: card and deck browsing plus a
// live websocket feed of match events.
type Server struct {
	opts       Options
	artMapping map[string]string
	logger     *zap.Logger
	mux        *http.ServeMux
}

// NewServer creates a new web server.
func NewServer(opts Options) (*Server, error) {
	if opts.Catalog == nil || opts.Feed == nil {
		return nil, errors.New("web server needs a catalog and an event feed")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	artMapping := make(map[string]string)
	if opts.MappingFile != "" {
		data, err := os.ReadFile(opts.MappingFile)
		if err != nil {
			logger.Warn("could not load art mapping", zap.String("path", opts.MappingFile), zap.Error(err))
		} else if err := json.Unmarshal(data, &artMapping); err != nil {
			logger.Warn("could not parse art mapping", zap.String("path", opts.MappingFile), zap.Error(err))
		}
	}

	s := &Server{
		opts:       opts,
		artMapping: artMapping,
		logger:     logger,
		mux:        http.NewServeMux(),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	staticFS, _ := fs.Sub(staticFiles, "static")

	s.mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		f, err := staticFS.Open("index.html")
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	if s.opts.ArtDir != "" {
		s.mux.Handle("GET /art/", http.StripPrefix("/art/", http.FileServer(http.Dir(s.opts.ArtDir))))
	}

	s.mux.HandleFunc("GET /api/cards", s.handleCards)
	s.mux.HandleFunc("GET /api/decks", s.handleDecks)
	s.mux.HandleFunc("GET /api/matches/{id}", s.handleMatch)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	var cards []CardInfo
	for _, d := range s.opts.Catalog.All() {
		ci := CardInfo{
			ID:        d.ID,
			Name:      d.Name,
			CardType:  string(d.CardType),
			Archetype: d.Archetype,
			Level:     d.Level,
		}
		switch d.CardType {
		case game.CardTypeMonster:
			ci.ATK, ci.DEF = d.Attack, d.Defense
		case game.CardTypeSpell:
			ci.Subtype = string(d.SpellType)
		case game.CardTypeTrap:
			ci.Subtype = string(d.TrapType)
		}
		for _, eff := range d.Ability.Effects {
			ci.Effects = append(ci.Effects, eff.Kind.String())
		}
		// mapping entries are relative to the repo root; the art dir is mounted at /art/
		if artPath, ok := s.artMapping[d.Name]; ok {
			ci.ArtPath = "/art/" + strings.TrimPrefix(artPath, "card_art/")
		}
		cards = append(cards, ci)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleDecks(w http.ResponseWriter, r *http.Request) {
	decks := []DeckInfo{}
	if s.opts.Decks != nil {
		for i, name := range s.opts.Decks.Names() {
			ids, _ := s.opts.Decks.Deck(name)
			di := DeckInfo{Number: i + 1, Name: name, Size: len(ids)}
			// Unique card names for display
			seen := make(map[string]bool)
			for _, id := range ids {
				cardName := id
				if d, ok := s.opts.Catalog.Definition(id); ok {
					cardName = d.Name
				}
				if !seen[cardName] {
					di.Cards = append(di.Cards, cardName)
					seen[cardName] = true
				}
			}
			decks = append(decks, di)
		}
	}
	writeJSON(w, http.StatusOK, decks)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if s.opts.Service == nil {
		http.Error(w, "no match service", http.StatusNotFound)
		return
	}
	gs, err := s.opts.Service.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, game.ErrIntegrity) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Warn("read match", zap.String("match_id", r.PathValue("id")), zap.Error(err))
		http.Error(w, "could not read match", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, net.BuildSpectatorView(s.opts.Service.Engine(), gs))
}

// handleWebSocket streams events to a spectator. ?match= narrows the stream
// to one match and starts it with a state snapshot.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("match")
	// Subscribe before the handshake completes so nothing published after
	// the client connects is missed.
	sub := s.opts.Feed.Subscribe(matchID)
	defer sub.Close()

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow connections from any origin
	})
	if err != nil {
		s.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	defer wsConn.CloseNow()

	// Spectators never send; CloseRead handles control frames and cancels
	// ctx once the browser goes away.
	ctx := wsConn.CloseRead(r.Context())

	if matchID != "" && s.opts.Service != nil {
		if gs, err := s.opts.Service.Get(ctx, matchID); err == nil {
			sv := net.BuildSpectatorView(s.opts.Service.Engine(), gs)
			if err := s.write(ctx, wsConn, net.ServerMessage{Type: net.MsgState, MatchID: matchID, State: sv}); err != nil {
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			wsConn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			msg := net.ServerMessage{Type: net.MsgEvent, MatchID: ev.MatchID, Event: net.NewEventView(ev)}
			if err := s.write(ctx, wsConn, msg); err != nil {
				s.logger.Debug("websocket write", zap.Error(err))
				return
			}
			if ev.Type == log.EventGameEnd && matchID != "" {
				wsConn.Close(websocket.StatusNormalClosure, "game ended")
				return
			}
		}
	}
}

func (s *Server) write(ctx context.Context, c *websocket.Conn, msg net.ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, c, msg)
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	s.logger.Info("spectator server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
