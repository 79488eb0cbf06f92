/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/drilonhametaj25/milionario-game/storage"
	"github.com/drilonhametaj25/milionario-game/stories"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	gamePath         = "/millionaire"
	playerCookieName = "milionario_id"

	// Room codes avoid characters that are easy to misread (0/O, 1/I).
	roomAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength = 6

	historyLimit = 20

	maxMessageSize = 4096
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	writeWait      = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

// normalizeRoomCode uppercases s and reports whether it is a valid room code.
func normalizeRoomCode(s string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) != roomCodeLength {
		return "", false
	}

	for _, r := range code {
		if !strings.ContainsRune(roomAlphabet, r) {
			return "", false
		}
	}

	return code, true
}

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by room code, so each
// $path/$code is its own isolated room.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	settings    roomSettings

	done     chan struct{}
	stopOnce sync.Once
}

func newGameManager(idleTimeout time.Duration, settings roomSettings) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		settings:    settings,
		done:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

// getHub returns the room for code, creating it with story when missing.
// A nil story means the default one.
func (gm *GameManager) getHub(cfg *Config, code string, story *stories.Story) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[code]; ok {
		return hub
	}

	if story == nil {
		story, _ = gm.settings.library.Get(stories.DefaultSlug)
	}

	hub := newHub(code, story, gm.settings)
	gm.hubs[code] = hub
	go hub.run(cfg)

	logf(cfg, "GAMES: Opened room %s (story %q)", code, story.Slug)

	return hub
}

func (gm *GameManager) lookup(code string) (*Hub, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hub, ok := gm.hubs[code]
	return hub, ok
}

// newRoomCode generates a crypto-random room code that does not collide
// with an open room.
func (gm *GameManager) newRoomCode() string {
	for {
		buf := make([]byte, roomCodeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, roomCodeLength)
		for i := range out {
			out[i] = roomAlphabet[int(buf[i])%len(roomAlphabet)]
		}
		code := string(out)

		if _, exists := gm.lookup(code); !exists {
			return code
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		case <-gm.done:
			return
		}
	}
}

func (gm *GameManager) reap(cutoff time.Time) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	reaped := 0
	for code, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, code)
			go hub.closeAll()
			reaped++
		}
	}

	return reaped
}

// stop closes every room and ends the reaper.
func (gm *GameManager) stop() {
	gm.stopOnce.Do(func() {
		close(gm.done)
	})

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for code, hub := range gm.hubs {
		delete(gm.hubs, code)
		hub.closeAll()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := normalizeRoomCode(ps.ByName("gameid"))
		if !ok {
			http.Error(w, "invalid room code", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		hub := gm.getHub(cfg, code, nil)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			errs <- err
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 32),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.quit:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.quit:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.actions <- action{client: c, msg: msg}:
		case <-h.quit:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// QR handler: generates a PNG QR code for the room URL using go-qrcode.
func qrHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		if _, ok := normalizeRoomCode(ps.ByName("gameid")); !ok {
			http.Error(w, "invalid room code", http.StatusBadRequest)
			return
		}

		scheme := cfg.scheme()
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			errs <- err

			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)

		writeBody(cfg, w, r, errs, "QR code", http.StatusOK, png, startTime)
	}
}

// serveResults lists the most recent saved games of a room.
func serveResults(cfg *Config, results ResultStore, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		code, ok := normalizeRoomCode(ps.ByName("gameid"))
		if !ok {
			http.Error(w, "invalid room code", http.StatusBadRequest)
			return
		}

		if results == nil {
			http.NotFound(w, r)
			return
		}

		games, err := results.GamesForRoom(r.Context(), code, historyLimit)
		if err != nil {
			errs <- err

			http.Error(w, "unable to load results", http.StatusInternalServerError)
			return
		}

		data, err := json.Marshal(games)
		if err != nil {
			errs <- err

			http.Error(w, "unable to encode results", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		writeBody(cfg, w, r, errs, "Results for "+code, http.StatusOK, data, startTime)
	}
}

// serveResult returns one stored game, as long as it was played in the
// room named by the path.
func serveResult(cfg *Config, results ResultStore, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		code, ok := normalizeRoomCode(ps.ByName("gameid"))
		if !ok {
			http.Error(w, "invalid room code", http.StatusBadRequest)
			return
		}

		if results == nil {
			http.NotFound(w, r)
			return
		}

		result, err := results.Game(r.Context(), ps.ByName("resultid"))
		switch {
		case errors.Is(err, storage.ErrNotFound):
			http.NotFound(w, r)
			return
		case err != nil:
			errs <- err

			http.Error(w, "unable to load result", http.StatusInternalServerError)
			return
		case result.RoomCode != code:
			http.NotFound(w, r)
			return
		}

		data, err := json.Marshal(result)
		if err != nil {
			errs <- err

			http.Error(w, "unable to encode result", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		writeBody(cfg, w, r, errs, "Result "+result.ID+" for "+code, http.StatusOK, data, startTime)
	}
}

func serveRoomPage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		code, ok := normalizeRoomCode(ps.ByName("gameid"))
		if !ok {
			http.Redirect(w, r, cfg.prefix+"/", http.StatusSeeOther)
			return
		}
		if code != ps.ByName("gameid") {
			http.Redirect(w, r, cfg.prefix+gamePath+"/"+code, http.StatusSeeOther)
			return
		}

		data, err := assets.ReadFile("assets/millionaire/index.html")
		if err != nil {
			errs <- err

			http.Error(w, "missing page", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		writeBody(cfg, w, r, errs, "Room "+code, http.StatusOK, data, startTime)
	}
}

// redirectNewGame opens a room with a fresh code and redirects to it. An
// optional ?story= picks the story.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		story, err := gm.settings.library.Get(r.URL.Query().Get("story"))
		if err != nil {
			story = nil
		}

		code := gm.newRoomCode()
		gm.getHub(cfg, code, story)

		http.Redirect(w, r, cfg.prefix+path+"/"+code, http.StatusSeeOther)
	}
}

// registerMillionaireGame sets up routes so that:
//   - $path                  → opens a new room and redirects to it
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that room
//   - $path/:gameid/qr       → PNG QR code for the room URL
//   - $path/:gameid/results  → saved games of the room, as JSON
func registerMillionaireGame(cfg *Config, path string, mux *httprouter.Router, library *stories.Library, results ResultStore, errs chan<- error) *GameManager {
	gm := newGameManager(cfg.sessionTimeout, roomSettings{
		library:       library,
		store:         results,
		minPlayers:    cfg.minPlayers,
		playerTimeout: cfg.playerTimeout,
		seed:          cfg.seed,
	})

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))
	mux.GET(cfg.prefix+path+"/:gameid", serveRoomPage(cfg, errs))
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm, errs))
	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler(cfg, errs))
	mux.GET(cfg.prefix+path+"/:gameid/results", serveResults(cfg, results, errs))
	mux.GET(cfg.prefix+path+"/:gameid/results/:resultid", serveResult(cfg, results, errs))

	return gm
}
