/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Il Milionario
//
// Somebody at the table has just won the lottery and must not let it show.
// Every player receives a secret role with objectives; one of them holds
// the millionaire role, and in bigger rooms one or two accomplices help
// them hide. At the end everybody votes on who the millionaire is, peers
// optionally validate each other's objectives, and the scoreboard is
// revealed.
//
// Features:
// - One room per 6-character code: /millionaire/:gameid and /millionaire/:gameid/ws
// - First player to join hosts; hosting passes on when the host leaves
// - Phases: lobby, playing, voting, validating (optional), reveal
// - Roles drawn from a story catalog, paired roles kept together
// - Interaction objectives locked until their discovery has a tagged player
// - One immutable vote per player; voting closes once everyone has voted
// - Peer validation walks every objective of every player in join order
// - Finished games are saved to SQLite when a database is configured
// - Rooms auto-reaped after the configured idle timeout

package main

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/drilonhametaj25/milionario-game/game"
	"github.com/drilonhametaj25/milionario-game/storage"
	"github.com/drilonhametaj25/milionario-game/stories"
)

const maxNicknameLength = 24

type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhasePlaying    Phase = "playing"
	PhaseVoting     Phase = "voting"
	PhaseValidating Phase = "validating"
	PhaseReveal     Phase = "reveal"
)

// ResultStore receives finished games.
type ResultStore interface {
	SaveGame(ctx context.Context, g storage.GameResult) (string, error)
	GamesForRoom(ctx context.Context, roomCode string, limit int) ([]storage.GameResult, error)
	Game(ctx context.Context, id string) (storage.GameResult, error)
}

// Member is a player seated in a room.
type Member struct {
	PlayerID   string
	Nickname   string
	JoinedAt   time.Time
	Objectives map[string]game.ObjectiveStatus
}

// Messages coming from clients
type ClientMessage struct {
	Type       string `json:"type"`
	Nickname   string `json:"nickname,omitempty"`   // join
	Story      string `json:"story,omitempty"`      // set_story
	Validation *bool  `json:"validation,omitempty"` // settings
	TargetID   string `json:"target_id,omitempty"`  // kick / tag / vote / validate
	Objective  string `json:"objective,omitempty"`  // objective / tag / validate
	Completed  *bool  `json:"completed,omitempty"`  // objective
	Approved   *bool  `json:"approved,omitempty"`   // validate
}

// SimpleMessage is for errors and one-off notices ("error", "kicked").
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SessionInfoMessage is sent on connect so the client knows who it is.
type SessionInfoMessage struct {
	Type       string `json:"type"` // "session_info"
	PlayerID   string `json:"player_id"`
	IsExisting bool   `json:"is_existing"`
	IsHost     bool   `json:"is_host"`
	Nickname   string `json:"nickname,omitempty"`
	Phase      Phase  `json:"phase"`
}

type PlayerView struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	IsHost    bool   `json:"is_host"`
	Connected bool   `json:"connected"`
	HasVoted  bool   `json:"has_voted"`
}

type StoryView struct {
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Tagline    string `json:"tagline,omitempty"`
	Setting    string `json:"setting,omitempty"`
	Emoji      string `json:"emoji,omitempty"`
	MinPlayers int    `json:"min_players"`
	Capacity   int    `json:"capacity"`
}

// RoomStateMessage is broadcast after every change.
type RoomStateMessage struct {
	Type       string       `json:"type"` // "room_state"
	Code       string       `json:"code"`
	Phase      Phase        `json:"phase"`
	HostID     string       `json:"host_id,omitempty"`
	Story      StoryView    `json:"story"`
	Stories    []StoryView  `json:"stories,omitempty"`
	Players    []PlayerView `json:"players"`
	Validation bool         `json:"validation"`
	GameNumber int          `json:"game_number"`
	VotesCast  int          `json:"votes_cast"`
}

// RoleMessage is sent only to the player holding the role.
type RoleMessage struct {
	Type       string                          `json:"type"` // "role"
	Role       stories.RoleCopy                `json:"role"`
	Objectives map[string]game.ObjectiveStatus `json:"objectives"`
	Locked     []string                        `json:"locked,omitempty"`
	KnownID    string                          `json:"known_id,omitempty"`
	VotedFor   string                          `json:"voted_for,omitempty"`
}

// ValidationMessage describes the objective under review.
type ValidationMessage struct {
	Type         string                `json:"type"` // "validation_state"
	TargetID     string                `json:"target_id"`
	Objective    stories.ObjectiveCopy `json:"objective"`
	SelfReported bool                  `json:"self_reported"`
	TaggedID     string                `json:"tagged_id,omitempty"`
	Tally        game.Tally            `json:"tally"`
	Percentage   int                   `json:"percentage"`
	Rejections   int                   `json:"rejections"`
	YourVote     *bool                 `json:"your_vote,omitempty"`
	Cursor       game.ValidationCursor `json:"cursor"`
}

type RevealRow struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
	RoleKey  string `json:"role_key"`
	RoleName string `json:"role_name"`
	Emoji    string `json:"emoji,omitempty"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
	VotedFor string `json:"voted_for,omitempty"`
}

// RevealMessage is the end of game scoreboard.
type RevealMessage struct {
	Type        string                           `json:"type"` // "reveal"
	TargetID    string                           `json:"target_id"`
	Accomplices []string                         `json:"accomplices,omitempty"`
	Suspicion   int                              `json:"suspicion"`
	Outcome     string                           `json:"outcome"`
	Votes       []game.VoteResult                `json:"votes"`
	Validations map[string]map[string]game.Tally `json:"validations,omitempty"`
	Standings   []RevealRow                      `json:"standings"`
}

type action struct {
	client *Client
	msg    ClientMessage
}

// roomSettings are shared by every room of a manager.
type roomSettings struct {
	library       *stories.Library
	store         ResultStore
	minPlayers    int
	playerTimeout time.Duration
	seed          int64
}

type Hub struct {
	id       string
	settings roomSettings

	clients map[*Client]bool
	players []*Member

	register chan *Client
	unreg    chan *Client
	actions  chan action
	quit     chan struct{}
	stopOnce sync.Once

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
	hostID     string

	story      *stories.Story
	validation bool
	seed       int64
	assignor   *game.Assignor

	phase       Phase
	gameNumber  int
	assignment  game.Assignment
	votes       []game.ElectionVote
	validations *game.ValidationBook
	cursor      game.ValidationCursor
	saved       bool
}

func newHub(code string, story *stories.Story, settings roomSettings) *Hub {
	seed := settings.seed
	if seed == 0 {
		seed = game.MustSeed()
	}

	now := time.Now()

	return &Hub{
		id:          code,
		settings:    settings,
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unreg:       make(chan *Client),
		actions:     make(chan action),
		quit:        make(chan struct{}),
		createdAt:   now,
		lastActive:  now,
		story:       story,
		validation:  true,
		seed:        seed,
		assignor:    game.NewAssignor(game.NewRand(seed)),
		phase:       PhaseLobby,
		gameNumber:  1,
		validations: game.NewValidationBook(),
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.addClient(cfg, c)

		case c := <-h.unreg:
			h.removeClient(cfg, c)

		case a := <-h.actions:
			h.handle(cfg, a)

		case <-h.quit:
			return
		}
	}
}

func (h *Hub) addClient(cfg *Config, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A closed room turns late arrivals away.
	select {
	case <-h.quit:
		close(c.send)
		return
	default:
	}

	h.lastActive = time.Now()
	h.clients[c] = true

	m := h.memberLocked(c.playerID)

	info := SessionInfoMessage{
		Type:       "session_info",
		PlayerID:   c.playerID,
		IsExisting: m != nil,
		IsHost:     c.playerID == h.hostID,
		Phase:      h.phase,
	}
	if m != nil {
		info.Nickname = m.Nickname
	}
	h.sendLocked(c, info)

	if m != nil {
		h.sendPrivateLocked(c, m)
	}

	h.broadcastStateLocked()
}

func (h *Hub) removeClient(cfg *Config, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}

	if h.phase == PhaseLobby && h.memberLocked(c.playerID) != nil && !h.connectedLocked(c.playerID) {
		playerID := c.playerID
		time.AfterFunc(h.settings.playerTimeout, func() {
			h.removeIfGone(cfg, playerID)
		})
	}

	h.broadcastStateLocked()
}

// removeIfGone drops a lobby player that has not reconnected.
func (h *Hub) removeIfGone(cfg *Config, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.phase != PhaseLobby || h.connectedLocked(playerID) {
		return
	}

	if h.dropMemberLocked(playerID) {
		logf(cfg, "GAMES: Removed idle player %s from %s", playerID, h.id)
		h.broadcastStateLocked()
	}
}

func (h *Hub) handle(cfg *Config, a action) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	c, msg := a.client, a.msg
	if c.playerID == "" {
		return
	}

	switch msg.Type {
	case "join":
		h.joinLocked(cfg, c, msg)
	case "leave":
		h.leaveLocked(cfg, c)
	case "set_story", "settings", "kick", "start_game", "start_voting", "end_voting",
		"next_objective", "next_player", "reveal", "new_game":
		h.hostCommandLocked(cfg, c, msg)
	case "objective":
		h.objectiveLocked(c, msg)
	case "tag":
		h.tagLocked(c, msg)
	case "vote":
		h.voteLocked(cfg, c, msg)
	case "validate":
		h.validateLocked(c, msg)
	default:
		// ignore unknown types
	}
}

func (h *Hub) joinLocked(cfg *Config, c *Client, msg ClientMessage) {
	nickname := strings.Join(strings.Fields(msg.Nickname), " ")
	if nickname == "" || utf8.RuneCountInString(nickname) > maxNicknameLength {
		h.errorLocked(c, "Il nickname deve avere tra 1 e 24 caratteri.")
		return
	}

	m := h.memberLocked(c.playerID)

	if h.phase != PhaseLobby {
		if m == nil {
			h.errorLocked(c, "La partita è già iniziata.")
		}
		return
	}

	for _, other := range h.players {
		if other.PlayerID != c.playerID && strings.EqualFold(other.Nickname, nickname) {
			h.errorLocked(c, "Questo nickname è già in uso.")
			return
		}
	}

	if m != nil {
		m.Nickname = nickname
		h.broadcastStateLocked()
		return
	}

	if len(h.players) >= h.story.Capacity() {
		h.errorLocked(c, "La stanza è piena.")
		return
	}

	h.players = append(h.players, &Member{
		PlayerID: c.playerID,
		Nickname: nickname,
		JoinedAt: time.Now(),
	})
	if h.hostID == "" {
		h.hostID = c.playerID
	}

	logf(cfg, "GAMES: Player %q joined %s", nickname, h.id)

	h.sendLocked(c, SessionInfoMessage{
		Type:       "session_info",
		PlayerID:   c.playerID,
		IsExisting: true,
		IsHost:     c.playerID == h.hostID,
		Nickname:   nickname,
		Phase:      h.phase,
	})
	h.broadcastStateLocked()
}

func (h *Hub) leaveLocked(cfg *Config, c *Client) {
	if h.phase != PhaseLobby {
		h.errorLocked(c, "Non puoi lasciare una partita in corso.")
		return
	}

	if h.dropMemberLocked(c.playerID) {
		logf(cfg, "GAMES: Player %s left %s", c.playerID, h.id)
		h.broadcastStateLocked()
	}
}

func (h *Hub) hostCommandLocked(cfg *Config, c *Client, msg ClientMessage) {
	if h.hostID == "" || c.playerID != h.hostID {
		h.errorLocked(c, "Solo l'host può farlo.")
		return
	}

	switch msg.Type {
	case "set_story":
		if h.phase != PhaseLobby {
			return
		}
		s, err := h.settings.library.Get(msg.Story)
		if err != nil {
			h.errorLocked(c, "Storia sconosciuta.")
			return
		}
		if len(h.players) > s.Capacity() {
			h.errorLocked(c, "Troppi giocatori per questa storia.")
			return
		}
		h.story = s
		logf(cfg, "GAMES: Room %s switched to story %q", h.id, s.Slug)

	case "settings":
		if h.phase != PhaseLobby || msg.Validation == nil {
			return
		}
		h.validation = *msg.Validation

	case "kick":
		if h.phase != PhaseLobby || msg.TargetID == "" || msg.TargetID == h.hostID {
			return
		}
		if !h.dropMemberLocked(msg.TargetID) {
			return
		}
		for client := range h.clients {
			if client.playerID == msg.TargetID {
				h.sendLocked(client, SimpleMessage{
					Type:    "kicked",
					Message: "Sei stato rimosso dall'host.",
				})
			}
		}
		logf(cfg, "GAMES: Player %s kicked from %s", msg.TargetID, h.id)

	case "start_game":
		if h.phase != PhaseLobby {
			return
		}
		if err := h.startGameLocked(cfg); err != nil {
			h.errorLocked(c, err.Error())
			return
		}

	case "start_voting":
		if h.phase != PhasePlaying {
			return
		}
		h.phase = PhaseVoting
		logf(cfg, "GAMES: Voting opened in %s", h.id)

	case "end_voting":
		if h.phase != PhaseVoting {
			return
		}
		h.finishVotingLocked(cfg)
		return

	case "next_objective", "next_player":
		if h.phase != PhaseValidating {
			return
		}
		order := h.orderLocked()
		var done bool
		if msg.Type == "next_objective" {
			h.cursor, done = h.cursor.NextObjective(order, h.story.Catalog, h.assignment)
		} else {
			h.cursor, done = h.cursor.NextPlayer(order, h.story.Catalog, h.assignment)
		}
		if done {
			h.revealLocked(cfg)
			return
		}
		h.broadcastValidationLocked()
		return

	case "reveal":
		if h.phase != PhaseValidating && h.phase != PhaseVoting {
			return
		}
		h.revealLocked(cfg)
		return

	case "new_game":
		if h.phase == PhaseLobby {
			return
		}
		h.resetLocked()
		logf(cfg, "GAMES: Room %s back to lobby for game %d", h.id, h.gameNumber)
		for client := range h.clients {
			if m := h.memberLocked(client.playerID); m != nil {
				h.sendPrivateLocked(client, m)
			}
		}
	}

	h.broadcastStateLocked()
}

type startError string

func (e startError) Error() string { return string(e) }

// assignFailure is what players see when roles cannot be dealt.
func assignFailure(err error) startError {
	if game.IsConfigurationError(err) {
		return "Questa storia non si può giocare: mancano dei ruoli."
	}
	return "Impossibile assegnare i ruoli."
}

func (h *Hub) startGameLocked(cfg *Config) error {
	needed := max(h.settings.minPlayers, h.story.MinPlayers)
	if len(h.players) < needed {
		return startError("Servono almeno " + strconv.Itoa(needed) + " giocatori.")
	}
	if len(h.players) > h.story.Capacity() {
		return startError("Troppi giocatori per questa storia.")
	}

	assignment, err := h.assignor.Assign(h.orderLocked(), h.story.Catalog, h.story.Options)
	if err != nil {
		logf(cfg, "ERROR: Unable to assign roles in %s: %v", h.id, err)
		return assignFailure(err)
	}

	h.assignment = assignment
	for _, m := range h.players {
		m.Objectives = make(map[string]game.ObjectiveStatus)
	}
	h.votes = nil
	h.validations = game.NewValidationBook()
	h.cursor = game.ValidationCursor{}
	h.saved = false
	h.phase = PhasePlaying

	logf(cfg, "GAMES: Game %d started in %s with %d players (story %q)", h.gameNumber, h.id, len(h.players), h.story.Slug)

	for client := range h.clients {
		if m := h.memberLocked(client.playerID); m != nil {
			h.sendPrivateLocked(client, m)
		}
	}

	return nil
}

func (h *Hub) objectiveLocked(c *Client, msg ClientMessage) {
	m := h.memberLocked(c.playerID)
	if m == nil || h.phase != PhasePlaying || msg.Completed == nil {
		return
	}

	role, ok := h.assignedRoleLocked(m.PlayerID)
	if !ok {
		return
	}
	objective, ok := role.Objective(msg.Objective)
	if !ok {
		h.errorLocked(c, "Obiettivo sconosciuto.")
		return
	}

	status := m.Objectives[objective.Key]

	if *msg.Completed {
		if !game.CanComplete(objective, m.Objectives) {
			h.errorLocked(c, "Prima devi scoprire chi è il tuo obiettivo.")
			return
		}
		now := time.Now()
		status.Completed = true
		status.CompletedAt = &now
	} else {
		// Unticking also forgets the tag, so dependent objectives lock again.
		status = game.ObjectiveStatus{}
	}

	m.Objectives[objective.Key] = status
	h.sendPrivateToLocked(m)
}

func (h *Hub) tagLocked(c *Client, msg ClientMessage) {
	m := h.memberLocked(c.playerID)
	if m == nil || h.phase != PhasePlaying {
		return
	}

	role, ok := h.assignedRoleLocked(m.PlayerID)
	if !ok {
		return
	}
	objective, ok := role.Objective(msg.Objective)
	if !ok || objective.Category != game.CategoryDiscovery {
		h.errorLocked(c, "Puoi indicare un giocatore solo per gli obiettivi di scoperta.")
		return
	}

	if msg.TargetID == m.PlayerID || h.memberLocked(msg.TargetID) == nil {
		h.errorLocked(c, "Giocatore non valido.")
		return
	}

	now := time.Now()
	m.Objectives[objective.Key] = game.ObjectiveStatus{
		Completed:      true,
		TaggedPlayerID: msg.TargetID,
		CompletedAt:    &now,
	}

	h.sendPrivateToLocked(m)
}

func (h *Hub) voteLocked(cfg *Config, c *Client, msg ClientMessage) {
	m := h.memberLocked(c.playerID)
	if m == nil || h.phase != PhaseVoting {
		return
	}

	if h.votedForLocked(m.PlayerID) != "" {
		h.errorLocked(c, "Hai già votato.")
		return
	}
	if msg.TargetID == m.PlayerID || h.memberLocked(msg.TargetID) == nil {
		h.errorLocked(c, "Voto non valido.")
		return
	}

	h.votes = append(h.votes, game.ElectionVote{VoterID: m.PlayerID, SuspectID: msg.TargetID})
	h.sendPrivateToLocked(m)

	if len(h.votes) >= len(h.players) {
		h.finishVotingLocked(cfg)
		return
	}

	h.broadcastStateLocked()
}

func (h *Hub) finishVotingLocked(cfg *Config) {
	logf(cfg, "GAMES: Voting closed in %s with %d/%d votes", h.id, len(h.votes), len(h.players))

	if h.validation {
		cursor, done := game.FirstValidation(h.orderLocked(), h.story.Catalog, h.assignment)
		if !done {
			h.cursor = cursor
			h.phase = PhaseValidating
			h.broadcastStateLocked()
			h.broadcastValidationLocked()
			return
		}
	}

	h.revealLocked(cfg)
}

func (h *Hub) validateLocked(c *Client, msg ClientMessage) {
	m := h.memberLocked(c.playerID)
	if m == nil || h.phase != PhaseValidating || msg.Approved == nil {
		return
	}

	targetID, objective, ok := h.cursor.Current(h.orderLocked(), h.story.Catalog, h.assignment)
	if !ok || msg.TargetID != targetID || msg.Objective != objective.Key {
		h.errorLocked(c, "Questo obiettivo non è più in votazione.")
		return
	}
	if targetID == m.PlayerID {
		h.errorLocked(c, "Non puoi validare i tuoi obiettivi.")
		return
	}

	h.validations.Cast(game.ValidationVote{
		TargetPlayerID: targetID,
		ObjectiveKey:   objective.Key,
		VoterPlayerID:  m.PlayerID,
		Approved:       *msg.Approved,
	})

	h.broadcastValidationLocked()
}

func (h *Hub) revealLocked(cfg *Config) {
	h.phase = PhaseReveal

	reveal, result := h.resultsLocked()

	h.broadcastStateLocked()
	h.broadcastLocked(reveal)

	logf(cfg, "GAMES: Game %d revealed in %s (suspicion %d%%, %d validation votes)", h.gameNumber, h.id, reveal.Suspicion, h.validations.Len())

	if h.saved || h.settings.store == nil {
		return
	}
	h.saved = true

	go h.saveResult(cfg, result)
}

func (h *Hub) saveResult(cfg *Config, result storage.GameResult) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	id, err := h.settings.store.SaveGame(ctx, result)
	if err != nil {
		logf(cfg, "ERROR: Unable to save game from %s: %v", h.id, err)
		return
	}

	logf(cfg, "STORE: Saved game %s from %s", id, h.id)
}

// resultsLocked scores the current game. It is safe to call repeatedly.
func (h *Hub) resultsLocked() (RevealMessage, storage.GameResult) {
	catalog := h.story.Catalog

	records := make([]game.PlayerRecord, 0, len(h.players))
	for _, m := range h.players {
		records = append(records, game.PlayerRecord{ID: m.PlayerID, Objectives: m.Objectives})
	}

	scores := game.Score(records, h.votes, catalog, h.assignment, h.validations)
	targetID, _ := game.TargetHolder(catalog, h.assignment)
	suspicion := game.NewSuspicion(h.votes, targetID)

	reveal := RevealMessage{
		Type:        "reveal",
		TargetID:    targetID,
		Suspicion:   suspicion.Percentage(),
		Outcome:     suspicion.Bucket().String(),
		Votes:       game.VoteResults(h.votes, targetID),
		Validations: h.validations.Tallies(),
	}
	if key := catalog.AccompliceKey(); key != "" {
		reveal.Accomplices = h.assignment.Holders(key)
	}

	result := storage.GameResult{
		RoomCode:       h.id,
		StorySlug:      h.story.Slug,
		TargetPlayerID: targetID,
		SuspicionVotes: suspicion.Votes,
		SuspicionTotal: suspicion.Total,
		FinishedAt:     time.Now(),
	}
	for _, v := range h.validations.Votes() {
		result.Validations = append(result.Validations, storage.ValidationResult{
			TargetPlayerID: v.TargetPlayerID,
			ObjectiveKey:   v.ObjectiveKey,
			VoterPlayerID:  v.VoterPlayerID,
			Approved:       v.Approved,
		})
	}
	if h.settings.seed != 0 {
		result.Seed = h.seed
	}

	for _, s := range game.Standings(scores) {
		m := h.memberLocked(s.PlayerID)
		if m == nil {
			continue
		}

		roleKey, _ := h.assignment.RoleOf(m.PlayerID)
		rc, _ := h.story.Role(roleKey)

		row := RevealRow{
			PlayerID: m.PlayerID,
			Nickname: m.Nickname,
			RoleKey:  roleKey,
			RoleName: rc.Name,
			Emoji:    rc.Emoji,
			Score:    s.Score,
			Rank:     s.Rank,
			VotedFor: h.votedForLocked(m.PlayerID),
		}
		reveal.Standings = append(reveal.Standings, row)

		result.Players = append(result.Players, storage.PlayerResult{
			PlayerID: row.PlayerID,
			Nickname: row.Nickname,
			RoleKey:  row.RoleKey,
			Score:    row.Score,
			Place:    row.Rank,
			VotedFor: row.VotedFor,
		})
	}

	return reveal, result
}

func (h *Hub) resetLocked() {
	h.phase = PhaseLobby
	h.gameNumber++
	h.assignment = nil
	h.votes = nil
	h.validations = game.NewValidationBook()
	h.cursor = game.ValidationCursor{}
	h.saved = false

	for _, m := range h.players {
		m.Objectives = nil
	}
}

func (h *Hub) memberLocked(playerID string) *Member {
	if playerID == "" {
		return nil
	}
	for _, m := range h.players {
		if m.PlayerID == playerID {
			return m
		}
	}
	return nil
}

// orderLocked lists player ids in join order.
func (h *Hub) orderLocked() []string {
	ids := make([]string, len(h.players))
	for i, m := range h.players {
		ids[i] = m.PlayerID
	}
	return ids
}

func (h *Hub) votedForLocked(playerID string) string {
	for _, v := range h.votes {
		if v.VoterID == playerID {
			return v.SuspectID
		}
	}
	return ""
}

func (h *Hub) connectedLocked(playerID string) bool {
	for c := range h.clients {
		if c.playerID == playerID {
			return true
		}
	}
	return false
}

// dropMemberLocked removes a player and hands hosting to the earliest
// remaining player when needed.
func (h *Hub) dropMemberLocked(playerID string) bool {
	i := slices.IndexFunc(h.players, func(m *Member) bool {
		return m.PlayerID == playerID
	})
	if i == -1 {
		return false
	}

	h.players = slices.Delete(h.players, i, i+1)

	if h.hostID == playerID {
		h.hostID = ""
		if len(h.players) > 0 {
			h.hostID = h.players[0].PlayerID
		}
	}

	return true
}

func (h *Hub) storyViewLocked(s *stories.Story) StoryView {
	return StoryView{
		Slug:       s.Slug,
		Title:      s.Title,
		Tagline:    s.Tagline,
		Setting:    s.Setting,
		Emoji:      s.Emoji,
		MinPlayers: max(s.MinPlayers, h.settings.minPlayers),
		Capacity:   s.Capacity(),
	}
}

func (h *Hub) stateLocked() RoomStateMessage {
	msg := RoomStateMessage{
		Type:       "room_state",
		Code:       h.id,
		Phase:      h.phase,
		HostID:     h.hostID,
		Story:      h.storyViewLocked(h.story),
		Validation: h.validation,
		GameNumber: h.gameNumber,
		VotesCast:  len(h.votes),
		Players:    make([]PlayerView, 0, len(h.players)),
	}

	if h.phase == PhaseLobby && h.settings.library != nil {
		for _, s := range h.settings.library.List() {
			msg.Stories = append(msg.Stories, h.storyViewLocked(s))
		}
	}

	for _, m := range h.players {
		msg.Players = append(msg.Players, PlayerView{
			ID:        m.PlayerID,
			Nickname:  m.Nickname,
			IsHost:    m.PlayerID == h.hostID,
			Connected: h.connectedLocked(m.PlayerID),
			HasVoted:  h.votedForLocked(m.PlayerID) != "",
		})
	}

	return msg
}

func (h *Hub) broadcastStateLocked() {
	h.broadcastLocked(h.stateLocked())
}

func (h *Hub) assignedRoleLocked(playerID string) (game.Role, bool) {
	key, ok := h.assignment.RoleOf(playerID)
	if !ok {
		return game.Role{}, false
	}
	return h.story.Catalog.Role(key)
}

// roleLocked builds the private view of m, or false outside a game.
func (h *Hub) roleLocked(m *Member) (RoleMessage, bool) {
	if h.phase == PhaseLobby || h.assignment == nil {
		return RoleMessage{}, false
	}

	role, ok := h.assignedRoleLocked(m.PlayerID)
	if !ok {
		return RoleMessage{}, false
	}
	rc, _ := h.story.Role(role.Key)

	msg := RoleMessage{
		Type:       "role",
		Role:       rc,
		Objectives: make(map[string]game.ObjectiveStatus, len(m.Objectives)),
		VotedFor:   h.votedForLocked(m.PlayerID),
	}
	for k, v := range m.Objectives {
		msg.Objectives[k] = v
	}

	for _, o := range role.Objectives {
		if !game.CanComplete(o, m.Objectives) {
			msg.Locked = append(msg.Locked, o.Key)
		}
	}

	// Accomplices know who they are protecting.
	if role.Kind == game.KindAccomplice {
		msg.KnownID, _ = game.TargetHolder(h.story.Catalog, h.assignment)
	}

	return msg, true
}

// sendPrivateLocked sends c everything only its player may see.
func (h *Hub) sendPrivateLocked(c *Client, m *Member) {
	if role, ok := h.roleLocked(m); ok {
		h.sendLocked(c, role)
	} else {
		h.sendLocked(c, SimpleMessage{Type: "role_cleared"})
	}

	switch h.phase {
	case PhaseValidating:
		if v, ok := h.validationLocked(m.PlayerID); ok {
			h.sendLocked(c, v)
		}
	case PhaseReveal:
		reveal, _ := h.resultsLocked()
		h.sendLocked(c, reveal)
	}
}

func (h *Hub) sendPrivateToLocked(m *Member) {
	role, ok := h.roleLocked(m)
	if !ok {
		return
	}
	for client := range h.clients {
		if client.playerID == m.PlayerID {
			h.sendLocked(client, role)
		}
	}
}

func (h *Hub) validationLocked(viewerID string) (ValidationMessage, bool) {
	targetID, objective, ok := h.cursor.Current(h.orderLocked(), h.story.Catalog, h.assignment)
	if !ok {
		return ValidationMessage{}, false
	}

	target := h.memberLocked(targetID)
	if target == nil {
		return ValidationMessage{}, false
	}
	status := target.Objectives[objective.Key]

	var text stories.ObjectiveCopy
	roleKey, _ := h.assignment.RoleOf(targetID)
	if rc, ok := h.story.Role(roleKey); ok {
		for _, o := range rc.Objectives {
			if o.Key == objective.Key {
				text = o
				break
			}
		}
	}

	msg := ValidationMessage{
		Type:         "validation_state",
		TargetID:     targetID,
		Objective:    text,
		SelfReported: status.Completed,
		TaggedID:     status.TaggedPlayerID,
		Cursor:       h.cursor,
	}
	msg.Tally = h.validations.Tally(targetID, objective.Key)
	msg.Percentage = msg.Tally.Percentage()
	msg.Rejections = msg.Tally.Rejections()

	if approved, voted := h.validations.Verdict(targetID, objective.Key, viewerID); voted {
		msg.YourVote = &approved
	}

	return msg, true
}

func (h *Hub) broadcastValidationLocked() {
	for client := range h.clients {
		if v, ok := h.validationLocked(client.playerID); ok {
			h.sendLocked(client, v)
		}
	}
}

func (h *Hub) errorLocked(c *Client, text string) {
	h.sendLocked(c, SimpleMessage{Type: "error", Message: text})
}

// sendLocked queues msg for c, dropping clients that cannot keep up.
func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// closeAll disconnects every client and stops the hub loop.
func (h *Hub) closeAll() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(h.clients, c)
	}
}
