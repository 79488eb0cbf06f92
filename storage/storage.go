/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package storage keeps the results of finished games in SQLite.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationTable = "schema_migrations"

var ErrNotFound = errors.New("game not found")

// PlayerResult is one player's line in a finished game.
type PlayerResult struct {
	GameID   string `db:"game_id" json:"-"`
	PlayerID string `db:"player_id" json:"player_id"`
	Nickname string `db:"nickname" json:"nickname"`
	RoleKey  string `db:"role_key" json:"role_key"`
	Score    int    `db:"score" json:"score"`
	Place    int    `db:"place" json:"place"`
	VotedFor string `db:"voted_for" json:"voted_for,omitempty"`
}

// ValidationResult is one peer verdict cast during a finished game.
type ValidationResult struct {
	GameID         string `db:"game_id" json:"-"`
	TargetPlayerID string `db:"target_player_id" json:"target_player_id"`
	ObjectiveKey   string `db:"objective_key" json:"objective_key"`
	VoterPlayerID  string `db:"voter_player_id" json:"voter_player_id"`
	Approved       bool   `db:"approved" json:"approved"`
}

// GameResult is a finished game.
type GameResult struct {
	ID             string         `json:"id"`
	RoomCode       string         `json:"room_code"`
	StorySlug      string         `json:"story"`
	Seed           int64          `json:"seed,omitempty"`
	TargetPlayerID string         `json:"target_player_id"`
	SuspicionVotes int            `json:"suspicion_votes"`
	SuspicionTotal int            `json:"suspicion_total"`
	FinishedAt     time.Time      `json:"finished_at"`
	Players        []PlayerResult `json:"players"`

	Validations []ValidationResult `json:"validations,omitempty"`
}

type gameRow struct {
	ID             string `db:"id"`
	RoomCode       string `db:"room_code"`
	StorySlug      string `db:"story_slug"`
	Seed           int64  `db:"seed"`
	PlayerCount    int    `db:"player_count"`
	TargetPlayerID string `db:"target_player_id"`
	SuspicionVotes int    `db:"suspicion_votes"`
	SuspicionTotal int    `db:"suspicion_total"`
	FinishedAt     int64  `db:"finished_at"`
}

func (r gameRow) result() GameResult {
	return GameResult{
		ID:             r.ID,
		RoomCode:       r.RoomCode,
		StorySlug:      r.StorySlug,
		Seed:           r.Seed,
		TargetPlayerID: r.TargetPlayerID,
		SuspicionVotes: r.SuspicionVotes,
		SuspicionTotal: r.SuspicionTotal,
		FinishedAt:     time.UnixMilli(r.FinishedAt).UTC(),
	}
}

// Store wraps the results database.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite database at path and applies pending
// migrations. ":memory:" gives a private in-process database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", path, err)
	}

	// Every connection to :memory: is its own database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		var applied int
		if err := s.db.GetContext(ctx, &applied, `SELECT COUNT(*) FROM `+migrationTable+` WHERE name = ?`, file); err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrations.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}

		if _, err := tx.ExecContext(ctx, upSection(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", file, err)
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`, file, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}

	return nil
}

func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"

	start := strings.Index(content, up)
	if start == -1 {
		return content
	}
	content = content[start+len(up):]

	if end := strings.Index(content, down); end != -1 {
		content = content[:end]
	}

	return content
}

// SaveGame stores a finished game and its player lines in one transaction.
// An empty ID is replaced by a new UUID, which is returned.
func (s *Store) SaveGame(ctx context.Context, g GameResult) (string, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.FinishedAt.IsZero() {
		g.FinishedAt = time.Now()
	}
	g.RoomCode = strings.ToUpper(g.RoomCode)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := gameRow{
		ID:             g.ID,
		RoomCode:       g.RoomCode,
		StorySlug:      g.StorySlug,
		Seed:           g.Seed,
		PlayerCount:    len(g.Players),
		TargetPlayerID: g.TargetPlayerID,
		SuspicionVotes: g.SuspicionVotes,
		SuspicionTotal: g.SuspicionTotal,
		FinishedAt:     g.FinishedAt.UTC().UnixMilli(),
	}

	_, err = tx.NamedExecContext(ctx, `INSERT INTO game_result
		(id, room_code, story_slug, seed, player_count, target_player_id, suspicion_votes, suspicion_total, finished_at)
		VALUES
		(:id, :room_code, :story_slug, :seed, :player_count, :target_player_id, :suspicion_votes, :suspicion_total, :finished_at)`, row)
	if err != nil {
		return "", fmt.Errorf("insert game %s: %w", g.ID, err)
	}

	for _, p := range g.Players {
		p.GameID = g.ID

		_, err = tx.NamedExecContext(ctx, `INSERT INTO player_result
			(game_id, player_id, nickname, role_key, score, place, voted_for)
			VALUES
			(:game_id, :player_id, :nickname, :role_key, :score, :place, :voted_for)`, p)
		if err != nil {
			return "", fmt.Errorf("insert player %s of game %s: %w", p.PlayerID, g.ID, err)
		}
	}

	for _, v := range g.Validations {
		v.GameID = g.ID

		_, err = tx.NamedExecContext(ctx, `INSERT INTO validation_vote
			(game_id, target_player_id, objective_key, voter_player_id, approved)
			VALUES
			(:game_id, :target_player_id, :objective_key, :voter_player_id, :approved)`, v)
		if err != nil {
			return "", fmt.Errorf("insert validation of game %s: %w", g.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit game %s: %w", g.ID, err)
	}

	return g.ID, nil
}

// Game loads one stored game with its validation ballots.
func (s *Store) Game(ctx context.Context, id string) (GameResult, error) {
	var row gameRow

	err := s.db.GetContext(ctx, &row, `SELECT * FROM game_result WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GameResult{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return GameResult{}, fmt.Errorf("load game %s: %w", id, err)
	}

	g := row.result()
	if g.Players, err = s.players(ctx, id); err != nil {
		return GameResult{}, err
	}
	if g.Validations, err = s.validations(ctx, id); err != nil {
		return GameResult{}, err
	}

	return g, nil
}

// GamesForRoom lists the games finished in a room, newest first. A
// non-positive limit returns every game.
func (s *Store) GamesForRoom(ctx context.Context, roomCode string, limit int) ([]GameResult, error) {
	query := `SELECT * FROM game_result WHERE room_code = ? ORDER BY finished_at DESC, id`
	args := []any{strings.ToUpper(roomCode)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []gameRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list games for %s: %w", roomCode, err)
	}

	games := make([]GameResult, 0, len(rows))
	for _, row := range rows {
		g := row.result()

		players, err := s.players(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		g.Players = players

		games = append(games, g)
	}

	return games, nil
}

func (s *Store) players(ctx context.Context, gameID string) ([]PlayerResult, error) {
	var players []PlayerResult

	err := s.db.SelectContext(ctx, &players, `SELECT * FROM player_result WHERE game_id = ? ORDER BY place, nickname`, gameID)
	if err != nil {
		return nil, fmt.Errorf("load players of game %s: %w", gameID, err)
	}

	return players, nil
}

func (s *Store) validations(ctx context.Context, gameID string) ([]ValidationResult, error) {
	var votes []ValidationResult

	err := s.db.SelectContext(ctx, &votes, `SELECT * FROM validation_vote
		WHERE game_id = ? ORDER BY target_player_id, objective_key, voter_player_id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("load validations of game %s: %w", gameID, err)
	}

	return votes, nil
}
