// Package persistence provides SQLite-based storage for recorded
// episodes: per-episode metadata plus the full per-step trajectory,
// with structured diagnostics kept as JSON columns.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection for episode storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS episodes (
		id TEXT PRIMARY KEY,
		env TEXT NOT NULL,
		mode TEXT NOT NULL,
		seed INTEGER NOT NULL,
		agents INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		total_reward REAL NOT NULL,
		created_at_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS steps (
		episode_id TEXT NOT NULL,
		t INTEGER NOT NULL,
		agent TEXT NOT NULL,
		action_json TEXT NOT NULL,
		obs_json TEXT NOT NULL,
		reward REAL NOT NULL,
		info_json TEXT,
		PRIMARY KEY (episode_id, t, agent)
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_steps_episode ON steps(episode_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Episode is the persisted header of one recorded episode.
type Episode struct {
	ID          string  `db:"id" json:"id"`
	Env         string  `db:"env" json:"env"`
	Mode        string  `db:"mode" json:"mode"`
	Seed        uint64  `db:"seed" json:"seed"`
	Agents      int     `db:"agents" json:"agents"`
	Steps       int     `db:"steps" json:"steps"`
	TotalReward float64 `db:"total_reward" json:"total_reward"`
	CreatedAtMs int64   `db:"created_at_ms" json:"created_at_ms"`
}

// Step is one agent's slice of one recorded period.
type Step struct {
	EpisodeID string    `json:"episode_id"`
	T         int       `json:"t"`
	Agent     string    `json:"agent"`
	Action    []float64 `json:"action"`
	Obs       []float64 `json:"obs"`
	Reward    float64   `json:"reward"`
	Info      any       `json:"info,omitempty"`
}

// SaveEpisode writes an episode header and its trajectory in one
// transaction.
func (db *DB) SaveEpisode(ep Episode, steps []Step) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO episodes
		(id, env, mode, seed, agents, steps, total_reward, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ep.ID, ep.Env, ep.Mode, ep.Seed, ep.Agents, ep.Steps, ep.TotalReward, ep.CreatedAtMs,
	)
	if err != nil {
		return fmt.Errorf("insert episode %s: %w", ep.ID, err)
	}

	stmt, err := tx.Preparex(`INSERT INTO steps
		(episode_id, t, agent, action_json, obs_json, reward, info_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range steps {
		actionJSON, _ := json.Marshal(s.Action)
		obsJSON, _ := json.Marshal(s.Obs)
		var infoJSON []byte
		if s.Info != nil {
			infoJSON, _ = json.Marshal(s.Info)
		}
		_, err := stmt.Exec(ep.ID, s.T, s.Agent,
			string(actionJSON), string(obsJSON), s.Reward, string(infoJSON))
		if err != nil {
			return fmt.Errorf("insert step %d/%s: %w", s.T, s.Agent, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("episode saved", "id", ep.ID, "env", ep.Env, "steps", ep.Steps)
	return nil
}

// Episodes lists episode headers, newest first.
func (db *DB) Episodes(limit int) ([]Episode, error) {
	var eps []Episode
	err := db.conn.Select(&eps,
		"SELECT * FROM episodes ORDER BY created_at_ms DESC LIMIT ?", limit)
	return eps, err
}

// LoadSteps returns the recorded trajectory of one episode in step
// order. Info payloads come back as raw JSON.
func (db *DB) LoadSteps(episodeID string) ([]Step, error) {
	rows, err := db.conn.Queryx(`SELECT t, agent, action_json, obs_json, reward, info_json
		FROM steps WHERE episode_id = ? ORDER BY t, agent`, episodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var (
			s                 Step
			actionRaw, obsRaw string
			infoRaw           *string
		)
		if err := rows.Scan(&s.T, &s.Agent, &actionRaw, &obsRaw, &s.Reward, &infoRaw); err != nil {
			return nil, err
		}
		s.EpisodeID = episodeID
		if err := json.Unmarshal([]byte(actionRaw), &s.Action); err != nil {
			return nil, fmt.Errorf("step %d/%s action: %w", s.T, s.Agent, err)
		}
		if err := json.Unmarshal([]byte(obsRaw), &s.Obs); err != nil {
			return nil, fmt.Errorf("step %d/%s obs: %w", s.T, s.Agent, err)
		}
		if infoRaw != nil && *infoRaw != "" {
			var info any
			if err := json.Unmarshal([]byte(*infoRaw), &info); err == nil {
				s.Info = info
			}
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// SaveMeta stores a key-value pair in run metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	return value, err
}
