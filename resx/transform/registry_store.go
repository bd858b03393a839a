package transform

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redbco/redb-resx/resx/errors"
	"github.com/redbco/redb-resx/resx/etf"
)

// Step is one link of a named, persisted transformation chain: a transformer
// name plus its options, in application order (first applied = innermost).
type Step struct {
	Transformer string
	Options     map[string]interface{}
}

// PresetStore persists named transformation chains (§4.L), grounded on the
// teacher's services/transformation registry's pgx-backed persistence of
// named pipelines. It stores chain shape only — transformer implementations
// themselves stay in-process in a Registry, since Go functions are not
// serialisable.
type PresetStore struct {
	pool *pgxpool.Pool
}

// NewPresetStore wraps an already-connected pool. Schema is expected to
// already exist (see Migrate).
func NewPresetStore(pool *pgxpool.Pool) *PresetStore {
	return &PresetStore{pool: pool}
}

// Migrate creates the backing table if absent.
func (s *PresetStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS resx_transform_presets (
			name       TEXT PRIMARY KEY,
			steps      BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("transform: migrate preset store: %w", err)
	}
	return nil
}

// Save persists name as the ordered Step list steps, overwriting any
// existing preset of the same name.
func (s *PresetStore) Save(ctx context.Context, name string, steps []Step) error {
	encoded, err := encodeSteps(steps)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO resx_transform_presets (name, steps) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET steps = EXCLUDED.steps
	`, name, encoded)
	if err != nil {
		return fmt.Errorf("transform: save preset %q: %w", name, err)
	}
	return nil
}

// Load resolves a named preset to its Step chain.
func (s *PresetStore) Load(ctx context.Context, name string) ([]Step, error) {
	var encoded []byte
	err := s.pool.QueryRow(ctx, `SELECT steps FROM resx_transform_presets WHERE name = $1`, name).Scan(&encoded)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.Newf(errors.UnknownResource, "no such transformation preset %q", name)
		}
		return nil, fmt.Errorf("transform: load preset %q: %w", name, err)
	}
	return decodeSteps(encoded)
}

// Delete removes a named preset, if present.
func (s *PresetStore) Delete(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM resx_transform_presets WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("transform: delete preset %q: %w", name, err)
	}
	return nil
}

// List returns every persisted preset name.
func (s *PresetStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM resx_transform_presets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("transform: list presets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func encodeSteps(steps []Step) ([]byte, error) {
	raw := make([]map[string]interface{}, len(steps))
	for i, s := range steps {
		raw[i] = map[string]interface{}{"transformer": s.Transformer, "options": s.Options}
	}
	return etf.Encode(raw)
}

func decodeSteps(encoded []byte) ([]Step, error) {
	var raw []map[string]interface{}
	if err := etf.Decode(encoded, &raw); err != nil {
		return nil, err
	}
	steps := make([]Step, len(raw))
	for i, m := range raw {
		name, _ := m["transformer"].(string)
		opts, _ := m["options"].(map[string]interface{})
		steps[i] = Step{Transformer: name, Options: opts}
	}
	return steps, nil
}
