package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperflow/internal/common"
	"github.com/joseph-ayodele/paperflow/internal/entity"
	"github.com/joseph-ayodele/paperflow/internal/search"
)

type PresetRepository interface {
	Save(ctx context.Context, preset *entity.Preset) error
	GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*entity.Preset, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Preset, error)
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
}

type presetRepository struct {
	store  *Store
	logger *slog.Logger
}

func NewPresetRepository(store *Store, logger *slog.Logger) PresetRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &presetRepository{store: store, logger: logger}
}

func (r *presetRepository) Save(ctx context.Context, preset *entity.Preset) error {
	if preset.ID == uuid.Nil {
		preset.ID = uuid.New()
	}
	if preset.KeywordsMode != search.ModeAny {
		preset.KeywordsMode = search.ModeAll
	}
	if preset.CreatedAt.IsZero() {
		preset.CreatedAt = time.Now().UTC()
	}
	keywords, err := json.Marshal(preset.Keywords)
	if err != nil {
		return common.WrapError(err, "encode keywords")
	}
	excludeTerms, err := json.Marshal(preset.ExcludeTerms)
	if err != nil {
		return common.WrapError(err, "encode exclude terms")
	}
	// Upsert by primary key; same statement shape on both dialects.
	_, err = r.store.db.ExecContext(ctx, r.store.rebind(`
		INSERT INTO presets (id, owner_id, name, keywords, keywords_mode, exclude_terms,
			age_min, age_max, experience_min, experience_max, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name,
			keywords = excluded.keywords, keywords_mode = excluded.keywords_mode,
			exclude_terms = excluded.exclude_terms,
			age_min = excluded.age_min, age_max = excluded.age_max,
			experience_min = excluded.experience_min, experience_max = excluded.experience_max
	`), preset.ID.String(), preset.OwnerID, preset.Name, string(keywords),
		preset.KeywordsMode, string(excludeTerms), preset.AgeMin, preset.AgeMax,
		preset.ExperienceMin, preset.ExperienceMax, formatTime(preset.CreatedAt))
	if err != nil {
		r.logger.Error("failed to save preset", "preset_id", preset.ID, "error", err)
		return common.WrapError(err, "save preset")
	}
	return nil
}

const presetColumns = `id, owner_id, name, keywords, keywords_mode, exclude_terms,
	age_min, age_max, experience_min, experience_max, created_at`

func (r *presetRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*entity.Preset, error) {
	row := r.store.db.QueryRowContext(ctx, r.store.rebind(
		`SELECT `+presetColumns+` FROM presets WHERE id = $1 AND owner_id = $2`),
		id.String(), ownerID)
	preset, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return preset, err
}

func (r *presetRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Preset, error) {
	rows, err := r.store.db.QueryContext(ctx, r.store.rebind(
		`SELECT `+presetColumns+` FROM presets WHERE owner_id = $1 ORDER BY name`), ownerID)
	if err != nil {
		return nil, common.WrapError(err, "list presets")
	}
	defer rows.Close()

	var presets []*entity.Preset
	for rows.Next() {
		preset, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, preset)
	}
	return presets, rows.Err()
}

func (r *presetRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	res, err := r.store.db.ExecContext(ctx, r.store.rebind(
		`DELETE FROM presets WHERE id = $1 AND owner_id = $2`), id.String(), ownerID)
	if err != nil {
		return common.WrapError(err, "delete preset")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func scanPreset(row rowScanner) (*entity.Preset, error) {
	var (
		idStr, ownerID, name, keywordsJSON, mode, excludeJSON string
		ageMin, ageMax, expMin, expMax                        sql.NullInt64
		createdAt                                             string
	)
	err := row.Scan(&idStr, &ownerID, &name, &keywordsJSON, &mode, &excludeJSON,
		&ageMin, &ageMax, &expMin, &expMax, &createdAt)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, common.WrapError(err, "bad preset id")
	}
	preset := &entity.Preset{
		ID:            id,
		OwnerID:       ownerID,
		Name:          name,
		KeywordsMode:  mode,
		AgeMin:        nullableInt(ageMin),
		AgeMax:        nullableInt(ageMax),
		ExperienceMin: nullableInt(expMin),
		ExperienceMax: nullableInt(expMax),
	}
	if keywordsJSON != "" {
		if err := json.Unmarshal([]byte(keywordsJSON), &preset.Keywords); err != nil {
			return nil, common.WrapError(err, "decode keywords")
		}
	}
	if excludeJSON != "" && excludeJSON != "null" {
		if err := json.Unmarshal([]byte(excludeJSON), &preset.ExcludeTerms); err != nil {
			return nil, common.WrapError(err, "decode exclude terms")
		}
	}
	if preset.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return preset, nil
}

// PresetCriteria converts a stored preset into its filter description, normalizing
// each phrase the same way corpus text is normalized.
func PresetCriteria(p *entity.Preset) search.Criteria {
	c := search.Criteria{
		Mode:          p.KeywordsMode,
		AgeMin:        p.AgeMin,
		AgeMax:        p.AgeMax,
		ExperienceMin: p.ExperienceMin,
		ExperienceMax: p.ExperienceMax,
	}
	for _, kw := range p.Keywords {
		if normalized := search.Normalize(kw); normalized != "" {
			c.Terms = append(c.Terms, normalized)
		}
	}
	for _, term := range p.ExcludeTerms {
		if normalized := search.Normalize(term); normalized != "" {
			c.ExcludeTerms = append(c.ExcludeTerms, normalized)
		}
	}
	return c
}
