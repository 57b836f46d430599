package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/joseph-ayodele/paperflow/internal/entity"
	"github.com/joseph-ayodele/paperflow/internal/repository"
	"github.com/joseph-ayodele/paperflow/internal/search"
)

// PresetHandler handles saved-filter HTTP requests.
type PresetHandler struct {
	presets repository.PresetRepository
	logger  *slog.Logger
}

func NewPresetHandler(presets repository.PresetRepository, logger *slog.Logger) *PresetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresetHandler{presets: presets, logger: logger}
}

type presetRequest struct {
	Name          string   `json:"name"`
	Keywords      []string `json:"keywords"`
	KeywordsMode  string   `json:"keywords_mode"`
	ExcludeTerms  []string `json:"exclude_terms"`
	AgeMin        *int     `json:"age_min"`
	AgeMax        *int     `json:"age_max"`
	ExperienceMin *int     `json:"experience_min"`
	ExperienceMax *int     `json:"experience_max"`
}

func (req *presetRequest) validate() (string, bool) {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required", false
	}
	mode := strings.ToLower(strings.TrimSpace(req.KeywordsMode))
	if mode != "" && mode != search.ModeAll && mode != search.ModeAny {
		return "keywords_mode must be all or any", false
	}
	if req.AgeMin != nil && req.AgeMax != nil && *req.AgeMin > *req.AgeMax {
		return "age_min must not exceed age_max", false
	}
	if req.ExperienceMin != nil && req.ExperienceMax != nil && *req.ExperienceMin > *req.ExperienceMax {
		return "experience_min must not exceed experience_max", false
	}
	return "", true
}

// CreatePreset saves a new named filter for the requesting owner.
func (h *PresetHandler) CreatePreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	keywords := make([]string, 0, len(req.Keywords))
	for _, k := range req.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	excludeTerms := make([]string, 0, len(req.ExcludeTerms))
	for _, term := range req.ExcludeTerms {
		if term = strings.TrimSpace(term); term != "" {
			excludeTerms = append(excludeTerms, term)
		}
	}

	preset := &entity.Preset{
		ID:            uuid.New(),
		OwnerID:       ownerID(r),
		Name:          strings.TrimSpace(req.Name),
		Keywords:      keywords,
		KeywordsMode:  strings.ToLower(strings.TrimSpace(req.KeywordsMode)),
		ExcludeTerms:  excludeTerms,
		AgeMin:        req.AgeMin,
		AgeMax:        req.AgeMax,
		ExperienceMin: req.ExperienceMin,
		ExperienceMax: req.ExperienceMax,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.presets.Save(r.Context(), preset); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, preset)
}

// ListPresets returns all presets of the requesting owner.
func (h *PresetHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.presets.ListByOwner(r.Context(), ownerID(r))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if presets == nil {
		presets = make([]*entity.Preset, 0)
	}
	writeJSON(w, http.StatusOK, presets)
}

// GetPreset returns one preset by id.
func (h *PresetHandler) GetPreset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid preset id")
		return
	}
	preset, err := h.presets.GetByID(r.Context(), ownerID(r), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preset)
}

// DeletePreset removes one preset by id.
func (h *PresetHandler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid preset id")
		return
	}
	if err := h.presets.Delete(r.Context(), ownerID(r), id); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "preset deleted"})
}
