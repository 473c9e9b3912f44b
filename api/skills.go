package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/sandbox"
	"github.com/deepnoodle-ai/skillet/skill"
)

// skillRequest is a skill record plus optional parameters for the sandbox
// run that vets it.
type skillRequest struct {
	skill     *skill.Skill
	testInput map[string]any
}

// readSkill decodes a skill record from the request body. Records missing a
// name or function code are rejected.
func readSkill(w http.ResponseWriter, r *http.Request) (*skillRequest, bool) {
	var raw json.RawMessage
	if !decodeBody(w, r, &raw) {
		return nil, false
	}
	var extra struct {
		TestInput map[string]any `json:"test_input"`
	}
	if err := json.Unmarshal(raw, &extra); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid skill data: "+err.Error())
		return nil, false
	}
	s, err := skill.Decode(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid skill data: "+err.Error())
		return nil, false
	}
	return &skillRequest{skill: s, testInput: extra.TestInput}, true
}

func (h *Handler) listSkills(w http.ResponseWriter, r *http.Request) {
	skills := h.registry.All()
	if pattern := r.URL.Query().Get("match"); pattern != "" {
		matched, err := h.registry.Match(pattern)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid match pattern: "+err.Error())
			return
		}
		skills = matched
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "skills": skills})
}

func (h *Handler) getSkill(w http.ResponseWriter, r *http.Request) {
	s, ok := h.registry.Get(chi.URLParam(r, "name"))
	if !ok {
		writeError(w, http.StatusNotFound, "Skill not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "skill": s})
}

func (h *Handler) createSkill(w http.ResponseWriter, r *http.Request) {
	req, ok := readSkill(w, r)
	if !ok {
		return
	}
	s := req.skill
	if h.registry.Has(s.Name) {
		writeError(w, http.StatusConflict, "Skill already exists")
		return
	}
	// Editor submissions never create verified skills.
	s.Verified = false
	if !h.vet(w, r, req) {
		return
	}
	if err := h.registry.Register(r.Context(), s); err != nil {
		h.writeRegisterError(w, err)
		return
	}
	h.logger.Info("skill created", "skill", s.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"message":    "Skill created successfully",
		"skill_name": s.Name,
	})
}

func (h *Handler) updateSkill(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	existing, ok := h.registry.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Skill not found")
		return
	}
	if existing.Verified {
		writeError(w, http.StatusForbidden, "Cannot modify built-in skill")
		return
	}
	req, ok := readSkill(w, r)
	if !ok {
		return
	}
	s := req.skill
	s.Name = name
	s.Verified = false
	s.CreatedAt = existing.CreatedAt
	s.ExecutionCount = existing.ExecutionCount
	s.SuccessRate = existing.SuccessRate
	s.AverageExecutionTime = existing.AverageExecutionTime
	if !h.vet(w, r, req) {
		return
	}
	diff, _ := skillet.SkillDiff(existing, s)
	if err := h.registry.Register(r.Context(), s); err != nil {
		h.writeRegisterError(w, err)
		return
	}
	h.logger.Info("skill updated", "skill", name)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Skill updated successfully",
		"diff":    diff,
	})
}

func (h *Handler) deleteSkill(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := h.registry.Remove(r.Context(), name)
	switch {
	case errors.Is(err, skillet.ErrSkillNotFound):
		writeError(w, http.StatusNotFound, "Skill not found")
	case errors.Is(err, skillet.ErrVerifiedSkill):
		writeError(w, http.StatusForbidden, "Cannot delete built-in skill")
	case err != nil:
		h.logger.Error("failed to delete skill", "skill", name, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.logger.Info("skill deleted", "skill", name)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Skill deleted successfully"})
	}
}

// vet validates and sandbox-tests a candidate, writing the rejection when it
// fails.
func (h *Handler) vet(w http.ResponseWriter, r *http.Request, req *skillRequest) bool {
	result := h.registry.Validate(r.Context(), req.skill)
	if !result.Valid {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:            "Validation failed",
			ValidationErrors: result.Errors,
		})
		return false
	}
	if h.tester == nil {
		return true
	}
	res, err := h.tester.Test(r.Context(), req.skill.FunctionCode, req.testInput)
	if err != nil {
		h.logger.Error("sandbox test could not run", "skill", req.skill.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "Sandbox test could not run: "+err.Error())
		return false
	}
	if !res.Passed {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:  "Sandbox test failed",
			Reason: string(res.Reason),
			Output: res.Output,
		})
		return false
	}
	return true
}

func (h *Handler) writeRegisterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, skillet.ErrCompilation), errors.Is(err, skillet.ErrInvalidSkill):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("failed to register skill", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to register skill: "+err.Error())
	}
}

func (h *Handler) validateSkill(w http.ResponseWriter, r *http.Request) {
	req, ok := readSkill(w, r)
	if !ok {
		return
	}
	result := h.registry.Validate(r.Context(), req.skill)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"is_valid": result.Valid,
		"errors":   nonNil(result.Errors),
		"warnings": nonNil(result.Warnings),
	})
}

type testRequest struct {
	SkillData json.RawMessage `json:"skill_data"`
	TestInput map[string]any  `json:"test_input"`
}

// testSkill runs a candidate in the sandbox without registering it.
func (h *Handler) testSkill(w http.ResponseWriter, r *http.Request) {
	if h.tester == nil {
		writeError(w, http.StatusNotImplemented, "Sandbox testing is disabled")
		return
	}
	var req testRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.SkillData) == 0 {
		writeError(w, http.StatusBadRequest, "No skill data provided")
		return
	}
	s, err := skill.Decode(req.SkillData)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid skill data: "+err.Error())
		return
	}
	if result := h.registry.Validate(r.Context(), s); !result.Valid {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:            "Skill validation failed",
			ValidationErrors: result.Errors,
		})
		return
	}
	res, err := h.tester.Test(r.Context(), s.FunctionCode, req.TestInput)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sandbox test could not run: "+err.Error())
		return
	}
	body := map[string]any{
		"success":              true,
		"execution_successful": res.Passed,
		"output":               nonNil(res.Logs),
		"duration_ms":          res.Duration.Milliseconds(),
	}
	if res.Passed {
		body["message"] = "Skill executed successfully"
	} else {
		body["message"] = "Skill compilation or execution failed"
		body["error"] = res.Output
		body["reason"] = res.Reason
		body["timed_out"] = errors.Is(res.Err(), sandbox.ErrSandboxTimeout)
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "roles": skill.ValidRoles})
}

func (h *Handler) exportSkills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.Export(h.now()))
}

func (h *Handler) importSkills(w http.ResponseWriter, r *http.Request) {
	var doc skillet.ImportDocument
	if !decodeBody(w, r, &doc) {
		return
	}
	if doc.Skills == nil {
		writeError(w, http.StatusBadRequest, "Invalid import data")
		return
	}
	imported, errs := h.registry.Import(r.Context(), doc)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"imported_count": imported,
		"errors":         errs,
	})
}

type turnRequest struct {
	Utterance string `json:"utterance"`
}

type selectionView struct {
	Skill  string         `json:"skill"`
	Params map[string]any `json:"params"`
}

func (h *Handler) runTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Utterance == "" {
		writeError(w, http.StatusBadRequest, "utterance is required")
		return
	}
	turn, err := h.runner.Run(r.Context(), req.Utterance)
	if turn == nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	selections := make([]selectionView, 0, len(turn.Selections))
	for _, sel := range turn.Selections {
		selections = append(selections, selectionView{Skill: sel.Skill.Name, Params: sel.Params})
	}
	decisions := make(map[string]skillet.Decision, len(turn.Evaluations))
	for _, ev := range turn.Evaluations {
		decisions[ev.Skill.Name] = ev.Decision
	}
	body := map[string]any{
		"success":     true,
		"turn_id":     turn.ID,
		"selections":  selections,
		"decisions":   decisions,
		"log":         nonNil(turn.Lines()),
		"duration_ms": turn.Duration.Milliseconds(),
	}
	if err != nil {
		body["warning"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
