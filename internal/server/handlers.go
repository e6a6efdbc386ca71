package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/voxlane/voxlane/internal/knowledge"
	"github.com/voxlane/voxlane/internal/schemas"
	"github.com/voxlane/voxlane/internal/server/middleware"
	"github.com/voxlane/voxlane/internal/types"
)

// maxBodyBytes caps request bodies; corrections can carry full category text.
const maxBodyBytes = 1 << 20

// handleCreateAgent starts a new agent-creation workflow for the tenant.
func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	tenantID, err := middleware.GetTenantID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req types.CreateAgentRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	wf, err := s.coordinator.Submit(r.Context(), tenantID, &req)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusAccepted, wf)
}

// handleListWorkflows returns the tenant's workflows, newest first.
func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	tenantID, err := middleware.GetTenantID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	workflows, err := s.coordinator.ListWorkflows(r.Context(), tenantID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if workflows == nil {
		workflows = []types.Workflow{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"workflows": workflows})
}

// handleGetWorkflow returns one workflow with its current stage and status.
func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	tenantID, workflowID, ok := s.tenantAndWorkflow(w, r)
	if !ok {
		return
	}

	wf, err := s.coordinator.GetWorkflow(r.Context(), tenantID, workflowID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, wf)
}

// handleGetSnapshot returns the workflow's knowledge snapshot.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	tenantID, workflowID, ok := s.tenantAndWorkflow(w, r)
	if !ok {
		return
	}

	snap, err := s.coordinator.GetSnapshot(r.Context(), tenantID, workflowID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, snap)
}

// handleListStageRecords returns the workflow's stage attempt history.
func (s *Server) handleListStageRecords(w http.ResponseWriter, r *http.Request) {
	tenantID, workflowID, ok := s.tenantAndWorkflow(w, r)
	if !ok {
		return
	}

	records, err := s.coordinator.ListStageRecords(r.Context(), tenantID, workflowID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if records == nil {
		records = []types.StageRecord{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"records": records})
}

// validationRequest is the reviewer decision body. An empty corrections map
// approves the snapshot as extracted.
type validationRequest struct {
	Corrections map[string]knowledge.CategoryData `json:"corrections,omitempty"`
}

// handleSubmitValidation applies the reviewer decision and resumes the
// workflow toward deployment.
func (s *Server) handleSubmitValidation(w http.ResponseWriter, r *http.Request) {
	tenantID, workflowID, ok := s.tenantAndWorkflow(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body) == 0 {
		body = []byte(`{}`)
	}

	// Shape check first, so a malformed entry is rejected before the engine
	// sees it.
	if err := schemas.ValidateCorrections(body); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	var req validationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.coordinator.SubmitValidation(r.Context(), tenantID, workflowID, req.Corrections); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "resuming"})
}

// handleAbort cancels a workflow parked for validation.
func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	tenantID, workflowID, ok := s.tenantAndWorkflow(w, r)
	if !ok {
		return
	}

	if err := s.coordinator.Abort(r.Context(), tenantID, workflowID); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "aborting"})
}

// handleEvents streams workflow progress as Server-Sent Events until the
// workflow reaches a terminal state or the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	tenantID, workflowID, ok := s.tenantAndWorkflow(w, r)
	if !ok {
		return
	}

	ch, cancel, err := s.coordinator.Subscribe(r.Context(), tenantID, workflowID)
	if err != nil {
		// Terminal workflows have no live topic; report the final state once.
		wf, gerr := s.coordinator.GetWorkflow(r.Context(), tenantID, workflowID)
		if gerr != nil {
			s.errorResponse(w, HTTPStatus(gerr), gerr.Error())
			return
		}
		sse, serr := NewSSEWriter(w)
		if serr != nil {
			s.errorResponse(w, http.StatusInternalServerError, serr.Error())
			return
		}
		sse.WriteComplete(wf.ID.String(), string(wf.Status))
		return
	}
	defer cancel()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	for {
		select {
		case event, open := <-ch:
			if !open {
				if wf, gerr := s.coordinator.GetWorkflow(r.Context(), tenantID, workflowID); gerr == nil {
					sse.WriteComplete(wf.ID.String(), string(wf.Status))
				}
				return
			}
			if err := sse.WriteProgress(event); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// tenantAndWorkflow extracts the authenticated tenant and the {id} path
// value. It writes the error response itself when either is missing.
func (s *Server) tenantAndWorkflow(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	tenantID, err := middleware.GetTenantID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return "", uuid.Nil, false
	}

	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid workflow id")
		return "", uuid.Nil, false
	}

	return tenantID, workflowID, true
}
