package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/pipeline"
)

// API serves the pipeline operations.
type API struct {
	orch   *pipeline.Orchestrator
	logger *slog.Logger
}

// NewAPI creates the pipeline HTTP handlers.
func NewAPI(orch *pipeline.Orchestrator, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{orch: orch, logger: logger}
}

// Register mounts the /v1 routes on r.
func (a *API) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(ActorMiddleware(a.orch))

		r.Get("/orgs/{orgID}/grants", a.listGrants)
		r.Post("/orgs/{orgID}/scout", a.scout)

		r.Post("/grants", a.createGrant)
		r.Route("/grants/{grantID}", func(r chi.Router) {
			r.Get("/", a.getGrant)
			r.Get("/readiness", a.readiness)
			r.Post("/ai/{action}", a.runAction)
			r.Post("/stage", a.moveStage)
			r.Get("/approvals", a.listApprovals)
			r.Post("/approvals", a.requestApproval)
		})
		r.Post("/approvals/{approvalID}/reviews", a.reviewApproval)
	})
}

func (a *API) listGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := a.orch.ListGrants(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if grants == nil {
		grants = []*domain.Grant{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"grants": grants})
}

func (a *API) createGrant(w http.ResponseWriter, r *http.Request) {
	var g domain.Grant
	if err := decodeJSON(r, &g); err != nil {
		writeError(w, r, err)
		return
	}
	if actor, ok := GetActor(r.Context()); ok && g.OrgID == "" {
		g.OrgID = actor.OrgID
	}
	if err := a.orch.CreateGrant(r.Context(), &g); err != nil {
		writeError(w, r, err)
		return
	}
	AddLogField(r.Context(), "grant_id", g.ID)
	writeJSON(w, http.StatusCreated, &g)
}

func (a *API) getGrant(w http.ResponseWriter, r *http.Request) {
	g, err := a.orch.Grant(r.Context(), chi.URLParam(r, "grantID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (a *API) readiness(w http.ResponseWriter, r *http.Request) {
	g, err := a.orch.Grant(r.Context(), chi.URLParam(r, "grantID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	rd, err := a.orch.ComputeReadiness(r.Context(), g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rd)
}

// runAction generates an AI artifact. With ?apply=true the artifact is saved
// on the grant; otherwise the raw text is returned for review. A failed AI
// call is still a 200 whose text explains the failure.
func (a *API) runAction(w http.ResponseWriter, r *http.Request) {
	action, err := domain.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	grantID := chi.URLParam(r, "grantID")
	AddLogField(r.Context(), "grant_id", grantID)
	AddLogField(r.Context(), "action", string(action))

	apply, _ := strconv.ParseBool(r.URL.Query().Get("apply"))
	if apply {
		res, err := a.orch.RunAIAction(r.Context(), grantID, action)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	g, err := a.orch.Grant(r.Context(), grantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.orch.RequestAIArtifact(r.Context(), g, action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type scoutRequest struct {
	Brief string `json:"brief"`
}

func (a *API) scout(w http.ResponseWriter, r *http.Request) {
	var req scoutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	res, err := a.orch.Scout(r.Context(), chi.URLParam(r, "orgID"), req.Brief)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type moveRequest struct {
	To string `json:"to"`
}

// moveStage answers 200 for a completed move and 409 with the same body
// when a gate or the transition graph refuses it.
func (a *API) moveStage(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	to, err := domain.ParseStage(req.To)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := a.orch.AttemptStageMove(r.Context(), chi.URLParam(r, "grantID"), to, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !res.Allowed {
		status = http.StatusConflict
		AddLogField(r.Context(), "denied", res.Reason)
	}
	writeJSON(w, status, res)
}

func (a *API) listApprovals(w http.ResponseWriter, r *http.Request) {
	approvals, err := a.orch.ListApprovals(r.Context(), chi.URLParam(r, "grantID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if approvals == nil {
		approvals = []*domain.Approval{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"approvals": approvals})
}

type approvalRequest struct {
	To   string `json:"to"`
	Note string `json:"note"`
}

func (a *API) requestApproval(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req approvalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	to, err := domain.ParseStage(req.To)
	if err != nil {
		writeError(w, r, err)
		return
	}

	approval, err := a.orch.RequestApproval(r.Context(), chi.URLParam(r, "grantID"), to, actor, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, approval)
}

type reviewRequest struct {
	Decision domain.Decision `json:"decision"`
	Note     string          `json:"note"`
}

func (a *API) reviewApproval(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	approval, err := a.orch.ReviewApproval(r.Context(), chi.URLParam(r, "approvalID"), req.Decision, actor, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, approval)
}
