package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/briefing-cli/internal/apperr"
	"github.com/sells-group/briefing-cli/internal/budget"
	"github.com/sells-group/briefing-cli/internal/export"
	"github.com/sells-group/briefing-cli/internal/model"
	"github.com/sells-group/briefing-cli/internal/store"
)

type listResponse struct {
	Orcamentos []model.BudgetRecord `json:"orcamentos"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
}

type configResponse struct {
	Configuracao *model.OfficeConfiguration `json:"configuracao"`
	Avisos       []string                   `json:"avisos,omitempty"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) createBudget(w http.ResponseWriter, r *http.Request) {
	var req budget.Request
	if err := decode(w, r, s.opts.MaxBodyBytes, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.EscritorioID = chi.URLParam(r, "escritorioID")

	out, err := s.calc.Calculate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	fb := out.Fallback
	rec := &model.BudgetRecord{
		EscritorioID: req.EscritorioID,
		Budget:       out.Budget,
		Fallback:     &fb,
	}
	if err := s.budgets.SaveBudget(r.Context(), rec); err != nil {
		writeError(w, r, err)
		return
	}
	// Re-read so a recomputed budget reports its stored status.
	saved, err := s.budgets.GetBudget(r.Context(), rec.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status, err := model.ParseStatus(q.Get("status"))
	if err != nil {
		writeError(w, r, &apperr.InvalidInputError{Reason: err.Error()})
		return
	}
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := intParam(q.Get("offset"), "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}

	recs, err := s.budgets.ListBudgets(r.Context(), store.BudgetFilter{
		EscritorioID: chi.URLParam(r, "escritorioID"),
		Status:       status,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []model.BudgetRecord{}
	}
	writeJSON(w, http.StatusOK, listResponse{Orcamentos: recs, Limit: limit, Offset: offset})
}

func (s *Server) applyFallback(w http.ResponseWriter, r *http.Request) {
	var dados model.BriefingExtraction
	if err := decode(w, r, s.opts.MaxBodyBytes, &dados); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.inferrer.Apply(dados))
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.configs.Get(r.Context(), chi.URLParam(r, "escritorioID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{Configuracao: cfg})
}

func (s *Server) putConfig(w http.ResponseWriter, r *http.Request) {
	var cfg model.OfficeConfiguration
	if err := decode(w, r, s.opts.MaxBodyBytes, &cfg); err != nil {
		writeError(w, r, err)
		return
	}
	warnings, err := s.configs.Put(r.Context(), chi.URLParam(r, "escritorioID"), &cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{Configuracao: &cfg, Avisos: warnings})
}

func (s *Server) getBudget(w http.ResponseWriter, r *http.Request) {
	rec, err := s.budgets.GetBudget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(w, r, s.opts.MaxBodyBytes, &req); err != nil {
		writeError(w, r, err)
		return
	}
	to, err := model.ParseStatus(req.Status)
	if err != nil || to == "" {
		writeError(w, r, &apperr.InvalidInputError{Reason: "status must be one of RASCUNHO, ENVIADO, APROVADO, REJEITADO"})
		return
	}

	rec, err := s.budgets.UpdateBudgetStatus(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zap.L().Info("api: budget status changed",
		zap.String("id", rec.ID),
		zap.String("status", string(rec.Status)),
	)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) exportBudget(w http.ResponseWriter, r *http.Request) {
	rec, err := s.budgets.GetBudget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rec); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(rec)+`"`)
	_, _ = w.Write(buf.Bytes())
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &apperr.InvalidInputError{Reason: name + " must be a non-negative integer"}
	}
	return n, nil
}
