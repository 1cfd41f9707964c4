package httpserver

import (
	"net/http"

	"github.com/Nguyentram30/activity-portal/internal/model"
)

func (s *Server) handleRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	var req model.RegistrationStatusUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	reg, err := s.svc.Activities.UpdateRegistrationStatus(r.Context(), actor(r), id, req)
	s.respond(w, http.StatusOK, reg, err)
}

func (s *Server) handleListFeedbacks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	out, err := s.svc.Activities.ListFeedbacks(r.Context(), actor(r), id)
	s.respond(w, http.StatusOK, out, err)
}

func (s *Server) handleIssueQRCode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	qr, err := s.svc.CheckIn.Issue(r.Context(), actor(r), id)
	s.respond(w, http.StatusCreated, qr, err)
}
