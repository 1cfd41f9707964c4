package httpserver

import (
	"net/http"

	"github.com/Nguyentram30/activity-portal/internal/model"
)

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	q, err := model.ParseActivityQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	out, err := s.svc.Activities.List(r.Context(), q)
	s.respond(w, http.StatusOK, out, err)
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	a, err := s.svc.Activities.Get(r.Context(), actor(r), id)
	s.respond(w, http.StatusOK, a, err)
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	var in model.FeedbackInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	fb, err := s.svc.Activities.SubmitFeedback(r.Context(), actor(r), id, in)
	s.respond(w, http.StatusCreated, fb, err)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegistrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	reg, err := s.svc.Activities.Register(r.Context(), actor(r), req)
	s.respond(w, http.StatusCreated, reg, err)
}

func (s *Server) handleMyRegistrations(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Activities.MyRegistrations(r.Context(), actor(r))
	s.respond(w, http.StatusOK, out, err)
}

func (s *Server) handleCancelRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	reg, err := s.svc.Activities.CancelRegistration(r.Context(), actor(r), id)
	s.respond(w, http.StatusOK, reg, err)
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req model.CheckInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	reg, err := s.svc.CheckIn.CheckIn(r.Context(), actor(r), req)
	s.respond(w, http.StatusOK, reg, err)
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	q, err := model.ParseNotificationQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	out, err := s.svc.Notifications.Inbox(r.Context(), actor(r), q)
	s.respond(w, http.StatusOK, out, err)
}
