package httpserver

import (
	"net/http"

	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q, err := model.ParseUserQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	out, err := s.svc.Users.List(r.Context(), actor(r), q)
	s.respond(w, http.StatusOK, out, err)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	u, err := s.svc.Users.Get(r.Context(), actor(r), id)
	s.respond(w, http.StatusOK, u, err)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	u, err := s.svc.Users.Create(r.Context(), actor(r), req)
	s.respond(w, http.StatusCreated, u, err)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	var req model.UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	u, err := s.svc.Users.Update(r.Context(), actor(r), id, req)
	s.respond(w, http.StatusOK, u, err)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil, s.svc.Users.Delete(r.Context(), actor(r), id))
}

// review runs one moderation transition. An empty body is allowed; the service
// decides whether a note is required.
func (s *Server) review(w http.ResponseWriter, r *http.Request,
	do func(*http.Request, model.ReviewRequest) (*model.Activity, error),
) {
	var req model.ReviewRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	a, err := do(r, req)
	s.respond(w, http.StatusOK, a, err)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, func(r *http.Request, req model.ReviewRequest) (*model.Activity, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		return s.svc.Activities.Approve(r.Context(), actor(r), id, req)
	})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, func(r *http.Request, req model.ReviewRequest) (*model.Activity, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		return s.svc.Activities.Reject(r.Context(), actor(r), id, req)
	})
}

func (s *Server) handleRequestEdit(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, func(r *http.Request, req model.ReviewRequest) (*model.Activity, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return nil, err
		}
		return s.svc.Activities.RequestEdit(r.Context(), actor(r), id, req)
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q, err := model.ParseDocumentQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	out, err := s.svc.Documents.List(r.Context(), actor(r), q)
	s.respond(w, http.StatusOK, out, err)
}

func (s *Server) handlePublishDocument(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := s.readUpload(w, r)
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	defer cleanup()
	d, err := s.svc.Documents.Publish(r.Context(), actor(r), in)
	s.respond(w, http.StatusCreated, d, err)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil, s.svc.Documents.Delete(r.Context(), actor(r), id))
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q, err := model.ParseLogQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	out, err := s.svc.Logs.List(r.Context(), actor(r), q)
	s.respond(w, http.StatusOK, out, err)
}

func (s *Server) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Settings.ListFeatures(r.Context(), actor(r))
	s.respond(w, http.StatusOK, out, err)
}

func (s *Server) handleUpdateFeature(w http.ResponseWriter, r *http.Request) {
	var upd model.FeatureUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	f, err := s.svc.Settings.UpdateFeature(r.Context(), actor(r), chi.URLParam(r, "key"), upd)
	s.respond(w, http.StatusOK, f, err)
}

func (s *Server) handleListWidgets(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Settings.ListWidgets(r.Context(), actor(r))
	s.respond(w, http.StatusOK, out, err)
}

func (s *Server) handleUpdateWidget(w http.ResponseWriter, r *http.Request) {
	var upd model.WidgetUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	wd, err := s.svc.Settings.UpdateWidget(r.Context(), actor(r), chi.URLParam(r, "key"), upd)
	s.respond(w, http.StatusOK, wd, err)
}
