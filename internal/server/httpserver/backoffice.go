package httpserver

import (
	"fmt"
	"net/http"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/service"
)

func (s *Server) handleListManaged(w http.ResponseWriter, r *http.Request) {
	q, err := model.ParseActivityQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	out, err := s.svc.Activities.ListManaged(r.Context(), actor(r), q)
	s.respond(w, http.StatusOK, out, err)
}

func (s *Server) handleGetManaged(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	a, err := s.svc.Activities.GetManaged(r.Context(), actor(r), id)
	s.respond(w, http.StatusOK, a, err)
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var in model.ActivityInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	a, err := s.svc.Activities.Create(r.Context(), actor(r), in)
	s.respond(w, http.StatusCreated, a, err)
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	var in model.ActivityInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	a, err := s.svc.Activities.Update(r.Context(), actor(r), id, in)
	s.respond(w, http.StatusOK, a, err)
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil, s.svc.Activities.Delete(r.Context(), actor(r), id))
}

func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	q, err := model.ParseStudentQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	out, err := s.svc.Users.Students(r.Context(), actor(r), q)
	s.respond(w, http.StatusOK, out, err)
}

func (s *Server) handleExportStudents(w http.ResponseWriter, r *http.Request) {
	q, err := model.ParseStudentQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	b, err := s.svc.Users.ExportStudents(r.Context(), actor(r), q)
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	writeBlob(w, b)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	q, err := model.ParseNotificationQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	out, err := s.svc.Notifications.List(r.Context(), actor(r), q)
	s.respond(w, http.StatusOK, out, err)
}

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var in model.NotificationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	n, err := s.svc.Notifications.Create(r.Context(), actor(r), in)
	s.respond(w, http.StatusCreated, n, err)
}

func (s *Server) handleUpdateNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	var in model.NotificationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	n, err := s.svc.Notifications.Update(r.Context(), actor(r), id, in)
	s.respond(w, http.StatusOK, n, err)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil, s.svc.Notifications.Delete(r.Context(), actor(r), id))
}

func (s *Server) handleScheduleNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	var req model.ScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	n, err := s.svc.Notifications.Schedule(r.Context(), actor(r), id, req)
	s.respond(w, http.StatusOK, n, err)
}

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	q, err := model.ParseReportQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	sum, err := s.svc.Reports.Summary(r.Context(), actor(r), q)
	s.respond(w, http.StatusOK, sum, err)
}

func (s *Server) handleReportExport(w http.ResponseWriter, r *http.Request) {
	q, err := model.ParseReportQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	b, err := s.svc.Reports.Export(r.Context(), actor(r), q)
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	writeBlob(w, b)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ov, err := s.svc.Reports.Overview(r.Context(), actor(r))
	s.respond(w, http.StatusOK, ov, err)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := s.readUpload(w, r)
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	defer cleanup()
	res, err := s.svc.Documents.Upload(r.Context(), actor(r), in)
	s.respond(w, http.StatusCreated, res, err)
}

// readUpload parses a multipart form with a "file" part and an optional "title".
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (service.UploadInput, func(), error) {
	// Leave room for the form fields and part headers.
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+64<<10)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return service.UploadInput{}, nil, fmt.Errorf("parse upload: %v: %w", err, errs.ErrValidation)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		_ = r.MultipartForm.RemoveAll()
		return service.UploadInput{}, nil, errs.Invalid("file", "required")
	}
	cleanup := func() {
		_ = f.Close()
		_ = r.MultipartForm.RemoveAll()
	}
	return service.UploadInput{
		FileName:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Body:        f,
		Title:       r.FormValue("title"),
	}, cleanup, nil
}
