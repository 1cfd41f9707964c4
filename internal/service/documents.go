package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// UploadInput is one uploaded file with its form fields.
type UploadInput struct {
	FileName    string
	ContentType string
	Body        io.Reader
	Title       string
}

func (in UploadInput) validate(titleRequired bool) error {
	v := &errs.ValidationError{}
	if in.Body == nil {
		v.Add("file", "required")
	}
	if strings.TrimSpace(in.FileName) == "" {
		v.Add("fileName", "required")
	}
	if titleRequired && strings.TrimSpace(in.Title) == "" {
		v.Add("title", "required")
	}
	return v.Err()
}

// DocumentService stores uploads and the published document library.
type DocumentService interface {
	// Upload stores a file for later reference (cover images, attachments).
	Upload(ctx context.Context, actor Actor, in UploadInput) (*model.UploadResult, error)
	List(ctx context.Context, actor Actor, q model.DocumentQuery) ([]model.Document, error)
	// Publish stores a file and lists it in the document library.
	Publish(ctx context.Context, actor Actor, in UploadInput) (*model.Document, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type DocumentServiceImpl struct {
	docs  repository.DocumentRepository
	files FileStore
	audit auditor
	log   *zap.Logger
}

// NewDocumentService constructs DocumentService.
func NewDocumentService(docs repository.DocumentRepository, files FileStore, logs repository.LogRepository, log *zap.Logger) *DocumentServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentServiceImpl{docs: docs, files: files, audit: newAuditor(logs, log), log: log}
}

func (s *DocumentServiceImpl) Upload(ctx context.Context, actor Actor, in UploadInput) (*model.UploadResult, error) {
	if err := requireRole(actor, model.RoleAdmin, model.RoleManager); err != nil {
		return nil, err
	}
	if err := in.validate(false); err != nil {
		return nil, err
	}
	f, err := s.files.Save(ctx, in.FileName, contentTypeOf(in.ContentType, in.FileName), in.Body)
	if err != nil {
		return nil, err
	}
	res := &model.UploadResult{
		URL:         f.URL,
		FileName:    filepath.Base(in.FileName),
		ContentType: f.ContentType,
		Size:        f.Size,
	}
	if t := strings.TrimSpace(in.Title); t != "" {
		res.Title = &t
	}
	s.audit.record(ctx, actor, "file.upload", "file", f.Name, res.FileName)
	return res, nil
}

func (s *DocumentServiceImpl) List(ctx context.Context, actor Actor, q model.DocumentQuery) ([]model.Document, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.docs.List(ctx, q)
}

func (s *DocumentServiceImpl) Publish(ctx context.Context, actor Actor, in UploadInput) (*model.Document, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := in.validate(true); err != nil {
		return nil, err
	}
	f, err := s.files.Save(ctx, in.FileName, contentTypeOf(in.ContentType, in.FileName), in.Body)
	if err != nil {
		return nil, err
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	d := &model.Document{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		FileName:    filepath.Base(in.FileName),
		FileURL:     f.URL,
		ContentType: f.ContentType,
		Size:        f.Size,
		UploadedBy:  actor.ID,
	}
	if err := s.docs.Create(ctx, d); err != nil {
		if rerr := s.files.Remove(ctx, f.URL); rerr != nil {
			s.log.Warn("orphaned upload", zap.String("url", f.URL), zap.Error(rerr))
		}
		return nil, err
	}
	s.audit.record(ctx, actor, "document.create", "document", d.ID.String(), d.Title)
	return d, nil
}

// Delete removes the record first; a file that cannot be removed is only logged.
func (s *DocumentServiceImpl) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return err
	}
	d, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.files.Remove(ctx, d.FileURL); err != nil {
		s.log.Warn("remove document file", zap.String("url", d.FileURL), zap.Error(err))
	}
	s.audit.record(ctx, actor, "document.delete", "document", id.String(), d.Title)
	return nil
}
