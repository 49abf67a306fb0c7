package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-reading-be/internal/dto"
	"ai-reading-be/internal/entity"
	"ai-reading-be/internal/pkg/logger"
	"ai-reading-be/internal/repository/specification"
	"ai-reading-be/internal/repository/unitofwork"
	"ai-reading-be/pkg/document"
	"ai-reading-be/pkg/persistence"
	"ai-reading-be/pkg/reading"

	"github.com/google/uuid"
)

const documentLogModule = "DOCUMENT_SERVICE"

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrEmptyDocument    = errors.New("document is empty")
	ErrDocumentTooLarge = errors.New("document exceeds the upload limit")
)

// SessionDiscarder drops a live reading session without persisting it.
type SessionDiscarder interface {
	Discard(userId, documentId uuid.UUID)
}

type IDocumentService interface {
	Upload(ctx context.Context, userId uuid.UUID, req *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error)
	GetAll(ctx context.Context, userId uuid.UUID, req dto.ListDocumentsRequest) ([]*dto.DocumentResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	// ContentSource serves the documents of one user to a reading session.
	ContentSource(userId uuid.UUID) reading.ContentSource
	SetSessionDiscarder(d SessionDiscarder)
}

type documentService struct {
	uowFactory     unitofwork.RepositoryFactory
	snapshots      persistence.Store
	uploadDir      string
	maxUploadBytes int
	logger         logger.ILogger
	discarder      SessionDiscarder
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	snapshots persistence.Store,
	uploadDir string,
	maxUploadBytes int,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:     uowFactory,
		snapshots:      snapshots,
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
		logger:         log,
	}
}

func (s *documentService) SetSessionDiscarder(d SessionDiscarder) {
	s.discarder = d
}

func (s *documentService) Upload(ctx context.Context, userId uuid.UUID, req *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error) {
	if len(req.Data) == 0 {
		return nil, ErrEmptyDocument
	}
	if s.maxUploadBytes > 0 && len(req.Data) > s.maxUploadBytes {
		return nil, ErrDocumentTooLarge
	}

	mime, err := document.DetectMIME(req.FileName, req.Data)
	if err != nil {
		return nil, err
	}

	pageCount := 0
	if mime == document.MIMEPDF {
		pageCount, err = document.PageCount(req.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", document.ErrUnsupportedType, err)
		}
	}

	id := uuid.New()
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(s.uploadDir, id.String()+document.Extension(mime))
	if err := os.WriteFile(path, req.Data, 0o644); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(req.FileName), filepath.Ext(req.FileName))
	}

	doc := entity.Document{
		Id:        id,
		UserId:    userId,
		Title:     title,
		FileName:  filepath.Base(req.FileName),
		FilePath:  path,
		MimeType:  mime,
		SizeBytes: int64(len(req.Data)),
		PageCount: pageCount,
		CreatedAt: time.Now(),
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Create(ctx, &doc); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	s.logger.Info(documentLogModule, "Document uploaded", map[string]interface{}{
		"document_id": doc.Id.String(),
		"user_id":     userId.String(),
		"mime_type":   mime,
		"pages":       pageCount,
	})

	return &dto.UploadDocumentResponse{
		Id:        doc.Id,
		MimeType:  mime,
		PageCount: pageCount,
	}, nil
}

// GetAll lists newest first. Page is 1-based; Limit <= 0 returns everything.
func (s *documentService) GetAll(ctx context.Context, userId uuid.UUID, req dto.ListDocumentsRequest) ([]*dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	specs := []specification.Specification{
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	}
	if req.MimeType != "" {
		specs = append(specs, specification.ByMimeType{MimeType: req.MimeType})
	}
	if req.Limit > 0 {
		offset := (req.Page - 1) * req.Limit
		if offset < 0 {
			offset = 0
		}
		specs = append(specs, specification.Pagination{Limit: req.Limit, Offset: offset})
	}
	docs, err := uow.DocumentRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		result = append(result, toDocumentResponse(doc))
	}
	return result, nil
}

func (s *documentService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error) {
	doc, err := s.find(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

// Delete soft-deletes the document together with its reading session.
func (s *documentService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	if _, err := s.find(ctx, userId, id); err != nil {
		return err
	}
	if s.discarder != nil {
		s.discarder.Discard(userId, id)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}
	if err := s.snapshots.Delete(ctx, userId.String(), id.String()); err != nil {
		s.logger.Warn(documentLogModule, "Failed to delete reading snapshot", map[string]interface{}{
			"document_id": id.String(),
			"error":       err.Error(),
		})
	}
	return nil
}

func (s *documentService) find(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*entity.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *documentService) ContentSource(userId uuid.UUID) reading.ContentSource {
	return document.NewFileSource(documentLocator{service: s, userId: userId}, s.logger)
}

// documentLocator resolves only documents owned by userId.
type documentLocator struct {
	service *documentService
	userId  uuid.UUID
}

func (l documentLocator) Locate(ctx context.Context, documentID string) (string, string, error) {
	id, err := uuid.Parse(documentID)
	if err != nil {
		return "", "", ErrDocumentNotFound
	}
	doc, err := l.service.find(ctx, l.userId, id)
	if err != nil {
		return "", "", err
	}
	return doc.FilePath, doc.MimeType, nil
}

func toDocumentResponse(doc *entity.Document) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		Id:        doc.Id,
		Title:     doc.Title,
		FileName:  doc.FileName,
		MimeType:  doc.MimeType,
		SizeBytes: doc.SizeBytes,
		PageCount: doc.PageCount,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
