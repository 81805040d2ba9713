package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khoanguyen-dev/unitime-api/internal/dto"
	appErrors "github.com/khoanguyen-dev/unitime-api/pkg/errors"
	"github.com/khoanguyen-dev/unitime-api/pkg/export"
	"github.com/khoanguyen-dev/unitime-api/pkg/storage"
)

// ExportService renders timetable grids to downloadable files. Files land in
// local storage and are handed out through short-lived signed tokens.
type ExportService struct {
	timetables *TimetableService
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	files      *storage.LocalStorage
	signer     *storage.SignedURLSigner
	logger     *zap.Logger
}

// NewExportService wires the export pipeline.
func NewExportService(timetables *TimetableService, files *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		timetables: timetables,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		files:      files,
		signer:     signer,
		logger:     logger,
	}
}

// Export renders the requested sections' grid and returns a signed download
// location for the produced file.
func (s *ExportService) Export(ctx context.Context, catalogID string, req dto.ExportRequest) (*dto.ExportResponse, error) {
	if s.files == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export storage is not configured")
	}

	dataset, subject, err := s.timetables.ExportDataset(ctx, catalogID, req.Sections)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(req.Format)
	var rendered []byte
	switch format {
	case "csv":
		rendered, err = s.csv.Render(dataset)
	case "pdf":
		rendered, err = s.pdf.Render(dataset, subject)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	fileName := fmt.Sprintf("timetable-%s-%d.%s", catalogID, time.Now().UnixNano(), format)
	relPath, err := s.files.Save(fileName, rendered)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	s.logger.Sugar().Infow("timetable exported",
		"catalog_id", catalogID, "format", format, "file", fileName, "bytes", len(rendered))

	return &dto.ExportResponse{
		FileName:    fileName,
		DownloadURL: "/api/v1/downloads?token=" + token,
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Resolve validates a download token and loads the file it points at.
func (s *ExportService) Resolve(token string) ([]byte, string, error) {
	if s.files == nil || s.signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrInternal, "export storage is not configured")
	}
	relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	data, err := s.files.Read(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}
	return data, path.Base(relPath), nil
}
