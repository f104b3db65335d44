package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jumokuso/crmaudit/internal/domain"
	"github.com/jumokuso/crmaudit/internal/history"
)

// Service materializes audit ledger searches as spreadsheet files.
type Service struct {
	reader    *history.Reader
	exportDir string
	now       func() time.Time
}

// Option customizes the export service.
type Option func(*Service)

// WithExportDirectory sets where export files are written.
func WithExportDirectory(dir string) Option {
	return func(s *Service) {
		if strings.TrimSpace(dir) != "" {
			s.exportDir = filepath.Clean(dir)
		}
	}
}

// WithClock overrides the clock used for export file names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires an export service over the history reader.
func NewService(reader *history.Reader, opts ...Option) *Service {
	service := &Service{
		reader:    reader,
		exportDir: filepath.Join(os.TempDir(), "crmaudit-exports"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

var sheetHeader = []any{
	"Entity Type", "Entity ID", "Version", "Operation",
	"Changed By", "Email", "Changed At", "Changes",
}

// ExportAuditLogs runs the audit search and writes one spreadsheet row per
// matching ledger entry. Returns the file path and the number of rows written.
func (s *Service) ExportAuditLogs(ctx context.Context, filter domain.AuditLogFilter) (string, int, error) {
	entries, err := s.reader.SearchAuditLogs(ctx, filter)
	if err != nil {
		return "", 0, fmt.Errorf("failed to search audit logs: %w", err)
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "AuditLogs"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return "", 0, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &sheetHeader); err != nil {
		return "", 0, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, entry := range entries {
		changesJSON, err := json.Marshal(entry.Changes)
		if err != nil {
			return "", 0, fmt.Errorf("failed to encode changes for row %d: %w", i+1, err)
		}
		row := []any{
			string(entry.EntityType),
			entry.EntityID,
			entry.Version,
			string(entry.Operation),
			entry.ChangedBy.DisplayName,
			entry.ChangedBy.Email,
			entry.ChangedAt.Format(time.RFC3339),
			string(changesJSON),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", 0, fmt.Errorf("failed to locate row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return "", 0, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	path := filepath.Join(s.exportDir, fmt.Sprintf("audit_logs_%s.xlsx", s.now().UTC().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", 0, fmt.Errorf("failed to save export file: %w", err)
	}

	log.Printf("[EXPORT] wrote %d audit log rows to %s", len(entries), path)
	return path, len(entries), nil
}
