package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"license-admin/internal/config"
	"license-admin/internal/model"
	"license-admin/internal/store"
)

// SheetExportService mirrors the license-key table into a Google Sheet on
// demand. A nil receiver is a disabled export and every method is a no-op,
// so callers never have to branch on the config flag.
type SheetExportService struct {
	sheets        *sheets.Service
	keys          *store.KeyStore
	spreadsheetID string
	sheetName     string
	log           *zap.Logger
}

func NewSheetExportService(cfg config.Config, keys *store.KeyStore, log *zap.Logger) (*SheetExportService, error) {
	if !cfg.SheetsEnabled {
		return nil, nil
	}

	ctx := context.Background()
	b, err := os.ReadFile(cfg.SheetsCredentialPath)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, b, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("load sheets credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	return &SheetExportService{
		sheets:        srv,
		keys:          keys,
		spreadsheetID: cfg.SheetsSpreadsheetID,
		sheetName:     cfg.SheetsSheetName,
		log:           log,
	}, nil
}

// ExportAll rewrites the sheet body from the current key table.
func (s *SheetExportService) ExportAll() (int, error) {
	if s == nil {
		return 0, nil
	}

	keys, err := s.keys.List("", "")
	if err != nil {
		return 0, err
	}

	values := make([][]interface{}, 0, len(keys))
	for i := range keys {
		values = append(values, keyRow(&keys[i]))
	}

	bodyRange := fmt.Sprintf("%s!A2:H", s.sheetName)
	if _, err := s.sheets.Spreadsheets.Values.Clear(s.spreadsheetID, bodyRange, &sheets.ClearValuesRequest{}).Do(); err != nil {
		return 0, fmt.Errorf("clear sheet: %w", err)
	}
	_, err = s.sheets.Spreadsheets.Values.Update(
		s.spreadsheetID,
		fmt.Sprintf("%s!A2", s.sheetName),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Do()
	if err != nil {
		return 0, fmt.Errorf("write sheet: %w", err)
	}

	s.log.Info("exported keys to sheet", zap.Int("count", len(values)))
	return len(values), nil
}

func keyRow(key *model.LicenseKey) []interface{} {
	return []interface{}{
		key.KeyValue,
		key.Status,
		deref(key.Hwid),
		formatTime(key.ExpiresAt),
		key.IsBlocked,
		formatTime(key.LastActivation),
		key.CreatedAt.Format(time.RFC3339),
		key.UpdatedAt.Format(time.RFC3339),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
