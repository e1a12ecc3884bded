package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/ports"
)

// UploadSheetUseCase stores an uploaded frame-data workbook and schedules its
// import.
type UploadSheetUseCase struct {
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewUploadSheetUseCase(storage ports.ObjectStorage, queue ports.MessageQueue) *UploadSheetUseCase {
	return &UploadSheetUseCase{storage: storage, queue: queue}
}

func (uc *UploadSheetUseCase) UploadSheet(ctx context.Context, filename string, body io.Reader) (string, error) {
	storageKey := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	if err := uc.queue.PublishSheetReceived(ctx, storageKey); err != nil {
		return "", fmt.Errorf("publish sheet event: %w", err)
	}
	return storageKey, nil
}

// ImportSheetUseCase parses a stored workbook and replaces the lookup rows
// for every character sheet it contains. Replacement is per character, so an
// updated sheet fully supersedes the character's previous rows without
// touching other characters.
type ImportSheetUseCase struct {
	storage ports.ObjectStorage
	parser  ports.SheetParser
	store   ports.FrameDataStore
}

func NewImportSheetUseCase(storage ports.ObjectStorage, parser ports.SheetParser, store ports.FrameDataStore) *ImportSheetUseCase {
	return &ImportSheetUseCase{storage: storage, parser: parser, store: store}
}

func (uc *ImportSheetUseCase) ImportByKey(ctx context.Context, storageKey string) (*domain.ImportReport, error) {
	r, err := uc.storage.Open(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer r.Close()

	sheets, err := uc.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse workbook: %w", err)
	}
	if len(sheets) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "import workbook", errors.New("no character sheets found"))
	}

	report := &domain.ImportReport{}
	for _, cm := range sheets {
		if len(cm.Moves) == 0 {
			report.EmptySheets++
			continue
		}
		replaced, err := uc.store.ReplaceCharacterMoves(ctx, cm.Character, cm.Moves)
		if err != nil {
			return nil, fmt.Errorf("replace moves for %q: %w", cm.Character, err)
		}
		report.Characters++
		report.Moves += len(cm.Moves)
		report.ReplacedRows += replaced
	}

	slog.Info("sheet_imported",
		"key", storageKey,
		"characters", report.Characters,
		"moves", report.Moves,
		"empty_sheets", report.EmptySheets,
		"replaced_rows", report.ReplacedRows,
	)
	return report, nil
}
