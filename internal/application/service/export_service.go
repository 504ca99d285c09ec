package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/kanban"
)

// ExportedBoard is a rendered board document
type ExportedBoard struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a board and its lanes into a document
type ExportService interface {
	ExportBoard(ctx context.Context, boardID string) (*ExportedBoard, error)
}

type exportServiceImpl struct {
	boards    port.BoardRepository
	columns   port.ColumnRepository
	sequencer ColumnSequencer
	exporter  port.BoardExporter
	logger    Logger
}

// NewExportService creates a new ExportService
func NewExportService(
	boards port.BoardRepository,
	columns port.ColumnRepository,
	sequencer ColumnSequencer,
	exporter port.BoardExporter,
	logger Logger,
) ExportService {
	return &exportServiceImpl{
		boards:    boards,
		columns:   columns,
		sequencer: sequencer,
		exporter:  exporter,
		logger:    logger,
	}
}

func (s *exportServiceImpl) ExportBoard(ctx context.Context, boardID string) (*ExportedBoard, error) {
	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	if board == nil {
		return nil, kanban.ErrBoardNotFound
	}

	cols, err := s.columns.ListByBoard(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}

	snapshot := &port.BoardSnapshot{
		Board:   board,
		Columns: cols,
		Tasks:   make(map[string][]*entity.Task, len(cols)),
	}
	for _, c := range cols {
		tasks, err := s.sequencer.ColumnTasks(ctx, entity.BoardLane(boardID, c.ID))
		if err != nil {
			return nil, err
		}
		snapshot.Tasks[c.ID] = tasks
	}

	data, err := s.exporter.Export(snapshot)
	if err != nil {
		s.logger.Error("Failed to export board", "board_id", boardID, "error", err)
		return nil, fmt.Errorf("export board: %w", err)
	}

	s.logger.Info("Board exported", "board_id", boardID, "columns", len(cols), "bytes", len(data))

	return &ExportedBoard{
		Filename:    exportFilename(board, s.exporter.FileExtension()),
		ContentType: s.exporter.ContentType(),
		Data:        data,
	}, nil
}

func exportFilename(board *entity.Board, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, board.Name)
	if name == "" {
		name = "board"
	}
	return fmt.Sprintf("%s_%s%s", name, time.Now().Format("20060102"), ext)
}
