package port

import "github.com/garyjia/deptboard/internal/domain/entity"

// BoardSnapshot is a board with its columns and each column's active tasks in order
type BoardSnapshot struct {
	Board   *entity.Board
	Columns []*entity.Column
	Tasks   map[string][]*entity.Task // keyed by column ID
}

// BoardExporter renders a board snapshot into a downloadable document
type BoardExporter interface {
	Export(snapshot *BoardSnapshot) ([]byte, error)
	ContentType() string
	FileExtension() string
}
