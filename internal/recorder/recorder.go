package recorder

import "github.com/taylorsk/volatility-analysis/internal/model"

// Recorder persists analysis runs for later inspection.
type Recorder interface {
	RecordRun(report *model.Report) error
	Close() error
}
