package database

import (
	"time"

	"github.com/lib/pq"
)

type Model struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Run is one invocation of the converter.
type Run struct {
	Model

	ID         string     `json:"id" gorm:"primaryKey"`
	Input      string     `json:"input"`
	Output     string     `json:"output"`
	StartedAt  time.Time  `json:"startedAt" gorm:"type:timestamptz;index"`
	FinishedAt *time.Time `json:"finishedAt" gorm:"type:timestamptz"`
	Archives   int        `json:"archives"`
	Converted  int        `json:"converted"`
	Existing   int        `json:"existing"`
	Failed     int        `json:"failed"`
	Records    int        `json:"records"`
	Skipped    int        `json:"skipped"`
	Complete   bool       `json:"complete"`
}

// Archive is the latest known outcome for one archive, keyed by its
// identity.
type Archive struct {
	Model

	Name          string         `json:"name" gorm:"primaryKey"`
	Run           string         `json:"run" gorm:"index"`
	Path          string         `json:"path"`
	Artifact      string         `json:"artifact"`
	Status        string         `json:"status" gorm:"index"`
	Records       int            `json:"records"`
	Articles      int            `json:"articles"`
	Skipped       int            `json:"skipped"`
	Deleted       int            `json:"deleted"`
	Warnings      int            `json:"warnings"`
	WarningFields pq.StringArray `json:"warningFields" gorm:"type:text[]"`
	Bytes         int64          `json:"bytes"`
	DurationMs    int64          `json:"durationMs"`
	Error         string         `json:"error"`
}
