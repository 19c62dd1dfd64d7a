// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"google.golang.org/convobench/scoring"
)

// verdictJSON stores a scoring.Verdict as a JSON text column.
type verdictJSON struct {
	Verdict *scoring.Verdict
}

func (verdictJSON) GormDataType() string {
	return "text"
}

// Value implements driver.Valuer.
func (v verdictJSON) Value() (driver.Value, error) {
	if v.Verdict == nil {
		return nil, nil
	}
	b, err := json.Marshal(v.Verdict)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verdict: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (v *verdictJSON) Scan(value any) error {
	if value == nil {
		v.Verdict = nil
		return nil
	}
	var data []byte
	switch t := value.(type) {
	case []byte:
		data = t
	case string:
		data = []byte(t)
	default:
		return fmt.Errorf("unsupported verdict column type %T", value)
	}
	var verdict scoring.Verdict
	if err := json.Unmarshal(data, &verdict); err != nil {
		return fmt.Errorf("failed to unmarshal verdict: %w", err)
	}
	v.Verdict = &verdict
	return nil
}

// runRecord is the gorm model for one stored run.
type runRecord struct {
	RunID      string    `gorm:"primaryKey;column:run_id"`
	ScenarioID string    `gorm:"index;column:scenario_id"`
	TargetName string    `gorm:"column:target_name"`
	StartedAt  time.Time `gorm:"index;column:started_at"`
	FinishedAt time.Time `gorm:"column:finished_at"`
	HardFail   bool      `gorm:"column:hard_fail"`
	Overall    float64   `gorm:"column:overall_score"`
	Verdict    verdictJSON
	RunError   string `gorm:"column:run_error"`
}

func (runRecord) TableName() string {
	return "run_results"
}

// SQLiteStore persists run results in a SQLite database, keeping a
// queryable history across benchmark invocations.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) the database at path. Use
// ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	if err := db.AutoMigrate(&runRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate run_results: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveRunResult stores one run result, upserting on run ID.
func (s *SQLiteStore) SaveRunResult(ctx context.Context, result *scoring.RunResult) error {
	if result == nil || result.RunID == "" {
		return ErrInvalidInput
	}
	rec := runRecord{
		RunID:      result.RunID,
		ScenarioID: result.ScenarioID,
		TargetName: result.TargetName,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Verdict:    verdictJSON{Verdict: result.Verdict},
		RunError:   result.Error,
	}
	if result.Verdict != nil {
		rec.HardFail = result.Verdict.HardFail
		rec.Overall = result.Verdict.OverallScore
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

// GetRunResult retrieves a run result by run ID.
func (s *SQLiteStore) GetRunResult(ctx context.Context, runID string) (*scoring.RunResult, error) {
	var rec runRecord
	err := s.db.WithContext(ctx).First(&rec, "run_id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toRunResult(), nil
}

// ListRunResults returns stored results for a scenario, newest first.
func (s *SQLiteStore) ListRunResults(ctx context.Context, scenarioID string) ([]scoring.RunResult, error) {
	q := s.db.WithContext(ctx).Order("started_at DESC, run_id ASC")
	if scenarioID != "" {
		q = q.Where("scenario_id = ?", scenarioID)
	}
	var recs []runRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	results := make([]scoring.RunResult, len(recs))
	for i, rec := range recs {
		results[i] = *rec.toRunResult()
	}
	return results, nil
}

// DeleteRunResult removes a run result.
func (s *SQLiteStore) DeleteRunResult(ctx context.Context, runID string) error {
	res := s.db.WithContext(ctx).Delete(&runRecord{}, "run_id = ?", runID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *runRecord) toRunResult() *scoring.RunResult {
	return &scoring.RunResult{
		RunID:      r.RunID,
		ScenarioID: r.ScenarioID,
		TargetName: r.TargetName,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Verdict:    r.Verdict.Verdict,
		Error:      r.RunError,
	}
}
