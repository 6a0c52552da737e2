package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/adreel/api/internal/model"
)

type videoJobRow struct {
	ID            string             `gorm:"primaryKey;size:64"`
	UserID        string             `gorm:"size:128;index:idx_video_jobs_user_created,priority:1"`
	Prompt        string             `gorm:"type:text"`
	StyleID       string             `gorm:"size:32"`
	Status        string             `gorm:"size:32;index"`
	SourceImages  []string           `gorm:"serializer:json;type:text"`
	LogoRef       string             `gorm:"type:text"`
	Segments      []model.Segment    `gorm:"serializer:json;type:text"`
	OverlaySpec   *model.OverlaySpec `gorm:"serializer:json;type:text"`
	FinalVideoRef string             `gorm:"type:text"`
	ErrorMessage  string             `gorm:"type:text"`
	CreatedAt     time.Time          `gorm:"index:idx_video_jobs_user_created,priority:2"`
	UpdatedAt     time.Time
}

func (videoJobRow) TableName() string {
	return "video_jobs"
}

func rowFromJob(job *model.VideoJob) videoJobRow {
	return videoJobRow{
		ID:            job.ID,
		UserID:        job.UserID,
		Prompt:        job.Prompt,
		StyleID:       job.StyleID,
		Status:        string(job.Status),
		SourceImages:  job.SourceImages,
		LogoRef:       job.LogoRef,
		Segments:      job.Segments,
		OverlaySpec:   job.OverlaySpec,
		FinalVideoRef: job.FinalVideoRef,
		ErrorMessage:  job.ErrorMessage,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
	}
}

func (r videoJobRow) toJob() *model.VideoJob {
	return &model.VideoJob{
		ID:            r.ID,
		UserID:        r.UserID,
		Prompt:        r.Prompt,
		StyleID:       r.StyleID,
		Status:        model.JobStatus(r.Status),
		SourceImages:  r.SourceImages,
		LogoRef:       r.LogoRef,
		Segments:      r.Segments,
		OverlaySpec:   r.OverlaySpec,
		FinalVideoRef: r.FinalVideoRef,
		ErrorMessage:  r.ErrorMessage,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// OpenPostgres connects to Postgres through gorm.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// GormStore keeps jobs in a SQL table, one row per job
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore migrates the jobs table and returns a store backed by db.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&videoJobRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate video_jobs: %w", err)
	}
	return &GormStore{db: db, now: time.Now}, nil
}

func (s *GormStore) CreateJob(ctx context.Context, job *model.VideoJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	row := rowFromJob(job)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *GormStore) GetJob(ctx context.Context, id string) (*model.VideoJob, error) {
	var row videoJobRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrJobNotFound
		}
		return nil, err
	}
	return row.toJob(), nil
}

func (s *GormStore) ListJobs(ctx context.Context, userID string, limit int) ([]*model.VideoJob, error) {
	var rows []videoJobRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	jobs := make([]*model.VideoJob, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, row.toJob())
	}
	return jobs, nil
}

func (s *GormStore) SetStatus(ctx context.Context, id string, status model.JobStatus, errorMessage string) (*model.VideoJob, error) {
	return s.mutate(ctx, id, setStatus(status, errorMessage))
}

func (s *GormStore) SetSegments(ctx context.Context, id string, segments []model.Segment, status model.JobStatus) (*model.VideoJob, error) {
	return s.mutate(ctx, id, setSegments(segments, status))
}

func (s *GormStore) SetOverlaySpec(ctx context.Context, id string, spec model.OverlaySpec, status model.JobStatus) (*model.VideoJob, error) {
	return s.mutate(ctx, id, setOverlaySpec(spec, status))
}

func (s *GormStore) SetFinalVideo(ctx context.Context, id, ref string) (*model.VideoJob, error) {
	return s.mutate(ctx, id, setFinalVideo(ref))
}

// mutate locks the row for the duration of the transaction.
func (s *GormStore) mutate(ctx context.Context, id string, m mutation) (*model.VideoJob, error) {
	var updated *model.VideoJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row videoJobRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrJobNotFound
			}
			return err
		}
		next, err := apply(row.toJob(), m, s.now())
		if err != nil {
			return err
		}
		out := rowFromJob(next)
		if err := tx.Save(&out).Error; err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
