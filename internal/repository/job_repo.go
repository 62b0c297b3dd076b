package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/internal/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(job *model.SummaryJob) error {
	return r.db.Create(job).Error
}

func (r *JobRepository) GetByID(id int64) (*model.SummaryJob, error) {
	var job model.SummaryJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) GetBySessionID(sessionID string) (*model.SummaryJob, error) {
	var job model.SummaryJob
	err := r.db.Where("session_id = ?", sessionID).Order("created_at DESC").First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) Update(job *model.SummaryJob) error {
	return r.db.Save(job).Error
}

func (r *JobRepository) UpdateStatus(id int64, status string) error {
	return r.db.Model(&model.SummaryJob{}).Where("id = ?", id).
		Update("status", status).Error
}
