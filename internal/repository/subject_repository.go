package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-incentive-api/internal/models"
)

const subjectColumns = `id, title, owner_user_id, is_archived, created_at`

// ListSubjects returns all subjects ordered by id.
func (s *SQLStore) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	defer s.observe("list_subjects", time.Now())
	query := `SELECT ` + subjectColumns + ` FROM subjects ORDER BY id ASC`
	subjects := []models.Subject{}
	if err := sqlx.SelectContext(ctx, s.ext, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// GetSubject returns a subject by id.
func (s *SQLStore) GetSubject(ctx context.Context, id int64) (*models.Subject, error) {
	defer s.observe("get_subject", time.Now())
	query := s.rebind(`SELECT ` + subjectColumns + ` FROM subjects WHERE id = ?`)
	var subject models.Subject
	if err := sqlx.GetContext(ctx, s.ext, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// CreateSubject persists a new subject and assigns its id.
func (s *SQLStore) CreateSubject(ctx context.Context, subject *models.Subject) error {
	defer s.observe("create_subject", time.Now())
	subject.CreatedAt = nowUTC(subject.CreatedAt)
	id, err := s.insertReturningID(ctx,
		`INSERT INTO subjects (title, owner_user_id, is_archived, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		subject.Title, subject.OwnerUserID, subject.IsArchived, subject.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	subject.ID = id
	return nil
}
