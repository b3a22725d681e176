package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-incentive-api/internal/dto"
	"github.com/noah-isme/sma-incentive-api/internal/models"
	"github.com/noah-isme/sma-incentive-api/internal/repository"
	appErrors "github.com/noah-isme/sma-incentive-api/pkg/errors"
)

func TestCatalogServiceCreateBadge(t *testing.T) {
	store := repository.NewMemoryStore()
	audit := &recordingAudit{}
	catalog := NewCatalogService(store, nil, audit, nil, nil)

	badge, err := catalog.CreateBadge(context.Background(), dto.CreateBadgeRequest{Title: " Star ", ExpValue: 5}, teacherID)
	require.NoError(t, err)
	assert.Equal(t, "Star", badge.Title)
	assert.Equal(t, models.DefaultBadgeValue, badge.BadgeValue)
	assert.Positive(t, badge.ID)
	assert.Equal(t, []string{models.AuditActionBadgeCreate}, audit.actions())

	_, err = catalog.CreateBadge(context.Background(), dto.CreateBadgeRequest{Title: "Bad", ExpValue: -1}, teacherID)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = catalog.CreateSubject(context.Background(), dto.CreateSubjectRequest{Title: ""}, teacherID)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCatalogServiceListStudents(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	for _, user := range []models.User{
		{Email: "t@school.test", Name: "T", Role: models.RoleTeacher, SecretHash: "x"},
		{Email: "s1@school.test", Name: "S1", Role: models.RoleStudent, SecretHash: "x"},
		{Email: "s2@school.test", Name: "S2", Role: models.RoleStudent, SecretHash: "x"},
	} {
		user := user
		require.NoError(t, store.CreateUser(ctx, &user))
	}

	students, err := NewCatalogService(store, nil, nil, nil, nil).ListStudents(ctx)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "S1", students[0].Name)
	assert.Equal(t, "S2", students[1].Name)
}
