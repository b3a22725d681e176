package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-incentive-api/internal/dto"
	"github.com/noah-isme/sma-incentive-api/internal/models"
	appErrors "github.com/noah-isme/sma-incentive-api/pkg/errors"
)

func TestOfferServicePublishDeduplicatesRewards(t *testing.T) {
	f := newFixture(t, nil)
	offer := f.publish(t, true, f.badgeB.ID, f.badgeA.ID, f.badgeB.ID)

	assert.Equal(t, models.OfferStatusPublished, offer.Status)
	assert.Equal(t, teacherID, offer.CreatedBy)

	stored, err := f.store.GetOffer(context.Background(), offer.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.badgeB.ID, f.badgeA.ID}, stored.RewardBadgeIDs)
	assert.True(t, stored.RequiresApproval)
}

func TestOfferServicePublishValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		subjectID int64
		req       dto.OfferRequest
		want      *appErrors.Error
	}{
		{"missing title", f.subject.ID, dto.OfferRequest{Title: "  "}, appErrors.ErrValidation},
		{"negative badge", f.subject.ID, dto.OfferRequest{Title: "x", BadgeIDs: []int64{-1}}, appErrors.ErrValidation},
		{"unknown badge", f.subject.ID, dto.OfferRequest{Title: "x", BadgeIDs: []int64{404}}, appErrors.ErrValidation},
		{"unknown subject", 404, dto.OfferRequest{Title: "x"}, appErrors.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.offers.Publish(ctx, tc.subjectID, tc.req, teacherID)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}

	offers, err := f.store.ListOffers(ctx, models.OfferFilter{})
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestOfferServiceUpdateReplacesRewardSet(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	offer := f.publish(t, true, f.badgeA.ID)

	outcome, err := f.offers.Update(ctx, offer.ID, offer.SubjectID, dto.OfferRequest{
		Title:            "Renamed",
		Description:      "desc",
		RequiresApproval: false,
		BadgeIDs:         []int64{f.badgeB.ID},
	}, teacherID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, outcome)

	stored, err := f.store.GetOffer(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Title)
	assert.Equal(t, "desc", stored.Description)
	assert.False(t, stored.RequiresApproval)
	assert.Equal(t, []int64{f.badgeB.ID}, stored.RewardBadgeIDs)

	outcome, err = f.offers.Update(ctx, offer.ID, offer.SubjectID, dto.OfferRequest{Title: "Empty"}, teacherID)
	require.NoError(t, err)
	require.Equal(t, models.OutcomeApplied, outcome)
	stored, err = f.store.GetOffer(ctx, offer.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RewardBadgeIDs)
}

func TestOfferServiceUpdateWithWrongSubjectChangesNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	offer := f.publish(t, true, f.badgeA.ID)

	outcome, err := f.offers.Update(ctx, offer.ID, offer.SubjectID+1, dto.OfferRequest{
		Title:    "Hijacked",
		BadgeIDs: []int64{f.badgeB.ID},
	}, teacherID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNotFound, outcome)

	stored, err := f.store.GetOffer(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Offer", stored.Title)
	assert.Equal(t, []int64{f.badgeA.ID}, stored.RewardBadgeIDs)
}

func TestOfferServiceArchiveOutcomes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	offer := f.publish(t, false, f.badgeA.ID)

	outcome, err := f.offers.Archive(ctx, offer.ID, offer.SubjectID+1, teacherID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNotFound, outcome)

	outcome, err = f.offers.Archive(ctx, offer.ID, offer.SubjectID, teacherID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, outcome)

	outcome, err = f.offers.Archive(ctx, offer.ID, offer.SubjectID, teacherID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInvalidState, outcome)

	outcome, err = f.offers.Update(ctx, offer.ID, offer.SubjectID, dto.OfferRequest{Title: "late"}, teacherID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInvalidState, outcome)

	outcome, err = f.offers.Archive(ctx, 999, offer.SubjectID, teacherID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNotFound, outcome)
}

func TestOfferServiceListReturnsPublishedOnly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	kept := f.publish(t, true, f.badgeA.ID)
	archived := f.publish(t, true, f.badgeB.ID)

	_, err := f.offers.Archive(ctx, archived.ID, archived.SubjectID, teacherID)
	require.NoError(t, err)

	offers, err := f.offers.List(ctx, f.subject.ID)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, kept.ID, offers[0].ID)
	assert.Equal(t, []int64{f.badgeA.ID}, offers[0].RewardBadgeIDs)
}

func TestOfferServiceListUsesCacheUntilInvalidated(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	repo := newMapCache()
	offers := NewOfferService(f.store, nil, nil, WithOfferCache(NewCacheService(repo, nil, 0, nil, true)))

	first := f.publish(t, true, f.badgeA.ID)
	listed, err := offers.List(ctx, f.subject.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 1, repo.sets)

	listed, err = offers.List(ctx, f.subject.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 1, repo.hits)

	outcome, err := offers.Archive(ctx, first.ID, first.SubjectID, teacherID)
	require.NoError(t, err)
	require.Equal(t, models.OutcomeApplied, outcome)

	listed, err = offers.List(ctx, f.subject.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
