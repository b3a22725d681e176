package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-incentive-api/internal/models"
	"github.com/noah-isme/sma-incentive-api/pkg/config"
	"github.com/noah-isme/sma-incentive-api/pkg/database"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "incentives.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return NewSQLStore(db)
}

func TestStoreContract(t *testing.T) {
	backends := map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"sqlite": newSQLiteStore,
	}
	for name, build := range backends {
		name, build := name, build
		t.Run(name, func(t *testing.T) {
			t.Run("catalog", func(t *testing.T) { testCatalog(t, build(t)) })
			t.Run("offers", func(t *testing.T) { testOffers(t, build(t)) })
			t.Run("claims", func(t *testing.T) { testClaims(t, build(t)) })
			t.Run("ledger", func(t *testing.T) { testLedger(t, build(t)) })
			t.Run("rollback", func(t *testing.T) { testRollback(t, build(t)) })
			t.Run("users and audit", func(t *testing.T) { testUsersAndAudit(t, build(t)) })
		})
	}
}

func seedSubjectAndBadges(t *testing.T, store Store) (*models.Subject, []models.Badge) {
	t.Helper()
	ctx := context.Background()
	subject := &models.Subject{Title: "Math", OwnerUserID: 1}
	require.NoError(t, store.CreateSubject(ctx, subject))
	badges := []models.Badge{
		{Title: "Star", ExpValue: 10, BadgeValue: 1},
		{Title: "Helper", ExpValue: 5, BadgeValue: 2, IsRepeatable: true},
	}
	for i := range badges {
		require.NoError(t, store.CreateBadge(ctx, &badges[i]))
	}
	return subject, badges
}

func testCatalog(t *testing.T, store Store) {
	ctx := context.Background()
	subject, badges := seedSubjectAndBadges(t, store)
	assert.Equal(t, int64(1), subject.ID)
	assert.Equal(t, int64(2), badges[1].ID)

	found, err := store.GetSubject(ctx, subject.ID)
	require.NoError(t, err)
	assert.Equal(t, "Math", found.Title)

	_, err = store.GetBadge(ctx, 99)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	list, err := store.ListBadges(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[1].IsRepeatable)
}

func testOffers(t *testing.T, store Store) {
	ctx := context.Background()
	subject, badges := seedSubjectAndBadges(t, store)

	offer := &models.Offer{SubjectID: subject.ID, CreatedBy: 1, Title: "Homework", RequiresApproval: true, RewardBadgeIDs: []int64{badges[1].ID, badges[0].ID}}
	require.NoError(t, store.CreateOffer(ctx, offer))

	loaded, err := store.GetOffer(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{badges[1].ID, badges[0].ID}, loaded.RewardBadgeIDs)

	ok, err := store.UpdateOffer(ctx, &models.Offer{ID: offer.ID, SubjectID: subject.ID + 1, Title: "Hijack"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.UpdateOffer(ctx, &models.Offer{ID: offer.ID, SubjectID: subject.ID, Title: "Homework 2"})
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, store.ReplaceOfferRewards(ctx, offer.ID, []int64{badges[0].ID}))

	ok, err = store.TransitionOfferStatus(ctx, OfferTransition{ID: offer.ID, SubjectID: subject.ID, From: models.OfferStatusPublished, To: models.OfferStatusArchived, At: time.Now()})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TransitionOfferStatus(ctx, OfferTransition{ID: offer.ID, SubjectID: subject.ID, From: models.OfferStatusPublished, To: models.OfferStatusArchived, At: time.Now()})
	require.NoError(t, err)
	assert.False(t, ok)

	published, err := store.ListOffers(ctx, models.OfferFilter{SubjectID: subject.ID, Status: models.OfferStatusPublished})
	require.NoError(t, err)
	assert.Empty(t, published)

	all, err := store.ListOffers(ctx, models.OfferFilter{SubjectID: subject.ID})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Homework 2", all[0].Title)
	assert.Equal(t, []int64{badges[0].ID}, all[0].RewardBadgeIDs)
	assert.Equal(t, models.OfferStatusArchived, all[0].Status)
}

func testClaims(t *testing.T, store Store) {
	ctx := context.Background()
	subject, badges := seedSubjectAndBadges(t, store)
	offer := &models.Offer{SubjectID: subject.ID, CreatedBy: 1, Title: "Essay", RequiresApproval: true, RewardBadgeIDs: []int64{badges[0].ID}}
	require.NoError(t, store.CreateOffer(ctx, offer))

	claim := &models.Claim{OfferID: offer.ID, StudentUserID: 20}
	created, err := store.CreateClaim(ctx, claim)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.CreateClaim(ctx, &models.Claim{OfferID: offer.ID, StudentUserID: 20})
	require.NoError(t, err)
	assert.False(t, created)

	evidence := "essay.pdf"
	submittedAt := time.Now().UTC()
	ok, err := store.TransitionClaim(ctx, ClaimTransition{ID: claim.ID, StudentUserID: 21, From: models.ClaimStatusAccepted, To: models.ClaimStatusSubmitted, Evidence: &evidence, SubmittedAt: &submittedAt})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.TransitionClaim(ctx, ClaimTransition{ID: claim.ID, StudentUserID: 20, From: models.ClaimStatusAccepted, To: models.ClaimStatusSubmitted, Evidence: &evidence, SubmittedAt: &submittedAt})
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, store.AddClaimEvidence(ctx, &models.ClaimEvidence{ClaimID: claim.ID, Value: evidence}))

	found, err := store.FindClaim(ctx, offer.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusSubmitted, found.Status)
	require.NotNil(t, found.Evidence)
	assert.Equal(t, evidence, *found.Evidence)
	assert.NotNil(t, found.SubmittedAt)

	bySubject, err := store.ListClaims(ctx, models.ClaimFilter{SubjectID: subject.ID})
	require.NoError(t, err)
	assert.Len(t, bySubject, 1)
	otherSubject, err := store.ListClaims(ctx, models.ClaimFilter{SubjectID: subject.ID + 1})
	require.NoError(t, err)
	assert.Empty(t, otherSubject)
}

func testLedger(t *testing.T, store Store) {
	ctx := context.Background()
	badge := int64(1)
	entries := []models.LedgerEntry{
		{SubjectID: 1, UserID: 20, SourceType: models.LedgerSourceOfferClaim, SourceID: 7, BadgeID: &badge, ExpDelta: 10, BadgeDelta: 1},
		{SubjectID: 2, UserID: 20, SourceType: models.LedgerSourceOfferClaim, SourceID: 8, BadgeID: &badge, ExpDelta: 3, BadgeDelta: 1},
	}
	require.NoError(t, store.AppendLedgerEntries(ctx, entries))
	assert.NotZero(t, entries[0].ID)
	assert.Greater(t, entries[1].ID, entries[0].ID)

	err := store.AppendLedgerEntries(ctx, []models.LedgerEntry{
		{SubjectID: 1, UserID: 20, SourceType: models.LedgerSourceOfferClaim, SourceID: 7, BadgeID: &badge, ExpDelta: 10, BadgeDelta: 1},
	})
	require.Error(t, err)

	all, err := store.ListLedgerEntries(ctx, models.LedgerFilter{UserID: 20})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := store.ListLedgerEntries(ctx, models.LedgerFilter{UserID: 20, SubjectID: 2})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, 3, scoped[0].ExpDelta)
}

func testRollback(t *testing.T, store Store) {
	ctx := context.Background()
	subject, _ := seedSubjectAndBadges(t, store)
	offer := &models.Offer{SubjectID: subject.ID, Title: "Lab"}
	require.NoError(t, store.CreateOffer(ctx, offer))
	claim := &models.Claim{OfferID: offer.ID, StudentUserID: 30}
	_, err := store.CreateClaim(ctx, claim)
	require.NoError(t, err)

	failure := errors.New("grant failed")
	err = store.WithinTx(ctx, func(tx Store) error {
		ok, err := tx.TransitionClaim(ctx, ClaimTransition{ID: claim.ID, From: models.ClaimStatusAccepted, To: models.ClaimStatusApproved})
		require.NoError(t, err)
		require.True(t, ok)
		return failure
	})
	require.ErrorIs(t, err, failure)

	reloaded, err := store.GetClaim(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusAccepted, reloaded.Status)
}

func testUsersAndAudit(t *testing.T, store Store) {
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &models.User{Email: "Teacher@School.test", Name: "T", Role: models.RoleTeacher, SecretHash: "x"}))
	require.NoError(t, store.CreateUser(ctx, &models.User{Email: "kid@school.test", Name: "K", Role: models.RoleStudent, SecretHash: "y"}))

	user, err := store.FindUserByEmail(ctx, "teacher@school.test")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, user.Role)

	students, err := store.ListUsers(ctx, models.RoleStudent)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "kid@school.test", students[0].Email)

	resourceID := int64(1)
	for _, action := range []string{models.AuditActionClaimAccept, models.AuditActionClaimSubmit} {
		require.NoError(t, store.CreateAuditLog(ctx, &models.AuditLog{UserID: &user.ID, Action: action, Resource: "claim", ResourceID: &resourceID}))
	}
	logs, err := store.ListAuditLogs(ctx, models.AuditFilter{Resource: "claim", Limit: 1})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionClaimSubmit, logs[0].Action)
}
