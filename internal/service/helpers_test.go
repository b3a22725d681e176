package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-incentive-api/internal/dto"
	"github.com/noah-isme/sma-incentive-api/internal/models"
	"github.com/noah-isme/sma-incentive-api/internal/repository"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (r *recordingAudit) Record(_ context.Context, entry AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, len(r.entries))
	for i, entry := range r.entries {
		actions[i] = entry.Action
	}
	return actions
}

// failingStore wraps the memory store and fails ledger appends inside units of work.
type failingStore struct {
	*repository.MemoryStore
	appendErr error
}

func (f *failingStore) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	return f.MemoryStore.WithinTx(ctx, func(tx repository.Store) error {
		return fn(&failingTx{Store: tx, appendErr: f.appendErr})
	})
}

type failingTx struct {
	repository.Store
	appendErr error
}

func (f *failingTx) AppendLedgerEntries(context.Context, []models.LedgerEntry) error {
	return f.appendErr
}

func (f *failingTx) WithinTx(_ context.Context, fn func(repository.Store) error) error {
	return fn(f)
}

type fixture struct {
	store   repository.Store
	offers  *OfferService
	claims  *ClaimService
	profile *ProfileService
	audit   *recordingAudit
	subject *models.Subject
	badgeA  *models.Badge
	badgeB  *models.Badge
}

const (
	teacherID int64 = 1
	studentID int64 = 2
)

func newFixture(t *testing.T, store repository.Store) *fixture {
	t.Helper()
	ctx := context.Background()
	if store == nil {
		store = repository.NewMemoryStore()
	}
	audit := &recordingAudit{}
	catalog := NewCatalogService(store, nil, audit, nil, nil)

	subject, err := catalog.CreateSubject(ctx, dto.CreateSubjectRequest{Title: "Physics"}, teacherID)
	require.NoError(t, err)
	badgeA, err := catalog.CreateBadge(ctx, dto.CreateBadgeRequest{Title: "A", ExpValue: 30}, teacherID)
	require.NoError(t, err)
	badgeB, err := catalog.CreateBadge(ctx, dto.CreateBadgeRequest{Title: "B", ExpValue: 12, IsRepeatable: true}, teacherID)
	require.NoError(t, err)

	return &fixture{
		store:   store,
		offers:  NewOfferService(store, nil, nil, WithOfferAudit(audit)),
		claims:  NewClaimService(store, nil, ClaimConfig{SystemActorID: 0}, nil, nil, WithClaimAudit(audit)),
		profile: NewProfileService(store, nil, nil, nil, nil),
		audit:   audit,
		subject: subject,
		badgeA:  badgeA,
		badgeB:  badgeB,
	}
}

func (f *fixture) publish(t *testing.T, requiresApproval bool, badgeIDs ...int64) *models.Offer {
	t.Helper()
	offer, err := f.offers.Publish(context.Background(), f.subject.ID, dto.OfferRequest{
		Title:            "Offer",
		RequiresApproval: requiresApproval,
		BadgeIDs:         badgeIDs,
	}, teacherID)
	require.NoError(t, err)
	return offer
}

func (f *fixture) ledgerFor(t *testing.T, claimID int64) []models.LedgerEntry {
	t.Helper()
	entries, err := f.store.ListLedgerEntries(context.Background(), models.LedgerFilter{SourceID: claimID})
	require.NoError(t, err)
	return entries
}

func boolPtr(v bool) *bool {
	return &v
}
