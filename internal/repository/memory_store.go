package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/noah-isme/sma-incentive-api/internal/models"
)

// ErrDuplicate reports a write that would break a uniqueness rule of the memory store.
var ErrDuplicate = errors.New("duplicate record")

// MemoryStore keeps the whole workflow state in process. Ids are assigned as max+1.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memoryState
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{}}
}

type memoryState struct {
	users    []models.User
	subjects []models.Subject
	badges   []models.Badge
	offers   []models.Offer
	claims   []models.Claim
	evidence []models.ClaimEvidence
	ledger   []models.LedgerEntry
	audit    []models.AuditLog
}

// clone copies every table. Rows are replaced, never mutated through shared slices.
func (st *memoryState) clone() *memoryState {
	return &memoryState{
		users:    append([]models.User(nil), st.users...),
		subjects: append([]models.Subject(nil), st.subjects...),
		badges:   append([]models.Badge(nil), st.badges...),
		offers:   append([]models.Offer(nil), st.offers...),
		claims:   append([]models.Claim(nil), st.claims...),
		evidence: append([]models.ClaimEvidence(nil), st.evidence...),
		ledger:   append([]models.LedgerEntry(nil), st.ledger...),
		audit:    append([]models.AuditLog(nil), st.audit...),
	}
}

func (s *MemoryStore) read(fn func(*memoryTx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memoryTx{state: s.state})
}

// write applies a single operation. Every memoryTx method validates before it mutates,
// so a failed operation leaves the state untouched.
func (s *MemoryStore) write(fn func(*memoryTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memoryTx{state: s.state})
}

// WithinTx runs fn against a private copy of the state and publishes it only on success.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.clone()
	if err := fn(&memoryTx{state: next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *MemoryStore) ListSubjects(ctx context.Context) (out []models.Subject, err error) {
	err = s.read(func(tx *memoryTx) error { out, err = tx.ListSubjects(ctx); return err })
	return out, err
}

func (s *MemoryStore) GetSubject(ctx context.Context, id int64) (out *models.Subject, err error) {
	err = s.read(func(tx *memoryTx) error { out, err = tx.GetSubject(ctx, id); return err })
	return out, err
}

func (s *MemoryStore) CreateSubject(ctx context.Context, subject *models.Subject) error {
	return s.write(func(tx *memoryTx) error { return tx.CreateSubject(ctx, subject) })
}

func (s *MemoryStore) ListBadges(ctx context.Context) (out []models.Badge, err error) {
	err = s.read(func(tx *memoryTx) error { out, err = tx.ListBadges(ctx); return err })
	return out, err
}

func (s *MemoryStore) GetBadge(ctx context.Context, id int64) (out *models.Badge, err error) {
	err = s.read(func(tx *memoryTx) error { out, err = tx.GetBadge(ctx, id); return err })
	return out, err
}

func (s *MemoryStore) CreateBadge(ctx context.Context, badge *models.Badge) error {
	return s.write(func(tx *memoryTx) error { return tx.CreateBadge(ctx, badge) })
}

func (s *MemoryStore) CreateOffer(ctx context.Context, offer *models.Offer) error {
	return s.write(func(tx *memoryTx) error { return tx.CreateOffer(ctx, offer) })
}

func (s *MemoryStore) GetOffer(ctx context.Context, id int64) (out *models.Offer, err error) {
	err = s.read(func(tx *memoryTx) error { out, err = tx.GetOffer(ctx, id); return err })
	return out, err
}

func (s *MemoryStore) ListOffers(ctx context.Context, filter models.OfferFilter) (out []models.Offer, err error) {
	err = s.read(func(tx *memoryTx) error { out, err = tx.ListOffers(ctx, filter); return err })
	return out, err
}

func (s *MemoryStore) UpdateOffer(ctx context.Context, offer *models.Offer) (ok bool, err error) {
	err = s.write(func(tx *memoryTx) error { ok, err = tx.UpdateOffer(ctx, offer); return err })
	return ok, err
}

func (s *MemoryStore) ReplaceOfferRewards(ctx context.Context, offerID int64, badgeIDs []int64) error {
	return s.write(func(tx *memoryTx) error { return tx.ReplaceOfferRewards(ctx, offerID, badgeIDs) })
}

func (s *MemoryStore) TransitionOfferStatus(ctx context.Context, params OfferTransition) (ok bool, err error) {
	err = s.write(func(tx *memoryTx) error { ok, err = tx.TransitionOfferStatus(ctx, params); return err })
	return ok, err
}

func (s *MemoryStore) CreateClaim(ctx context.Context, claim *models.Claim) (ok bool, err error) {
	err = s.write(func(tx *memoryTx) error { ok, err = tx.CreateClaim(ctx, claim); return err })
	return ok, err
}

func (s *MemoryStore) GetClaim(ctx context.Context, id int64) (out *models.Claim, err error) {
	err = s.read(func(tx *memoryTx) error { out, err = tx.GetClaim(ctx, id); return err })
	return out, err
}

func (s *MemoryStore) FindClaim(ctx context.Context, offerID, studentUserID int64) (out *models.Claim, err error) {
	err = s.read(func(tx *memoryTx) error { out, err = tx.FindClaim(ctx, offerID, studentUserID); return err })
	return out, err
}

func (s *MemoryStore) ListClaims(ctx context.Context, filter models.ClaimFilter) (out []models.Claim, err error) {
	err = s.read(func(tx *memoryTx) error { out, err = tx.ListClaims(ctx, filter); return err })
	return out, err
}

func (s *MemoryStore) TransitionClaim(ctx context.Context, params ClaimTransition) (ok bool, err error) {
	err = s.write(func(tx *memoryTx) error { ok, err = tx.TransitionClaim(ctx, params); return err })
	return ok, err
}

func (s *MemoryStore) AddClaimEvidence(ctx context.Context, evidence *models.ClaimEvidence) error {
	return s.write(func(tx *memoryTx) error { return tx.AddClaimEvidence(ctx, evidence) })
}

func (s *MemoryStore) AppendLedgerEntries(ctx context.Context, entries []models.LedgerEntry) error {
	return s.write(func(tx *memoryTx) error { return tx.AppendLedgerEntries(ctx, entries) })
}

func (s *MemoryStore) ListLedgerEntries(ctx context.Context, filter models.LedgerFilter) (out []models.LedgerEntry, err error) {
	err = s.read(func(tx *memoryTx) error { out, err = tx.ListLedgerEntries(ctx, filter); return err })
	return out, err
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.write(func(tx *memoryTx) error { return tx.CreateUser(ctx, user) })
}

func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (out *models.User, err error) {
	err = s.read(func(tx *memoryTx) error { out, err = tx.FindUserByEmail(ctx, email); return err })
	return out, err
}

func (s *MemoryStore) ListUsers(ctx context.Context, role models.UserRole) (out []models.User, err error) {
	err = s.read(func(tx *memoryTx) error { out, err = tx.ListUsers(ctx, role); return err })
	return out, err
}

func (s *MemoryStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return s.write(func(tx *memoryTx) error { return tx.CreateAuditLog(ctx, log) })
}

func (s *MemoryStore) ListAuditLogs(ctx context.Context, filter models.AuditFilter) (out []models.AuditLog, err error) {
	err = s.read(func(tx *memoryTx) error { out, err = tx.ListAuditLogs(ctx, filter); return err })
	return out, err
}

// memoryTx operates on a state without locking. The owning MemoryStore holds the lock.
type memoryTx struct {
	state *memoryState
}

func (tx *memoryTx) WithinTx(ctx context.Context, fn func(Store) error) error {
	return fn(tx)
}

func (tx *memoryTx) ListSubjects(context.Context) ([]models.Subject, error) {
	return append([]models.Subject{}, tx.state.subjects...), nil
}

func (tx *memoryTx) GetSubject(_ context.Context, id int64) (*models.Subject, error) {
	for _, subject := range tx.state.subjects {
		if subject.ID == id {
			out := subject
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (tx *memoryTx) CreateSubject(_ context.Context, subject *models.Subject) error {
	var last int64
	if n := len(tx.state.subjects); n > 0 {
		last = tx.state.subjects[n-1].ID
	}
	subject.ID = last + 1
	subject.CreatedAt = nowUTC(subject.CreatedAt)
	tx.state.subjects = append(tx.state.subjects, *subject)
	return nil
}

func (tx *memoryTx) ListBadges(context.Context) ([]models.Badge, error) {
	return append([]models.Badge{}, tx.state.badges...), nil
}

func (tx *memoryTx) GetBadge(_ context.Context, id int64) (*models.Badge, error) {
	for _, badge := range tx.state.badges {
		if badge.ID == id {
			out := badge
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (tx *memoryTx) CreateBadge(_ context.Context, badge *models.Badge) error {
	var last int64
	if n := len(tx.state.badges); n > 0 {
		last = tx.state.badges[n-1].ID
	}
	badge.ID = last + 1
	badge.CreatedAt = nowUTC(badge.CreatedAt)
	tx.state.badges = append(tx.state.badges, *badge)
	return nil
}

func (tx *memoryTx) CreateOffer(_ context.Context, offer *models.Offer) error {
	var last int64
	if n := len(tx.state.offers); n > 0 {
		last = tx.state.offers[n-1].ID
	}
	offer.ID = last + 1
	offer.CreatedAt = nowUTC(offer.CreatedAt)
	offer.UpdatedAt = nowUTC(offer.UpdatedAt)
	if offer.Status == "" {
		offer.Status = models.OfferStatusPublished
	}
	tx.state.offers = append(tx.state.offers, copyOffer(*offer))
	return nil
}

func (tx *memoryTx) offerIndex(id int64) int {
	i := sort.Search(len(tx.state.offers), func(i int) bool { return tx.state.offers[i].ID >= id })
	if i < len(tx.state.offers) && tx.state.offers[i].ID == id {
		return i
	}
	return -1
}

func copyOffer(offer models.Offer) models.Offer {
	offer.RewardBadgeIDs = append([]int64{}, offer.RewardBadgeIDs...)
	return offer
}

func (tx *memoryTx) GetOffer(_ context.Context, id int64) (*models.Offer, error) {
	i := tx.offerIndex(id)
	if i < 0 {
		return nil, sql.ErrNoRows
	}
	out := copyOffer(tx.state.offers[i])
	return &out, nil
}

func (tx *memoryTx) ListOffers(_ context.Context, filter models.OfferFilter) ([]models.Offer, error) {
	offers := []models.Offer{}
	for _, offer := range tx.state.offers {
		if filter.SubjectID > 0 && offer.SubjectID != filter.SubjectID {
			continue
		}
		if filter.Status != "" && offer.Status != filter.Status {
			continue
		}
		offers = append(offers, copyOffer(offer))
	}
	return offers, nil
}

func (tx *memoryTx) UpdateOffer(_ context.Context, offer *models.Offer) (bool, error) {
	i := tx.offerIndex(offer.ID)
	if i < 0 {
		return false, nil
	}
	current := tx.state.offers[i]
	if current.SubjectID != offer.SubjectID || current.Status != models.OfferStatusPublished {
		return false, nil
	}
	offer.UpdatedAt = nowUTC(offer.UpdatedAt)
	current.Title = offer.Title
	current.Description = offer.Description
	current.RequiresApproval = offer.RequiresApproval
	current.UpdatedAt = offer.UpdatedAt
	tx.state.offers[i] = current
	return true, nil
}

func (tx *memoryTx) ReplaceOfferRewards(_ context.Context, offerID int64, badgeIDs []int64) error {
	i := tx.offerIndex(offerID)
	if i < 0 {
		return nil
	}
	current := tx.state.offers[i]
	current.RewardBadgeIDs = append([]int64{}, badgeIDs...)
	tx.state.offers[i] = current
	return nil
}

func (tx *memoryTx) TransitionOfferStatus(_ context.Context, params OfferTransition) (bool, error) {
	i := tx.offerIndex(params.ID)
	if i < 0 {
		return false, nil
	}
	current := tx.state.offers[i]
	if current.SubjectID != params.SubjectID || current.Status != params.From {
		return false, nil
	}
	current.Status = params.To
	current.UpdatedAt = nowUTC(params.At)
	tx.state.offers[i] = current
	return true, nil
}

func (tx *memoryTx) CreateClaim(_ context.Context, claim *models.Claim) (bool, error) {
	for _, existing := range tx.state.claims {
		if existing.OfferID == claim.OfferID && existing.StudentUserID == claim.StudentUserID {
			return false, nil
		}
	}
	var last int64
	if n := len(tx.state.claims); n > 0 {
		last = tx.state.claims[n-1].ID
	}
	claim.ID = last + 1
	claim.AcceptedAt = nowUTC(claim.AcceptedAt)
	if claim.Status == "" {
		claim.Status = models.ClaimStatusAccepted
	}
	tx.state.claims = append(tx.state.claims, *claim)
	return true, nil
}

func (tx *memoryTx) claimIndex(id int64) int {
	i := sort.Search(len(tx.state.claims), func(i int) bool { return tx.state.claims[i].ID >= id })
	if i < len(tx.state.claims) && tx.state.claims[i].ID == id {
		return i
	}
	return -1
}

func (tx *memoryTx) GetClaim(_ context.Context, id int64) (*models.Claim, error) {
	i := tx.claimIndex(id)
	if i < 0 {
		return nil, sql.ErrNoRows
	}
	out := tx.state.claims[i]
	return &out, nil
}

func (tx *memoryTx) FindClaim(_ context.Context, offerID, studentUserID int64) (*models.Claim, error) {
	for _, claim := range tx.state.claims {
		if claim.OfferID == offerID && claim.StudentUserID == studentUserID {
			out := claim
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (tx *memoryTx) ListClaims(_ context.Context, filter models.ClaimFilter) ([]models.Claim, error) {
	subjectOf := make(map[int64]int64, len(tx.state.offers))
	for _, offer := range tx.state.offers {
		subjectOf[offer.ID] = offer.SubjectID
	}
	claims := []models.Claim{}
	for _, claim := range tx.state.claims {
		if filter.SubjectID > 0 && subjectOf[claim.OfferID] != filter.SubjectID {
			continue
		}
		if filter.StudentUserID > 0 && claim.StudentUserID != filter.StudentUserID {
			continue
		}
		if filter.Status != "" && claim.Status != filter.Status {
			continue
		}
		claims = append(claims, claim)
	}
	return claims, nil
}

func (tx *memoryTx) TransitionClaim(_ context.Context, params ClaimTransition) (bool, error) {
	i := tx.claimIndex(params.ID)
	if i < 0 {
		return false, nil
	}
	current := tx.state.claims[i]
	if current.Status != params.From {
		return false, nil
	}
	if params.StudentUserID > 0 && current.StudentUserID != params.StudentUserID {
		return false, nil
	}
	current.Status = params.To
	if params.Evidence != nil {
		value := *params.Evidence
		current.Evidence = &value
	}
	if params.DecisionNote != nil {
		value := *params.DecisionNote
		current.DecisionNote = &value
	}
	if params.SubmittedAt != nil {
		value := *params.SubmittedAt
		current.SubmittedAt = &value
	}
	if params.DecidedAt != nil {
		value := *params.DecidedAt
		current.DecidedAt = &value
	}
	if params.DecidedBy != nil {
		value := *params.DecidedBy
		current.DecidedBy = &value
	}
	tx.state.claims[i] = current
	return true, nil
}

func (tx *memoryTx) AddClaimEvidence(_ context.Context, evidence *models.ClaimEvidence) error {
	if tx.claimIndex(evidence.ClaimID) < 0 {
		return sql.ErrNoRows
	}
	var last int64
	if n := len(tx.state.evidence); n > 0 {
		last = tx.state.evidence[n-1].ID
	}
	evidence.ID = last + 1
	evidence.CreatedAt = nowUTC(evidence.CreatedAt)
	if evidence.Type == "" {
		evidence.Type = models.EvidenceTypeText
	}
	tx.state.evidence = append(tx.state.evidence, *evidence)
	return nil
}

type ledgerKey struct {
	sourceType string
	sourceID   int64
	badgeID    int64
}

func keyOf(entry models.LedgerEntry) ledgerKey {
	key := ledgerKey{sourceType: entry.SourceType, sourceID: entry.SourceID}
	if entry.BadgeID != nil {
		key.badgeID = *entry.BadgeID
	}
	return key
}

func (tx *memoryTx) AppendLedgerEntries(_ context.Context, entries []models.LedgerEntry) error {
	seen := make(map[ledgerKey]struct{}, len(tx.state.ledger)+len(entries))
	for _, entry := range tx.state.ledger {
		seen[keyOf(entry)] = struct{}{}
	}
	var last int64
	if n := len(tx.state.ledger); n > 0 {
		last = tx.state.ledger[n-1].ID
	}
	appended := make([]models.LedgerEntry, 0, len(entries))
	for i := range entries {
		key := keyOf(entries[i])
		if _, ok := seen[key]; ok {
			return ErrDuplicate
		}
		seen[key] = struct{}{}
		last++
		entries[i].ID = last
		entries[i].CreatedAt = nowUTC(entries[i].CreatedAt)
		appended = append(appended, entries[i])
	}
	tx.state.ledger = append(tx.state.ledger, appended...)
	return nil
}

func (tx *memoryTx) ListLedgerEntries(_ context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	for _, entry := range tx.state.ledger {
		if filter.UserID > 0 && entry.UserID != filter.UserID {
			continue
		}
		if filter.SubjectID > 0 && entry.SubjectID != filter.SubjectID {
			continue
		}
		if filter.SourceID > 0 && entry.SourceID != filter.SourceID {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (tx *memoryTx) CreateUser(_ context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range tx.state.users {
		if existing.Email == user.Email {
			return ErrDuplicate
		}
	}
	var last int64
	if n := len(tx.state.users); n > 0 {
		last = tx.state.users[n-1].ID
	}
	user.ID = last + 1
	user.CreatedAt = nowUTC(user.CreatedAt)
	tx.state.users = append(tx.state.users, *user)
	return nil
}

func (tx *memoryTx) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range tx.state.users {
		if user.Email == email {
			out := user
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (tx *memoryTx) ListUsers(_ context.Context, role models.UserRole) ([]models.User, error) {
	users := []models.User{}
	for _, user := range tx.state.users {
		if role != "" && user.Role != role {
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func (tx *memoryTx) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	var last int64
	if n := len(tx.state.audit); n > 0 {
		last = tx.state.audit[n-1].ID
	}
	log.ID = last + 1
	log.CreatedAt = nowUTC(log.CreatedAt)
	tx.state.audit = append(tx.state.audit, *log)
	return nil
}

func (tx *memoryTx) ListAuditLogs(_ context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = defaultAuditLimit
	}
	logs := []models.AuditLog{}
	for i := len(tx.state.audit) - 1; i >= 0 && len(logs) < limit; i-- {
		if filter.Resource != "" && tx.state.audit[i].Resource != filter.Resource {
			continue
		}
		logs = append(logs, tx.state.audit[i])
	}
	return logs, nil
}

var (
	_ Store = (*SQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Store = (*memoryTx)(nil)
)
