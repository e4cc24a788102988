package service

import (
	"context"
	"time"

	"github.com/texlink/partnerhub/internal/domain"
)

type memCredentialRepo struct {
	byID        map[string]*domain.Credential
	history     map[string][]*domain.CredentialStatusHistory
	validations map[string][]*domain.CredentialValidation
}

func newMemCredentialRepo() *memCredentialRepo {
	return &memCredentialRepo{
		byID:        map[string]*domain.Credential{},
		history:     map[string][]*domain.CredentialStatusHistory{},
		validations: map[string][]*domain.CredentialValidation{},
	}
}

func (m *memCredentialRepo) Create(_ context.Context, c *domain.Credential, actorID string) error {
	for _, other := range m.byID {
		if other.BrandID == c.BrandID && other.TaxID == c.TaxID && other.Status != domain.CredentialBlocked {
			return domain.Conflictf("an active credential already exists for tax ID %s", c.TaxID)
		}
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.byID[c.ID] = &cp
	m.history[c.ID] = append(m.history[c.ID], &domain.CredentialStatusHistory{
		CredentialID:  c.ID,
		ToStatus:      c.Status,
		PerformedByID: actorID,
		CreatedAt:     c.CreatedAt,
	})
	return nil
}

func (m *memCredentialRepo) GetByID(_ context.Context, id string) (*domain.Credential, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.NotFoundf("credential %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memCredentialRepo) FindActiveByTaxID(_ context.Context, brandID, taxID, excludeID string) (*domain.Credential, error) {
	for _, c := range m.byID {
		if c.BrandID == brandID && c.TaxID == taxID && c.Status != domain.CredentialBlocked && c.ID != excludeID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memCredentialRepo) Update(_ context.Context, c *domain.Credential, invalidateValidations bool) error {
	if _, ok := m.byID[c.ID]; !ok {
		return domain.NotFoundf("credential %s not found", c.ID)
	}
	c.UpdatedAt = time.Now()
	cp := *c
	m.byID[c.ID] = &cp
	if invalidateValidations {
		for _, v := range m.validations[c.ID] {
			v.IsValid = false
		}
	}
	return nil
}

func (m *memCredentialRepo) ChangeStatus(_ context.Context, id string, from *domain.CredentialStatus, to domain.CredentialStatus, actorID, reason string, completedAt *time.Time) error {
	c, ok := m.byID[id]
	if !ok {
		return domain.NotFoundf("credential %s not found", id)
	}
	c.Status = to
	if completedAt != nil {
		c.CompletedAt = completedAt
	}
	c.UpdatedAt = time.Now()
	m.history[id] = append(m.history[id], &domain.CredentialStatusHistory{
		CredentialID:  id,
		FromStatus:    from,
		ToStatus:      to,
		PerformedByID: actorID,
		Reason:        reason,
		CreatedAt:     c.UpdatedAt,
	})
	return nil
}

func (m *memCredentialRepo) List(_ context.Context, brandID string, _ domain.CredentialFilter) ([]*domain.Credential, int, error) {
	var out []*domain.Credential
	for _, c := range m.byID {
		if c.BrandID == brandID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *memCredentialRepo) History(_ context.Context, credentialID string) ([]*domain.CredentialStatusHistory, error) {
	return m.history[credentialID], nil
}

func (m *memCredentialRepo) Validations(_ context.Context, credentialID string) ([]*domain.CredentialValidation, error) {
	return m.validations[credentialID], nil
}

func (m *memCredentialRepo) AddValidation(_ context.Context, v *domain.CredentialValidation) error {
	v.CreatedAt = time.Now()
	m.validations[v.CredentialID] = append(m.validations[v.CredentialID], v)
	return nil
}

func (m *memCredentialRepo) CountByStatus(_ context.Context, brandID string) (map[domain.CredentialStatus]int, error) {
	counts := map[domain.CredentialStatus]int{}
	for _, c := range m.byID {
		if c.BrandID == brandID {
			counts[c.Status]++
		}
	}
	return counts, nil
}

func (m *memCredentialRepo) CountCreatedSince(_ context.Context, brandID string, since time.Time) (int, error) {
	n := 0
	for _, c := range m.byID {
		if c.BrandID == brandID && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memCredentialRepo) CountCompletedSince(_ context.Context, brandID string, since time.Time) (int, error) {
	n := 0
	for _, c := range m.byID {
		if c.BrandID == brandID && c.CompletedAt != nil && !c.CompletedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type memRequestRepo struct {
	byID          map[string]*domain.PartnershipRequest
	relationships *memRelationshipRepo
}

func newMemRequestRepo(rels *memRelationshipRepo) *memRequestRepo {
	return &memRequestRepo{byID: map[string]*domain.PartnershipRequest{}, relationships: rels}
}

func (m *memRequestRepo) Create(_ context.Context, r *domain.PartnershipRequest) error {
	for _, other := range m.byID {
		if other.BrandID == r.BrandID && other.SupplierID == r.SupplierID && other.Status == domain.RequestPending {
			return domain.Conflictf("a pending request already exists for this supplier")
		}
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.byID[r.ID] = &cp
	return nil
}

func (m *memRequestRepo) GetByID(_ context.Context, id string) (*domain.PartnershipRequest, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, domain.NotFoundf("partnership request %s not found", id)
	}
	cp := *r
	return &cp, nil
}

func (m *memRequestRepo) FindPending(_ context.Context, brandID, supplierID string) (*domain.PartnershipRequest, error) {
	for _, r := range m.byID {
		if r.BrandID == brandID && r.SupplierID == supplierID && r.Status == domain.RequestPending {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRequestRepo) Update(_ context.Context, r *domain.PartnershipRequest) error {
	if _, ok := m.byID[r.ID]; !ok {
		return domain.NotFoundf("partnership request %s not found", r.ID)
	}
	r.UpdatedAt = time.Now()
	cp := *r
	m.byID[r.ID] = &cp
	return nil
}

func (m *memRequestRepo) Accept(ctx context.Context, r *domain.PartnershipRequest, rel *domain.Relationship) error {
	stored, ok := m.byID[r.ID]
	if !ok || stored.Status != domain.RequestPending {
		return domain.InvalidStatef("request is no longer pending")
	}
	if err := m.relationships.Create(ctx, rel); err != nil {
		return err
	}
	r.UpdatedAt = time.Now()
	cp := *r
	m.byID[r.ID] = &cp
	return nil
}

func (m *memRequestRepo) ListSent(_ context.Context, brandID string) ([]*domain.PartnershipRequest, error) {
	var out []*domain.PartnershipRequest
	for _, r := range m.byID {
		if r.BrandID == brandID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRequestRepo) ListReceived(_ context.Context, supplierID string) ([]*domain.PartnershipRequest, error) {
	var out []*domain.PartnershipRequest
	for _, r := range m.byID {
		if r.SupplierID == supplierID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRequestRepo) CountPending(_ context.Context, supplierID string) (int, error) {
	n := 0
	now := time.Now()
	for _, r := range m.byID {
		if r.SupplierID == supplierID && r.Status == domain.RequestPending && r.ExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (m *memRequestRepo) MarkExpiredBefore(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, r := range m.byID {
		if r.Status == domain.RequestPending && now.After(r.ExpiresAt) {
			r.Status = domain.RequestExpired
			n++
		}
	}
	return n, nil
}

type memRelationshipRepo struct {
	byID map[string]*domain.Relationship
}

func newMemRelationshipRepo() *memRelationshipRepo {
	return &memRelationshipRepo{byID: map[string]*domain.Relationship{}}
}

func (m *memRelationshipRepo) Create(_ context.Context, rel *domain.Relationship) error {
	rel.CreatedAt = time.Now()
	rel.UpdatedAt = rel.CreatedAt
	cp := *rel
	m.byID[rel.ID] = &cp
	return nil
}

func (m *memRelationshipRepo) GetByID(_ context.Context, id string) (*domain.Relationship, error) {
	rel, ok := m.byID[id]
	if !ok {
		return nil, domain.NotFoundf("relationship %s not found", id)
	}
	cp := *rel
	return &cp, nil
}

func (m *memRelationshipRepo) FindActiveByPair(_ context.Context, brandID, supplierID string) (*domain.Relationship, error) {
	for _, rel := range m.byID {
		if rel.BrandID == brandID && rel.SupplierID == supplierID && rel.Status != domain.RelationshipTerminated {
			cp := *rel
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRelationshipRepo) Update(_ context.Context, rel *domain.Relationship) error {
	if _, ok := m.byID[rel.ID]; !ok {
		return domain.NotFoundf("relationship %s not found", rel.ID)
	}
	rel.UpdatedAt = time.Now()
	cp := *rel
	m.byID[rel.ID] = &cp
	return nil
}

func (m *memRelationshipRepo) ListByBrand(_ context.Context, brandID string) ([]*domain.Relationship, error) {
	var out []*domain.Relationship
	for _, rel := range m.byID {
		if rel.BrandID == brandID {
			cp := *rel
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRelationshipRepo) ListBySupplier(_ context.Context, supplierID string) ([]*domain.Relationship, error) {
	var out []*domain.Relationship
	for _, rel := range m.byID {
		if rel.SupplierID == supplierID {
			cp := *rel
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRelationshipRepo) RevokeConsentAndTerminate(_ context.Context, id, reason string, at time.Time) (*domain.Relationship, error) {
	rel, ok := m.byID[id]
	if !ok {
		return nil, domain.NotFoundf("relationship %s not found", id)
	}
	rel.Status = domain.RelationshipTerminated
	rel.DocumentSharingConsent = false
	rel.ConsentRevokedAt = &at
	rel.ConsentRevocationReason = reason
	rel.TerminationReason = reason
	rel.TerminatedAt = &at
	rel.UpdatedAt = at
	cp := *rel
	return &cp, nil
}

func (m *memRelationshipRepo) CountByStatus(_ context.Context, companyID string, asBrand bool) (map[domain.RelationshipStatus]int, error) {
	counts := map[domain.RelationshipStatus]int{}
	for _, rel := range m.byID {
		id := rel.SupplierID
		if asBrand {
			id = rel.BrandID
		}
		if id == companyID {
			counts[rel.Status]++
		}
	}
	return counts, nil
}

type memContractRepo struct {
	byID      map[string]*domain.Contract
	order     []string
	revisions map[string][]*domain.ContractRevision
}

func newMemContractRepo() *memContractRepo {
	return &memContractRepo{
		byID:      map[string]*domain.Contract{},
		revisions: map[string][]*domain.ContractRevision{},
	}
}

func (m *memContractRepo) Create(_ context.Context, c *domain.Contract) error {
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.byID[c.ID] = &cp
	m.order = append(m.order, c.ID)
	return nil
}

func (m *memContractRepo) GetByID(_ context.Context, id string) (*domain.Contract, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.NotFoundf("contract %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memContractRepo) GetCurrentByRelationship(_ context.Context, relationshipID string) (*domain.Contract, error) {
	for i := len(m.order) - 1; i >= 0; i-- {
		c := m.byID[m.order[i]]
		if c.RelationshipID == relationshipID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memContractRepo) Update(_ context.Context, c *domain.Contract) error {
	if _, ok := m.byID[c.ID]; !ok {
		return domain.NotFoundf("contract %s not found", c.ID)
	}
	c.UpdatedAt = time.Now()
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memContractRepo) AddRevision(_ context.Context, rev *domain.ContractRevision) error {
	rev.CreatedAt = time.Now()
	m.revisions[rev.ContractID] = append(m.revisions[rev.ContractID], rev)
	return nil
}

func (m *memContractRepo) PendingRevision(_ context.Context, contractID string) (*domain.ContractRevision, error) {
	revs := m.revisions[contractID]
	for i := len(revs) - 1; i >= 0; i-- {
		if revs[i].Status == domain.RevisionPending {
			cp := *revs[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memContractRepo) UpdateRevision(_ context.Context, rev *domain.ContractRevision) error {
	revs := m.revisions[rev.ContractID]
	for i, r := range revs {
		if r.ID == rev.ID {
			cp := *rev
			revs[i] = &cp
			return nil
		}
	}
	return domain.NotFoundf("contract revision %s not found", rev.ID)
}

type memDocumentRepo struct {
	byID map[string]*domain.SupplierDocument
}

func newMemDocumentRepo() *memDocumentRepo {
	return &memDocumentRepo{byID: map[string]*domain.SupplierDocument{}}
}

func (m *memDocumentRepo) Upsert(_ context.Context, d *domain.SupplierDocument) error {
	for _, other := range m.byID {
		if other.SupplierID == d.SupplierID && other.Type == d.Type &&
			other.CompetenceMonth == d.CompetenceMonth && other.CompetenceYear == d.CompetenceYear {
			d.ID = other.ID
			d.CreatedAt = other.CreatedAt
			break
		}
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	d.UpdatedAt = time.Now()
	cp := *d
	m.byID[d.ID] = &cp
	return nil
}

func (m *memDocumentRepo) GetByID(_ context.Context, id string) (*domain.SupplierDocument, error) {
	d, ok := m.byID[id]
	if !ok {
		return nil, domain.NotFoundf("document %s not found", id)
	}
	cp := *d
	return &cp, nil
}

func (m *memDocumentRepo) List(_ context.Context, supplierID, docType string) ([]*domain.SupplierDocument, error) {
	var out []*domain.SupplierDocument
	for _, d := range m.byID {
		if d.SupplierID != supplierID {
			continue
		}
		if docType != "" && d.Type != docType {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memDocumentRepo) ListAll(_ context.Context) ([]*domain.SupplierDocument, error) {
	var out []*domain.SupplierDocument
	for _, d := range m.byID {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

type memUserRepo struct {
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}, byEmail: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return domain.Conflictf("a user with email %s already exists", u.Email)
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, domain.NotFoundf("user %s not found", id)
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.NotFoundf("user with email %s not found", email)
}

func (m *memUserRepo) Update(_ context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now()
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

type memCompanyRepo struct {
	byID map[string]*domain.Company
}

func newMemCompanyRepo() *memCompanyRepo {
	return &memCompanyRepo{byID: map[string]*domain.Company{}}
}

func (m *memCompanyRepo) Create(_ context.Context, c *domain.Company) error {
	for _, other := range m.byID {
		if other.TaxID == c.TaxID {
			return domain.Conflictf("a company with tax ID %s already exists", c.TaxID)
		}
	}
	c.CreatedAt = time.Now()
	m.byID[c.ID] = c
	return nil
}

func (m *memCompanyRepo) GetByID(_ context.Context, id string) (*domain.Company, error) {
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, domain.NotFoundf("company %s not found", id)
}

func (m *memCompanyRepo) ListSuppliers(_ context.Context) ([]*domain.Company, error) {
	var out []*domain.Company
	for _, c := range m.byID {
		if c.Kind == domain.CompanySupplier {
			out = append(out, c)
		}
	}
	return out, nil
}
