// Package repotest provides in-memory repository implementations for tests.
// They follow the pgx repositories' contracts, including pgx.ErrNoRows for
// missing rows and all-or-nothing Mutate semantics.
package repotest

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/repository"
)

// ErrDuplicate stands in for a unique constraint violation.
var ErrDuplicate = errors.New("duplicate key value violates unique constraint")

func owned(o *repository.OwnershipFilter, agentID, teamID *string) bool {
	if o == nil {
		return true
	}
	if agentID != nil && *agentID == o.AgentID {
		return true
	}
	return o.TeamID != nil && teamID != nil && *teamID == *o.TeamID
}

func contains[T comparable](set []T, v T) bool {
	return len(set) == 0 || slices.Contains(set, v)
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func matches(term *string, fields ...string) bool {
	if term == nil || strings.TrimSpace(*term) == "" {
		return true
	}
	needle := strings.ToLower(strings.TrimSpace(*term))
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Tickets is an in-memory TicketRepository.
type Tickets struct {
	mu   sync.Mutex
	rows map[string]domain.Ticket
}

// NewTickets returns an empty store.
func NewTickets(seed ...domain.Ticket) *Tickets {
	s := &Tickets{rows: map[string]domain.Ticket{}}
	for _, t := range seed {
		s.rows[t.ID] = t
	}
	return s
}

func (s *Tickets) Create(_ context.Context, t *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	s.rows[t.ID] = *t
	return nil
}

func (s *Tickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (s *Tickets) ListWithFilter(_ context.Context, f repository.TicketFilter) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Ticket{}
	for _, t := range s.rows {
		if !owned(f.Owner, t.AgentID, t.TeamID) ||
			!contains(f.Statuses, t.Status) || !contains(f.Priorities, t.Priority) || !contains(f.Types, t.TicketType) ||
			!matches(f.SearchTerm, t.Title, t.Description, t.ExternalKey) {
			continue
		}
		if f.QueueID != nil && (t.QueueID == nil || *t.QueueID != *f.QueueID) {
			continue
		}
		if f.AgentID != nil && (t.AgentID == nil || *t.AgentID != *f.AgentID) {
			continue
		}
		if f.ContactID != nil && (t.ContactID == nil || *t.ContactID != *f.ContactID) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return window(out, f.Limit, f.Offset), nil
}

func (s *Tickets) Mutate(_ context.Context, id string, fn repository.TicketMutator) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if err := fn(&t); err != nil {
		return nil, err
	}
	t.UpdatedAt = time.Now().UTC()
	s.rows[id] = t
	return &t, nil
}

// Leads is an in-memory LeadRepository.
type Leads struct {
	mu   sync.Mutex
	rows map[string]domain.Lead
}

// NewLeads returns a store seeded with leads.
func NewLeads(seed ...domain.Lead) *Leads {
	s := &Leads{rows: map[string]domain.Lead{}}
	for _, l := range seed {
		s.rows[l.ID] = l
	}
	return s
}

func (s *Leads) Create(_ context.Context, l *domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.StageHistory == nil {
		l.StageHistory = []domain.StageHistoryEntry{}
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	s.rows[l.ID] = *l
	return nil
}

func (s *Leads) GetByID(_ context.Context, id string) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	l.StageHistory = slices.Clone(l.StageHistory)
	return &l, nil
}

func (s *Leads) ListWithFilter(_ context.Context, f repository.LeadFilter) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Lead{}
	for _, l := range s.rows {
		company := ""
		if l.Company != nil {
			company = *l.Company
		}
		if !owned(f.Owner, l.AgentID, l.TeamID) || !contains(f.Stages, l.Stage) || !matches(f.SearchTerm, l.Name, company) {
			continue
		}
		if f.Kind != nil && l.Kind != *f.Kind {
			continue
		}
		if f.AgentID != nil && (l.AgentID == nil || *l.AgentID != *f.AgentID) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return window(out, f.Limit, f.Offset), nil
}

func (s *Leads) Mutate(_ context.Context, id string, fn repository.LeadMutator) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	l.StageHistory = slices.Clone(l.StageHistory)
	if err := fn(&l); err != nil {
		return nil, err
	}
	l.UpdatedAt = time.Now().UTC()
	s.rows[id] = l
	return &l, nil
}

// Referrals is an in-memory ReferralRepository.
type Referrals struct {
	mu   sync.Mutex
	rows map[string]domain.Referral
}

// NewReferrals returns a store seeded with referrals.
func NewReferrals(seed ...domain.Referral) *Referrals {
	s := &Referrals{rows: map[string]domain.Referral{}}
	for _, r := range seed {
		s.rows[r.ID] = r
	}
	return s
}

func (s *Referrals) Create(_ context.Context, r *domain.Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StageHistory == nil {
		r.StageHistory = []domain.StageHistoryEntry{}
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	s.rows[r.ID] = *r
	return nil
}

func (s *Referrals) GetByID(_ context.Context, id string) (*domain.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	r.StageHistory = slices.Clone(r.StageHistory)
	return &r, nil
}

func (s *Referrals) ListWithFilter(_ context.Context, f repository.ReferralFilter) ([]domain.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Referral{}
	for _, r := range s.rows {
		if !owned(f.Owner, r.AgentID, r.TeamID) || !contains(f.Stages, r.Stage) || !contains(f.CommissionStatuses, r.CommissionStatus) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return window(out, f.Limit, f.Offset), nil
}

func (s *Referrals) Mutate(_ context.Context, id string, fn repository.ReferralMutator) (*domain.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	r.StageHistory = slices.Clone(r.StageHistory)
	if err := fn(&r); err != nil {
		return nil, err
	}
	r.UpdatedAt = time.Now().UTC()
	s.rows[id] = r
	return &r, nil
}

// Agents is an in-memory AgentRepository.
type Agents struct {
	mu   sync.Mutex
	rows map[string]domain.Agent
}

// NewAgents returns a store seeded with agents.
func NewAgents(seed ...domain.Agent) *Agents {
	s := &Agents{rows: map[string]domain.Agent{}}
	for _, a := range seed {
		s.rows[a.ID] = a
	}
	return s
}

func (s *Agents) Create(_ context.Context, a *domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rows {
		if strings.EqualFold(existing.Email, a.Email) {
			return ErrDuplicate
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = strings.ToLower(a.Email)
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	s.rows[a.ID] = *a
	return nil
}

func (s *Agents) Update(_ context.Context, a *domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	a.UpdatedAt = time.Now().UTC()
	s.rows[a.ID] = *a
	return nil
}

func (s *Agents) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (s *Agents) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.rows {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *Agents) List(_ context.Context, f repository.AgentFilter) ([]domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Agent{}
	for _, a := range s.rows {
		if !contains(f.AgentTypes, a.AgentType) || (f.ActiveOnly && !a.Active) || !matches(f.SearchTerm, a.Name, a.Email) {
			continue
		}
		if f.TeamID != nil && (a.TeamID == nil || *a.TeamID != *f.TeamID) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return window(out, f.Limit, f.Offset), nil
}

// Activities is an in-memory ActivityRepository.
type Activities struct {
	mu   sync.Mutex
	rows map[string]domain.Activity
}

// NewActivities returns an empty store.
func NewActivities(seed ...domain.Activity) *Activities {
	s := &Activities{rows: map[string]domain.Activity{}}
	for _, a := range seed {
		s.rows[a.ID] = a
	}
	return s
}

func (s *Activities) Create(_ context.Context, a *domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.rows[a.ID] = *a
	return nil
}

func (s *Activities) GetByID(_ context.Context, id string) (*domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (s *Activities) ListByRecord(_ context.Context, recordType domain.RecordType, recordID string) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Activity{}
	for _, a := range s.rows {
		if a.RecordType == recordType && a.RecordID == recordID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp().After(out[j].Timestamp()) })
	return out, nil
}

func (s *Activities) ListTasks(_ context.Context, f repository.TaskFilter) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Activity{}
	for _, a := range s.rows {
		if a.Type != domain.ActivityTask || a.AgentID != f.AgentID {
			continue
		}
		if f.Completed != nil && a.Completed != *f.Completed {
			continue
		}
		if f.ScheduledTo != nil && (a.ScheduledFor == nil || a.ScheduledFor.After(*f.ScheduledTo)) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp().Before(out[j].Timestamp()) })
	return window(out, f.Limit, f.Offset), nil
}

func (s *Activities) Complete(_ context.Context, id string, at time.Time) (*domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	a.Completed = true
	if a.CompletedAt == nil {
		a.CompletedAt = &at
	}
	s.rows[id] = a
	return &a, nil
}

// Notifications is an in-memory NotificationRepository.
type Notifications struct {
	mu   sync.Mutex
	rows []domain.Notification
}

// NewNotifications returns an empty store.
func NewNotifications() *Notifications {
	return &Notifications{}
}

// All returns every stored notification in insertion order.
func (s *Notifications) All() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rows)
}

func (s *Notifications) Create(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	s.rows = append(s.rows, *n)
	return nil
}

func (s *Notifications) ListByAgent(_ context.Context, agentID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Notification{}
	for i := len(s.rows) - 1; i >= 0; i-- {
		n := s.rows[i]
		if n.AgentID != agentID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	return window(out, limit, 0), nil
}

func (s *Notifications) CountUnread(_ context.Context, agentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.rows {
		if n.AgentID == agentID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *Notifications) MarkRead(_ context.Context, agentID, id string, at time.Time) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id && s.rows[i].AgentID == agentID {
			s.rows[i].Read = true
			if s.rows[i].ReadAt == nil {
				s.rows[i].ReadAt = &at
			}
			n := s.rows[i]
			return &n, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *Notifications) MarkAllRead(_ context.Context, agentID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for i := range s.rows {
		if s.rows[i].AgentID == agentID && !s.rows[i].Read {
			s.rows[i].Read = true
			s.rows[i].ReadAt = &at
			count++
		}
	}
	return count, nil
}

// Queues is an in-memory QueueRepository.
type Queues struct {
	mu   sync.Mutex
	rows []domain.Queue
}

// NewQueues returns a store seeded with queues.
func NewQueues(seed ...domain.Queue) *Queues {
	return &Queues{rows: slices.Clone(seed)}
}

func (s *Queues) Create(_ context.Context, q *domain.Queue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	s.rows = append(s.rows, *q)
	return nil
}

func (s *Queues) GetByID(_ context.Context, id string) (*domain.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.rows {
		if q.ID == id {
			return &q, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *Queues) List(_ context.Context, activeOnly bool) ([]domain.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Queue{}
	for _, q := range s.rows {
		if activeOnly && !q.Active {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// Customers is an in-memory CustomerRepository.
type Customers struct {
	mu        sync.Mutex
	contacts  []domain.Contact
	contracts []domain.Contract
}

// NewCustomers returns a store seeded with contacts and contracts.
func NewCustomers(contacts []domain.Contact, contracts []domain.Contract) *Customers {
	return &Customers{contacts: slices.Clone(contacts), contracts: slices.Clone(contracts)}
}

func (s *Customers) CreateContact(_ context.Context, c *domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Email = strings.ToLower(c.Email)
	c.CreatedAt = time.Now().UTC()
	s.contacts = append(s.contacts, *c)
	return nil
}

func (s *Customers) find(match func(domain.Contact) bool) (*domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contacts {
		if match(c) {
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *Customers) GetContactByID(_ context.Context, id string) (*domain.Contact, error) {
	return s.find(func(c domain.Contact) bool { return c.ID == id })
}

func (s *Customers) GetContactByEmail(_ context.Context, email string) (*domain.Contact, error) {
	return s.find(func(c domain.Contact) bool { return strings.EqualFold(c.Email, email) })
}

func (s *Customers) GetContactByPhone(_ context.Context, phone string) (*domain.Contact, error) {
	return s.find(func(c domain.Contact) bool { return c.Phone != nil && *c.Phone == phone })
}

func (s *Customers) ListContracts(_ context.Context, contactID string) ([]domain.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Contract{}
	for _, c := range s.contracts {
		if c.ContactID == contactID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Proposals is an in-memory ProposalRepository.
type Proposals struct {
	mu   sync.Mutex
	rows map[string]domain.Proposal
}

// NewProposals returns a store seeded with proposals.
func NewProposals(seed ...domain.Proposal) *Proposals {
	s := &Proposals{rows: map[string]domain.Proposal{}}
	for _, p := range seed {
		s.rows[p.ID] = p
	}
	return s
}

func (s *Proposals) Create(_ context.Context, p *domain.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	s.rows[p.ID] = *p
	return nil
}

func (s *Proposals) byToken(token string) (domain.Proposal, bool) {
	for _, p := range s.rows {
		if p.PublicToken == token {
			return p, true
		}
	}
	return domain.Proposal{}, false
}

func (s *Proposals) GetByToken(_ context.Context, token string) (*domain.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byToken(token)
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (s *Proposals) ListByLead(_ context.Context, leadID string) ([]domain.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Proposal{}
	for _, p := range s.rows {
		if p.LeadID == leadID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Proposals) MutateByToken(_ context.Context, token string, fn repository.ProposalMutator) (*domain.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byToken(token)
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if err := fn(&p); err != nil {
		return nil, err
	}
	s.rows[p.ID] = p
	return &p, nil
}

// Knowledge is an in-memory KnowledgeRepository.
type Knowledge struct {
	mu         sync.Mutex
	categories []domain.KBCategory
	articles   map[string]domain.KBArticle
}

// NewKnowledge returns a store seeded with articles.
func NewKnowledge(seed ...domain.KBArticle) *Knowledge {
	s := &Knowledge{articles: map[string]domain.KBArticle{}}
	for _, a := range seed {
		s.articles[a.ID] = a
	}
	return s
}

func (s *Knowledge) CreateCategory(_ context.Context, c *domain.KBCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	s.categories = append(s.categories, *c)
	return nil
}

func (s *Knowledge) ListCategories(_ context.Context) ([]domain.KBCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.categories)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	if out == nil {
		out = []domain.KBCategory{}
	}
	return out, nil
}

func (s *Knowledge) CreateArticle(_ context.Context, a *domain.KBArticle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	s.articles[a.ID] = *a
	return nil
}

func (s *Knowledge) GetArticle(_ context.Context, id string) (*domain.KBArticle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (s *Knowledge) ListArticles(_ context.Context, f repository.ArticleFilter) ([]domain.KBArticle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.KBArticle{}
	for _, a := range s.articles {
		if f.PublishedOnly && !a.Published {
			continue
		}
		if f.CategoryID != nil && (a.CategoryID == nil || *a.CategoryID != *f.CategoryID) {
			continue
		}
		if f.Tag != nil && *f.Tag != "" && !slices.Contains(a.Tags, *f.Tag) {
			continue
		}
		if f.NeedsReview != nil && a.NeedsReview != *f.NeedsReview {
			continue
		}
		if !matches(f.SearchTerm, a.Title, a.Content) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Helpful > out[j].Helpful })
	return window(out, f.Limit, f.Offset), nil
}

func (s *Knowledge) IncrementViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return nil
	}
	a.Views++
	s.articles[id] = a
	return nil
}

func (s *Knowledge) MutateArticle(_ context.Context, id string, fn repository.ArticleMutator) (*domain.KBArticle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	a.Tags = slices.Clone(a.Tags)
	if err := fn(&a); err != nil {
		return nil, err
	}
	a.UpdatedAt = time.Now().UTC()
	s.articles[id] = a
	return &a, nil
}

// Settings is an in-memory SettingsRepository.
type Settings struct {
	mu  sync.Mutex
	doc domain.SystemSettings
}

// NewSettings returns an empty settings document.
func NewSettings() *Settings {
	return &Settings{doc: domain.SystemSettings{Values: map[string]any{}}}
}

func (s *Settings) Get(_ context.Context) (*domain.SystemSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc
	return &doc, nil
}

func (s *Settings) Put(_ context.Context, values map[string]any, updatedBy string) (*domain.SystemSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	by := updatedBy
	s.doc = domain.SystemSettings{Values: values, UpdatedBy: &by, UpdatedAt: time.Now().UTC()}
	doc := s.doc
	return &doc, nil
}

var (
	_ repository.TicketRepository       = (*Tickets)(nil)
	_ repository.LeadRepository         = (*Leads)(nil)
	_ repository.ReferralRepository     = (*Referrals)(nil)
	_ repository.AgentRepository        = (*Agents)(nil)
	_ repository.ActivityRepository     = (*Activities)(nil)
	_ repository.NotificationRepository = (*Notifications)(nil)
	_ repository.QueueRepository        = (*Queues)(nil)
	_ repository.CustomerRepository     = (*Customers)(nil)
	_ repository.ProposalRepository     = (*Proposals)(nil)
	_ repository.KnowledgeRepository    = (*Knowledge)(nil)
	_ repository.SettingsRepository     = (*Settings)(nil)
)
