// Package leadstest provides in-memory doubles for the leads gateway and its
// directories, shared by the package tests of the lead core.
package leadstest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"dealer_crm_backend/internal/leads/domain"
	"dealer_crm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// Store is an in-memory repository.Store. Errors can be injected per method name.
type Store struct {
	mu      sync.Mutex
	leads   map[uuid.UUID]repository.Lead
	history []repository.History
	clock   time.Time

	// Fail maps a method name (e.g. "AddHistory") to the error it returns.
	Fail map[string]error
}

func NewStore() *Store {
	return &Store{
		leads: make(map[uuid.UUID]repository.Lead),
		clock: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		Fail:  make(map[string]error),
	}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) failure(method string) error {
	return s.Fail[method]
}

func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// Put stores lead as-is, for test setup.
func (s *Store) Put(lead repository.Lead) repository.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Status == "" {
		lead.Status = domain.StatusNew
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = s.tick()
		lead.UpdatedAt = lead.CreatedAt
	}
	s.leads[lead.ID] = lead
	return lead
}

// Lead returns the stored lead.
func (s *Store) Lead(id uuid.UUID) (repository.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	return lead, ok
}

// Leads returns every stored lead.
func (s *Store) Leads() []repository.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		out = append(out, l)
	}
	return out
}

// History returns the audit rows of a lead in insertion order.
func (s *Store) History(leadID uuid.UUID) []repository.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.History, 0)
	for _, h := range s.history {
		if h.LeadID == leadID {
			out = append(out, h)
		}
	}
	return out
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := s.failure("InTx"); err != nil {
		return err
	}

	s.mu.Lock()
	leads := make(map[uuid.UUID]repository.Lead, len(s.leads))
	for k, v := range s.leads {
		leads[k] = v
	}
	history := append([]repository.History(nil), s.history...)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.leads = leads
		s.history = history
		s.mu.Unlock()
		return err
	}
	return nil
}

func inScope(lead repository.Lead, scope repository.Scope) bool {
	if scope.TenantID == nil {
		return true
	}
	return lead.TenantID != nil && *lead.TenantID == *scope.TenantID
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID, scope repository.Scope) (repository.Lead, error) {
	if err := s.failure("GetByID"); err != nil {
		return repository.Lead{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok || !inScope(lead, scope) {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (s *Store) List(_ context.Context, params repository.ListParams) ([]repository.Lead, int, error) {
	if err := s.failure("List"); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]repository.Lead, 0)
	for _, l := range s.leads {
		if !inScope(l, params.Scope) {
			continue
		}
		if params.Status != nil && l.Status != *params.Status {
			continue
		}
		if params.Source != nil && l.Source != *params.Source {
			continue
		}
		if params.ManagerID != nil && (l.AssignedManagerID == nil || *l.AssignedManagerID != *params.ManagerID) {
			continue
		}
		if q := strings.ToLower(strings.TrimSpace(params.Search)); q != "" &&
			!strings.Contains(strings.ToLower(l.Name), q) && !strings.Contains(l.Phone, q) && !strings.Contains(strings.ToLower(l.City), q) {
			continue
		}
		matched = append(matched, l)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	start := min(params.Offset, total)
	end := total
	if params.Limit > 0 {
		end = min(start+params.Limit, total)
	}
	return matched[start:end], total, nil
}

func (s *Store) CountByStatus(_ context.Context, scope repository.Scope) (map[domain.Status]int, error) {
	if err := s.failure("CountByStatus"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[domain.Status]int{}
	for _, st := range domain.AllStatuses() {
		counts[st] = 0
	}
	for _, l := range s.leads {
		if inScope(l, scope) {
			counts[l.Status]++
		}
	}
	return counts, nil
}

func (s *Store) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	if err := s.failure("Create"); err != nil {
		return repository.Lead{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	lead := repository.Lead{
		ID:                uuid.New(),
		Name:              params.Name,
		Phone:             params.Phone,
		City:              params.City,
		Region:            params.Region,
		TenantID:          params.TenantID,
		AssignedManagerID: params.AssignedManagerID,
		Status:            domain.StatusNew,
		Source:            params.Source,
		Comment:           params.Comment,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.leads[lead.ID] = lead
	return lead, nil
}

func (s *Store) Update(_ context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	if err := s.failure("Update"); err != nil {
		return repository.Lead{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.Name = params.Name
	lead.Phone = params.Phone
	lead.City = params.City
	lead.Region = params.Region
	lead.TenantID = params.TenantID
	lead.AssignedManagerID = params.AssignedManagerID
	lead.Comment = params.Comment
	applyFields(&lead, params.Fields)
	lead.UpdatedAt = s.tick()
	s.leads[id] = lead
	return lead, nil
}

func (s *Store) AssignManagerIfUnassigned(_ context.Context, id uuid.UUID, managerID uuid.UUID) (repository.Lead, error) {
	if err := s.failure("AssignManagerIfUnassigned"); err != nil {
		return repository.Lead{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if lead.AssignedManagerID != nil {
		return repository.Lead{}, repository.ErrAlreadyAssigned
	}
	lead.AssignedManagerID = &managerID
	lead.UpdatedAt = s.tick()
	s.leads[id] = lead
	return lead, nil
}

func (s *Store) SetStatusByManager(_ context.Context, id uuid.UUID, managerID uuid.UUID, fields domain.StatusFields) (repository.Lead, error) {
	if err := s.failure("SetStatusByManager"); err != nil {
		return repository.Lead{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if lead.AssignedManagerID != nil && *lead.AssignedManagerID != managerID {
		return repository.Lead{}, repository.ErrTakenByOther
	}
	lead.AssignedManagerID = &managerID
	applyFields(&lead, fields)
	lead.UpdatedAt = s.tick()
	s.leads[id] = lead
	return lead, nil
}

func (s *Store) MarkSentToTelegram(_ context.Context, id uuid.UUID) (bool, error) {
	if err := s.failure("MarkSentToTelegram"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok || lead.SentToTelegram {
		return false, nil
	}
	lead.SentToTelegram = true
	s.leads[id] = lead
	return true, nil
}

func (s *Store) AddHistory(_ context.Context, params repository.AddHistoryParams) (repository.History, error) {
	if err := s.failure("AddHistory"); err != nil {
		return repository.History{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h := repository.History{
		ID:        uuid.New(),
		LeadID:    params.LeadID,
		ChangedBy: params.ChangedBy,
		OldStatus: params.OldStatus,
		NewStatus: params.NewStatus,
		Comment:   params.Comment,
		CreatedAt: s.tick(),
	}
	s.history = append(s.history, h)
	return h, nil
}

func (s *Store) ListHistory(_ context.Context, leadID uuid.UUID) ([]repository.History, error) {
	if err := s.failure("ListHistory"); err != nil {
		return nil, err
	}
	return s.History(leadID), nil
}

func applyFields(lead *repository.Lead, fields domain.StatusFields) {
	lead.Status = fields.Status
	lead.RejectionReason = fields.RejectionReason
	lead.ConversionValue = fields.ConversionValue
	lead.ClosedAt = fields.ClosedAt
}
