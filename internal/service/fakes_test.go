package service_test

import (
	"sort"
	"strings"
	"sync"
	"time"

	"cataid-backend/internal/catalog"
	"cataid-backend/internal/db/query"
	"cataid-backend/internal/model"
	"cataid-backend/internal/repository"
	"cataid-backend/internal/workflow"
)

type memoryStore struct {
	mu          sync.Mutex
	assessments map[uint]model.Assessment
	candidates  map[uint]model.Candidate
	staff       map[uint]model.Staff
	nextID      uint
	clock       time.Time
	updates     int
	lastFilter  *query.Filter
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		assessments: map[uint]model.Assessment{},
		candidates:  map[uint]model.Candidate{},
		staff:       map[uint]model.Staff{},
		clock:       time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (m *memoryStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) tick() time.Time {
	m.clock = m.clock.Add(time.Hour)
	return m.clock
}

type fakeAssessments struct{ *memoryStore }

func (f fakeAssessments) CreateAssessment(a *model.Assessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = f.id()
	a.CreatedAt = f.tick()
	a.UpdatedAt = a.CreatedAt
	f.assessments[a.ID] = *a
	return nil
}

func (f fakeAssessments) GetAssessmentByID(id uint) (*model.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assessments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if c, ok := f.candidates[a.CandidateID]; ok {
		a.Candidate = &c
	}
	return &a, nil
}

func (f fakeAssessments) UpdateAssessment(a *model.Assessment, from workflow.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.assessments[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Status != from {
		return repository.ErrConflict
	}
	row := *a
	row.Candidate = nil
	row.UpdatedAt = f.tick()
	f.assessments[a.ID] = row
	f.updates++
	return nil
}

func (f fakeAssessments) ListAssessments(filter *query.Filter, limit, offset int) ([]model.Assessment, error) {
	f.mu.Lock()
	f.lastFilter = filter
	f.mu.Unlock()
	all := f.sorted(func(model.Assessment) bool { return true })
	if offset > len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (f fakeAssessments) ListByCandidate(candidateID uint, statuses ...workflow.Status) ([]model.Assessment, error) {
	return f.sorted(func(a model.Assessment) bool {
		if a.CandidateID != candidateID {
			return false
		}
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if a.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (f fakeAssessments) CountByStatus() (map[workflow.Status]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[workflow.Status]int64{}
	for _, s := range workflow.Statuses() {
		out[s] = 0
	}
	for _, a := range f.assessments {
		out[a.Status]++
	}
	return out, nil
}

func (f fakeAssessments) sorted(keep func(model.Assessment) bool) []model.Assessment {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Assessment
	for _, a := range f.assessments {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type fakeCandidates struct{ *memoryStore }

func (f fakeCandidates) CreateCandidate(c *model.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.id()
	f.candidates[c.ID] = *c
	return nil
}

func (f fakeCandidates) GetCandidateByID(id uint) (*model.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.candidates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

type fakeStaff struct{ *memoryStore }

func (f fakeStaff) CreateStaff(s *model.Staff) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = f.id()
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	f.staff[s.ID] = *s
	return nil
}

func (f fakeStaff) GetStaffByID(id uint) (*model.Staff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.staff[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (f fakeStaff) GetStaffByEmail(email string) (*model.Staff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, s := range f.staff {
		if s.Email == email {
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func testCatalog() *catalog.Catalog {
	cat, err := catalog.New("2024.1", []catalog.Section{
		{Category: "Motor Skills", MaxScore: 3, Questions: []catalog.Question{
			{ID: 1, Text: "Can grip a pen"},
			{ID: 2, Text: "Can fold paper"},
			{ID: 3, Text: "Can cut with scissors"},
		}},
		{Category: "Communication", MaxScore: 3, Questions: []catalog.Question{
			{ID: 4, Text: "Responds to name"},
		}},
	})
	if err != nil {
		panic(err)
	}
	return cat
}

func testLibrary() *catalog.Library {
	return catalog.NewLibrary(map[string][]string{
		"Motor Skills":  {"Use adaptive grips", "Practice fine motor tasks daily", "Refer for occupational therapy"},
		"Communication": {"Use picture cards"},
	})
}
