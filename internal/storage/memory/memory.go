// Package memory holds in-memory implementations of the svcwatch persistence
// interfaces. They back the handler tests and the dev server; nothing
// survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	svcwatch "github.com/svcwatch/svcwatch"
	"github.com/svcwatch/svcwatch/internal/transfer"
)

// Store bundles the in-memory repositories over one shared dataset, shaped
// like the postgres Store so the two swap cleanly in cmd/server.
type Store struct {
	Users     *UserStore
	Services  *ServiceStore
	Configs   *ConfigStore
	Logs      *LogStore
	TempUsers *TempUserStore
}

func New() *Store {
	d := &data{
		users:        map[string]*svcwatch.UserRecord{},
		services:     map[string]*svcwatch.ServiceRecord{},
		associations: map[string]map[string]bool{},
		configs:      map[string]*svcwatch.ServiceConfig{},
		logs:         map[string][]svcwatch.ServiceLogEntry{},
		tempUsers:    map[string]*transfer.TempUser{},
	}
	return &Store{
		Users:     &UserStore{d: d},
		Services:  &ServiceStore{d: d},
		Configs:   &ConfigStore{d: d},
		Logs:      &LogStore{d: d},
		TempUsers: &TempUserStore{d: d},
	}
}

type data struct {
	mu sync.RWMutex

	users        map[string]*svcwatch.UserRecord
	services     map[string]*svcwatch.ServiceRecord
	associations map[string]map[string]bool // userID -> serviceID set
	configs      map[string]*svcwatch.ServiceConfig
	logs         map[string][]svcwatch.ServiceLogEntry
	tempUsers    map[string]*transfer.TempUser

	nextLogID int64
}

var (
	_ svcwatch.UserDirectory      = (*UserStore)(nil)
	_ svcwatch.ServiceStore       = (*ServiceStore)(nil)
	_ svcwatch.ServiceConfigStore = (*ConfigStore)(nil)
	_ svcwatch.ServiceLogStore    = (*LogStore)(nil)
	_ transfer.Store              = (*TempUserStore)(nil)
)

// UserStore implements svcwatch.UserDirectory.
type UserStore struct {
	d *data
}

func (s *UserStore) GetByID(_ context.Context, id string) (*svcwatch.UserRecord, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	user, ok := s.d.users[id]
	if !ok {
		return nil, svcwatch.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*svcwatch.UserRecord, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, user := range s.d.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, svcwatch.ErrUserNotFound
}

func (s *UserStore) List(_ context.Context, offset, limit int) ([]svcwatch.UserRecord, int, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	all := make([]svcwatch.UserRecord, 0, len(s.d.users))
	for _, user := range s.d.users {
		all = append(all, *user)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return page(all, offset, limit), len(all), nil
}

func (s *UserStore) Create(_ context.Context, user *svcwatch.UserRecord) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, existing := range s.d.users {
		if existing.Email == user.Email {
			return svcwatch.ErrEmailExists
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = time.Now()
	clone := *user
	s.d.users[user.ID] = &clone
	return nil
}

func (s *UserStore) Update(_ context.Context, user *svcwatch.UserRecord) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.users[user.ID]; !ok {
		return svcwatch.ErrUserNotFound
	}
	for id, existing := range s.d.users {
		if id != user.ID && existing.Email == user.Email {
			return svcwatch.ErrEmailExists
		}
	}
	user.UpdatedAt = time.Now()
	clone := *user
	s.d.users[user.ID] = &clone
	return nil
}

func (s *UserStore) Delete(_ context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.users[id]; !ok {
		return svcwatch.ErrUserNotFound
	}
	delete(s.d.users, id)
	delete(s.d.associations, id)
	return nil
}

// ServiceStore implements svcwatch.ServiceStore.
type ServiceStore struct {
	d *data
}

func (s *ServiceStore) IsAssociated(_ context.Context, userID, serviceID string) (bool, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	if _, ok := s.d.services[serviceID]; !ok {
		return false, svcwatch.ErrServiceNotFound
	}
	return s.d.associations[userID][serviceID], nil
}

func (s *ServiceStore) List(_ context.Context, offset, limit int) ([]svcwatch.ServiceRecord, int, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	all := s.d.sortedServices(nil)
	return page(all, offset, limit), len(all), nil
}

func (s *ServiceStore) ListByUser(_ context.Context, userID string, offset, limit int) ([]svcwatch.ServiceRecord, int, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	all := s.d.sortedServices(func(id string) bool { return s.d.associations[userID][id] })
	return page(all, offset, limit), len(all), nil
}

func (s *ServiceStore) GetByID(_ context.Context, id string) (*svcwatch.ServiceRecord, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	service, ok := s.d.services[id]
	if !ok {
		return nil, svcwatch.ErrServiceNotFound
	}
	clone := *service
	return &clone, nil
}

func (s *ServiceStore) Create(_ context.Context, service *svcwatch.ServiceRecord) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, existing := range s.d.services {
		if existing.Name == service.Name || existing.SubName == service.SubName {
			return svcwatch.ErrServiceExists
		}
	}
	if service.CreatedAt.IsZero() {
		service.CreatedAt = time.Now()
	}
	clone := *service
	s.d.services[service.ID] = &clone
	return nil
}

func (s *ServiceStore) Delete(_ context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.services[id]; !ok {
		return svcwatch.ErrServiceNotFound
	}
	delete(s.d.services, id)
	delete(s.d.configs, id)
	delete(s.d.logs, id)
	for _, set := range s.d.associations {
		delete(set, id)
	}
	return nil
}

func (s *ServiceStore) Users(_ context.Context, serviceID string) ([]svcwatch.UserRecord, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	if _, ok := s.d.services[serviceID]; !ok {
		return nil, svcwatch.ErrServiceNotFound
	}
	var users []svcwatch.UserRecord
	for userID, set := range s.d.associations {
		if set[serviceID] {
			if user, ok := s.d.users[userID]; ok {
				users = append(users, *user)
			}
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *ServiceStore) UserServices(_ context.Context, userID string) ([]svcwatch.ServiceRecord, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	return s.d.sortedServices(func(id string) bool { return s.d.associations[userID][id] }), nil
}

func (s *ServiceStore) ReplaceUserServices(_ context.Context, userID string, serviceIDs []string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, id := range serviceIDs {
		if _, ok := s.d.services[id]; !ok {
			return svcwatch.ErrServiceNotFound
		}
	}
	set := map[string]bool{}
	for _, id := range serviceIDs {
		set[id] = true
	}
	s.d.associations[userID] = set
	return nil
}

// Associate links one user to one service, a convenience for tests.
func (s *ServiceStore) Associate(userID, serviceID string) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if s.d.associations[userID] == nil {
		s.d.associations[userID] = map[string]bool{}
	}
	s.d.associations[userID][serviceID] = true
}

func (d *data) sortedServices(keep func(id string) bool) []svcwatch.ServiceRecord {
	all := make([]svcwatch.ServiceRecord, 0, len(d.services))
	for id, service := range d.services {
		if keep != nil && !keep(id) {
			continue
		}
		all = append(all, *service)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all
}

// ConfigStore implements svcwatch.ServiceConfigStore.
type ConfigStore struct {
	d *data
}

func (s *ConfigStore) GetConfig(_ context.Context, serviceID string) (*svcwatch.ServiceConfig, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	config, ok := s.d.configs[serviceID]
	if !ok {
		return nil, svcwatch.ErrServiceNotFound
	}
	clone := *config
	return &clone, nil
}

func (s *ConfigStore) UpsertConfig(_ context.Context, serviceID string, config *svcwatch.ServiceConfig) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	clone := *config
	s.d.configs[serviceID] = &clone
	return nil
}

// LogStore implements svcwatch.ServiceLogStore.
type LogStore struct {
	d *data
}

func (s *LogStore) Logs(_ context.Context, serviceID string, offset, limit int) ([]svcwatch.ServiceLogEntry, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	entries := s.d.logs[serviceID]
	// Newest first, matching the SQL implementation.
	reversed := make([]svcwatch.ServiceLogEntry, len(entries))
	for i, entry := range entries {
		reversed[len(entries)-1-i] = entry
	}
	return page(reversed, offset, limit), nil
}

func (s *LogStore) AppendLog(_ context.Context, serviceID string, entry *svcwatch.ServiceLogEntry) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.nextLogID++
	entry.ID = s.d.nextLogID
	entry.ServiceID = serviceID
	s.d.logs[serviceID] = append(s.d.logs[serviceID], *entry)
	return nil
}

// TempUserStore implements transfer.Store.
type TempUserStore struct {
	d *data
}

func (s *TempUserStore) Create(_ context.Context, user *transfer.TempUser) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	clone := *user
	s.d.tempUsers[user.ID] = &clone
	return nil
}

func (s *TempUserStore) GetByID(_ context.Context, id string) (*transfer.TempUser, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	user, ok := s.d.tempUsers[id]
	if !ok {
		return nil, transfer.ErrTempUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *TempUserStore) GetByUsername(_ context.Context, username string) (*transfer.TempUser, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, user := range s.d.tempUsers {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, transfer.ErrTempUserNotFound
}

func (s *TempUserStore) Delete(_ context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.tempUsers[id]; !ok {
		return transfer.ErrTempUserNotFound
	}
	delete(s.d.tempUsers, id)
	return nil
}

func page[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]T, end-offset)
	copy(out, all[offset:end])
	return out
}
