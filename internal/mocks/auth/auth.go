package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	domainauth "github.com/target/stockcam/internal/domain/auth"
	"github.com/target/stockcam/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.UserRecordStore = (*MemoryRecordStore)(nil)
	_ ports.KeyValueStore   = (*MemoryKVStore)(nil)
)

// MemoryRecordStore is an in-memory user record store for unit tests.
// Set FailWith to make every call return that error.
type MemoryRecordStore struct {
	mu       sync.Mutex
	records  map[string]domainauth.UserRecord
	FailWith error
	Now      func() time.Time
}

// NewMemoryRecordStore creates a new in-memory record store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		records: make(map[string]domainauth.UserRecord),
		Now:     time.Now,
	}
}

func (m *MemoryRecordStore) Get(_ context.Context, id string) (*domainauth.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, ports.ErrRecordNotFound
	}
	return &rec, nil
}

func (m *MemoryRecordStore) Set(_ context.Context, rec domainauth.UserRecord) (*domainauth.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	if rec.ID == "" {
		return nil, errors.New("record ID cannot be empty")
	}
	rec.Email = strings.ToLower(rec.Email)
	rec.UpdatedAt = m.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	m.records[rec.ID] = rec
	return &rec, nil
}

func (m *MemoryRecordStore) Merge(_ context.Context, id string, patch ports.RecordPatch) (*domainauth.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, ports.ErrRecordNotFound
	}
	patch.Apply(&rec)
	rec.UpdatedAt = m.Now()
	m.records[id] = rec
	return &rec, nil
}

func (m *MemoryRecordStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	delete(m.records, id)
	return nil
}

func (m *MemoryRecordStore) List(_ context.Context, in ports.ListUsersInput) (ports.UserPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return ports.UserPage{}, m.FailWith
	}
	sorted := m.sortedLocked()
	var page ports.UserPage
	for _, rec := range sorted {
		if in.Cursor != "" && rec.Email <= in.Cursor {
			continue
		}
		if in.Limit > 0 && len(page.Users) == in.Limit {
			page.NextCursor = page.Users[len(page.Users)-1].Email
			break
		}
		page.Users = append(page.Users, rec)
	}
	return page, nil
}

func (m *MemoryRecordStore) SearchByEmailPrefix(_ context.Context, prefix string, limit int) ([]domainauth.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	prefix = strings.ToLower(prefix)
	var out []domainauth.UserRecord
	for _, rec := range m.sortedLocked() {
		if !strings.HasPrefix(rec.Email, prefix) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryRecordStore) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return false, m.FailWith
	}
	email = strings.ToLower(email)
	for _, rec := range m.records {
		if rec.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// Put seeds a record directly, bypassing timestamps.
func (m *MemoryRecordStore) Put(rec domainauth.UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
}

// Len returns the number of stored records.
func (m *MemoryRecordStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MemoryRecordStore) sortedLocked() []domainauth.UserRecord {
	out := make([]domainauth.UserRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// MemoryKVStore is an in-memory key/value store for unit tests.
type MemoryKVStore struct {
	mu       sync.Mutex
	values   map[string]string
	FailWith error
}

// NewMemoryKVStore creates a new in-memory key/value store.
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{values: make(map[string]string)}
}

func (m *MemoryKVStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return "", false, m.FailWith
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKVStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.values[key] = value
	return nil
}

func (m *MemoryKVStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *MemoryKVStore) GetDel(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return "", false, m.FailWith
	}
	v, ok := m.values[key]
	delete(m.values, key)
	return v, ok, nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryKVStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
