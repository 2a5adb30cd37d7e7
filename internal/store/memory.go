package store

import (
	"context"
	"sort"
	"sync"
)

// memoryStore keeps everything in maps under one mutex. It mirrors the
// sqlite driver's semantics closely enough for handler and alert-job
// tests.
type memoryStore struct {
	mu     sync.Mutex
	users  map[int64]User
	bills  map[int64][]Bill
	flags  map[int64]map[string]AlertFlags
	sent   map[sentKey]struct{}
	nextID int64
}

type sentKey struct {
	chatID int64
	billID string
	kind   string
	jdate  string
	uniq   string
}

// NewMemory returns an empty in-process store.
func NewMemory() Store {
	return &memoryStore{
		users: make(map[int64]User),
		bills: make(map[int64][]Bill),
		flags: make(map[int64]map[string]AlertFlags),
		sent:  make(map[sentKey]struct{}),
	}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) User(_ context.Context, chatID int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[chatID]
	if !ok {
		return User{ChatID: chatID}, nil
	}
	return u, nil
}

func (m *memoryStore) mutateUser(chatID int64, fn func(*User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[chatID]
	if !ok {
		u = User{ChatID: chatID}
	}
	fn(&u)
	m.users[chatID] = u
}

func (m *memoryStore) SetPending(_ context.Context, chatID int64, value string) error {
	m.mutateUser(chatID, func(u *User) { u.Pending = value })
	return nil
}

func (m *memoryStore) SetTempBill(_ context.Context, chatID int64, bill string) error {
	m.mutateUser(chatID, func(u *User) { u.TempBill = bill })
	return nil
}

func (m *memoryStore) SetHomeMsgID(_ context.Context, chatID int64, msgID int) error {
	m.mutateUser(chatID, func(u *User) { u.HomeMsgID = msgID })
	return nil
}

func (m *memoryStore) UpsertBill(_ context.Context, chatID int64, name, billID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.bills[chatID] {
		if b.Name == name {
			m.bills[chatID][i].BillID = billID
			m.ensureFlagsLocked(chatID, billID)
			return nil
		}
	}
	m.nextID++
	m.bills[chatID] = append(m.bills[chatID], Bill{
		ID: m.nextID, ChatID: chatID, Name: name, BillID: billID,
	})
	m.ensureFlagsLocked(chatID, billID)
	return nil
}

func (m *memoryStore) ensureFlagsLocked(chatID int64, billID string) {
	if m.flags[chatID] == nil {
		m.flags[chatID] = make(map[string]AlertFlags)
	}
	if _, ok := m.flags[chatID][billID]; !ok {
		m.flags[chatID][billID] = AlertFlags{}
	}
}

func (m *memoryStore) Bills(_ context.Context, chatID int64) ([]Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Bill, len(m.bills[chatID]))
	copy(out, m.bills[chatID])
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memoryStore) DeleteBill(_ context.Context, chatID int64, billID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owned := false
	kept := m.bills[chatID][:0]
	for _, b := range m.bills[chatID] {
		if b.BillID == billID {
			owned = true
			continue
		}
		kept = append(kept, b)
	}
	if !owned {
		return false, nil
	}
	m.bills[chatID] = kept
	delete(m.flags[chatID], billID)
	for k := range m.sent {
		if k.chatID == chatID && k.billID == billID {
			delete(m.sent, k)
		}
	}
	return true, nil
}

func (m *memoryStore) AlertFlags(_ context.Context, chatID int64, billID string) (AlertFlags, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flags[chatID][billID], nil
}

func (m *memoryStore) SetAlertFlag(_ context.Context, chatID int64, billID, kind string, on bool) error {
	if _, err := flagColumn(kind); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureFlagsLocked(chatID, billID)
	f := m.flags[chatID][billID]
	switch kind {
	case "1h":
		f.Hour = on
	case "10m":
		f.TenMin = on
	case "1201":
		f.Digest = on
	}
	m.flags[chatID][billID] = f
	return nil
}

func (m *memoryStore) ActiveSubscriptions(_ context.Context) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Subscription
	for chatID, bills := range m.bills {
		for _, b := range bills {
			f := m.flags[chatID][b.BillID]
			if !f.Any() {
				continue
			}
			out = append(out, Subscription{
				ChatID: chatID, Name: b.Name, BillID: b.BillID, Flags: f,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChatID != out[j].ChatID {
			return out[i].ChatID < out[j].ChatID
		}
		return out[i].BillID < out[j].BillID
	})
	return out, nil
}

func (m *memoryStore) MarkSent(_ context.Context, chatID int64, billID, kind, jdate, uniq string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := sentKey{chatID: chatID, billID: billID, kind: kind, jdate: jdate, uniq: uniq}
	if _, dup := m.sent[k]; dup {
		return false, nil
	}
	m.sent[k] = struct{}{}
	return true, nil
}

func (m *memoryStore) PurgeSentBefore(_ context.Context, jdate string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.sent {
		if k.jdate < jdate {
			delete(m.sent, k)
			n++
		}
	}
	return n, nil
}
