package registrations

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// fakeStore is an in-memory Repository. Transactions are serialized by txMu,
// which stands in for the row lock taken by LockEvent, and their writes are
// applied only on Commit.
type fakeStore struct {
	txMu sync.Mutex

	mu         sync.Mutex
	events     map[string]EventSnapshot
	users      map[string]Participant
	regs       map[string]Registration
	notices    []Notice
	enqueueErr error
	commits    int
	rollbacks  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events: make(map[string]EventSnapshot),
		users:  make(map[string]Participant),
		regs:   make(map[string]Registration),
	}
}

func (s *fakeStore) repo() *fakeRepo { return &fakeRepo{store: s} }

func (s *fakeStore) addUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = Participant{ID: id, Username: "user-" + id, Email: id + "@example.com", FirstName: "F" + id}
}

func (s *fakeStore) confirmedCount(eventID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.regs {
		if r.EventID == eventID && r.Status == StatusConfirmed {
			n++
		}
	}
	return n
}

func (s *fakeStore) committedNotices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notice(nil), s.notices...)
}

type fakeTx struct {
	store    *fakeStore
	creates  []Registration
	deletes  []string
	notices  []Notice
	finished bool
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	if tx.finished {
		return errors.New("tx already finished")
	}
	tx.finished = true
	s := tx.store
	s.mu.Lock()
	for _, r := range tx.creates {
		s.regs[r.ID] = r
	}
	for _, id := range tx.deletes {
		delete(s.regs, id)
	}
	s.notices = append(s.notices, tx.notices...)
	s.commits++
	s.mu.Unlock()
	s.txMu.Unlock()
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if tx.finished {
		return nil
	}
	tx.finished = true
	tx.store.mu.Lock()
	tx.store.rollbacks++
	tx.store.mu.Unlock()
	tx.store.txMu.Unlock()
	return nil
}

type fakeRepo struct {
	store *fakeStore
	tx    *fakeTx
}

func (r *fakeRepo) BeginTx(ctx context.Context) (Repository, TxCommitter, error) {
	r.store.txMu.Lock()
	tx := &fakeTx{store: r.store}
	return &fakeRepo{store: r.store, tx: tx}, tx, nil
}

func (r *fakeRepo) LockEvent(ctx context.Context, eventID string) (*EventSnapshot, error) {
	return r.GetEvent(ctx, eventID)
}

func (r *fakeRepo) GetEvent(ctx context.Context, eventID string) (*EventSnapshot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	return &e, nil
}

func (r *fakeRepo) GetParticipant(ctx context.Context, userID string) (*Participant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *fakeRepo) GetRegistration(ctx context.Context, userID, eventID string) (*Registration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, reg := range r.store.regs {
		if reg.UserID == userID && reg.EventID == eventID {
			return &reg, nil
		}
	}
	return nil, ErrNotRegistered
}

func (r *fakeRepo) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	return r.store.confirmedCount(eventID), nil
}

func (r *fakeRepo) CreateRegistration(ctx context.Context, params CreateRegistrationParams) (*Registration, error) {
	reg := Registration{
		ID:           params.ID,
		UserID:       params.UserID,
		EventID:      params.EventID,
		Status:       params.Status,
		RegisteredAt: params.RegisteredAt,
		UpdatedAt:    params.RegisteredAt,
	}
	if r.tx == nil {
		return nil, errors.New("create outside transaction")
	}
	r.tx.creates = append(r.tx.creates, reg)
	return &reg, nil
}

func (r *fakeRepo) DeleteRegistration(ctx context.Context, id string) error {
	if r.tx == nil {
		return errors.New("delete outside transaction")
	}
	r.tx.deletes = append(r.tx.deletes, id)
	return nil
}

func (r *fakeRepo) ListAttendees(ctx context.Context, eventID string) ([]Attendee, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []Attendee
	for _, reg := range r.store.regs {
		if reg.EventID != eventID || reg.Status != StatusConfirmed {
			continue
		}
		u := r.store.users[reg.UserID]
		out = append(out, Attendee{RegistrationID: reg.ID, UserID: u.ID, Username: u.Username, RegisteredAt: reg.RegisteredAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationID < out[j].RegistrationID })
	return out, nil
}

func (r *fakeRepo) GetForUser(ctx context.Context, userID, registrationID string) (*UserRegistration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	reg, ok := r.store.regs[registrationID]
	if !ok || reg.UserID != userID {
		return nil, ErrRegistrationNotFound
	}
	return &UserRegistration{Registration: reg, Event: r.store.events[reg.EventID]}, nil
}

func (r *fakeRepo) ListForUser(ctx context.Context, userID string) ([]UserRegistration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []UserRegistration
	for _, reg := range r.store.regs {
		if reg.UserID == userID {
			out = append(out, UserRegistration{Registration: reg, Event: r.store.events[reg.EventID]})
		}
	}
	return out, nil
}

func (r *fakeRepo) EnqueueNotice(ctx context.Context, notice Notice) error {
	if r.store.enqueueErr != nil {
		return r.store.enqueueErr
	}
	if r.tx == nil {
		return errors.New("enqueue outside transaction")
	}
	r.tx.notices = append(r.tx.notices, notice)
	return nil
}
