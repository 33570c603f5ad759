package syncpass

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/domain/stock"
)

// ---------------------------------------------------------------------------
// In-memory snapshot repository
// ---------------------------------------------------------------------------

type memSnapshots struct {
	mu         sync.Mutex
	entries    map[stock.ChannelCode]map[stock.ProductKey]stock.SnapshotEntry
	failKeys   bool
	failRecord bool
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{entries: make(map[stock.ChannelCode]map[stock.ProductKey]stock.SnapshotEntry)}
}

func (m *memSnapshots) Record(ctx context.Context, obs stock.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRecord {
		return errors.New("record failed")
	}
	if m.entries[obs.Channel] == nil {
		m.entries[obs.Channel] = make(map[stock.ProductKey]stock.SnapshotEntry)
	}
	existing, ok := m.entries[obs.Channel][obs.Key]
	if ok && !obs.Supersedes(existing.ObservedAt) {
		return nil
	}
	v, _ := obs.Quantity.Value()
	m.entries[obs.Channel][obs.Key] = stock.SnapshotEntry{
		Channel:    obs.Channel,
		Key:        obs.Key,
		Quantity:   v,
		ObservedAt: obs.ObservedAt,
	}
	return nil
}

func (m *memSnapshots) Query(ctx context.Context, key stock.ProductKey) (map[stock.ChannelCode]stock.Quantity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[stock.ChannelCode]stock.Quantity)
	for ch, byKey := range m.entries {
		if e, ok := byKey[key]; ok {
			q, err := stock.KnownQuantity(e.Quantity)
			if err != nil {
				return nil, err
			}
			out[ch] = q
		}
	}
	return out, nil
}

func (m *memSnapshots) AllProductKeys(ctx context.Context) ([]stock.ProductKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failKeys {
		return nil, errors.New("store unavailable")
	}
	seen := make(map[stock.ProductKey]bool)
	var keys []stock.ProductKey
	for _, byKey := range m.entries {
		for k := range byKey {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys, nil
}

func (m *memSnapshots) ListEntries(ctx context.Context) ([]stock.SnapshotEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []stock.SnapshotEntry
	for _, byKey := range m.entries {
		for _, e := range byKey {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memSnapshots) DeleteKeys(ctx context.Context, keys []stock.ProductKey) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for _, byKey := range m.entries {
		for _, k := range keys {
			if _, ok := byKey[k]; ok {
				delete(byKey, k)
				removed++
			}
		}
	}
	return removed, nil
}

// quantity reads the cached value for a pair, for assertions
func (m *memSnapshots) quantity(ch stock.ChannelCode, key stock.ProductKey) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[ch][key]
	return e.Quantity, ok
}

func (m *memSnapshots) seed(ch stock.ChannelCode, key stock.ProductKey, qty int64) {
	obs, err := stock.NewObservation(ch, key, qty, timeNowMinusMinute())
	if err != nil {
		panic(err)
	}
	if err := m.Record(context.Background(), obs); err != nil {
		panic(err)
	}
}

// ---------------------------------------------------------------------------
// In-memory pass repository
// ---------------------------------------------------------------------------

type memPasses struct {
	mu     sync.Mutex
	passes map[uuid.UUID]*stock.SyncPass
	pushes []*stock.PushLog
}

func newMemPasses() *memPasses {
	return &memPasses{passes: make(map[uuid.UUID]*stock.SyncPass)}
}

func (m *memPasses) Save(ctx context.Context, pass *stock.SyncPass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pass
	m.passes[pass.ID] = &cp
	return nil
}

func (m *memPasses) Update(ctx context.Context, pass *stock.SyncPass) error {
	return m.Save(ctx, pass)
}

func (m *memPasses) FindByID(ctx context.Context, id uuid.UUID) (*stock.SyncPass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passes[id]
	if !ok {
		return nil, stock.ErrPassNotFound
	}
	return p, nil
}

func (m *memPasses) ListRecent(ctx context.Context, limit int) ([]*stock.SyncPass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*stock.SyncPass
	for _, p := range m.passes {
		out = append(out, p)
	}
	return out, nil
}

func (m *memPasses) RecordPush(ctx context.Context, log *stock.PushLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes = append(m.pushes, log)
	return nil
}

func (m *memPasses) ListPushes(ctx context.Context, passID uuid.UUID) ([]*stock.PushLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*stock.PushLog
	for _, l := range m.pushes {
		if l.PassID == passID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memPasses) pushesByOutcome(outcome stock.PushOutcome) []*stock.PushLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*stock.PushLog
	for _, l := range m.pushes {
		if l.Outcome == outcome {
			out = append(out, l)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// In-memory quirk repository
// ---------------------------------------------------------------------------

type quirkPair struct {
	ch  stock.ChannelCode
	key stock.ProductKey
}

type memQuirks struct {
	mu    sync.Mutex
	flags map[quirkPair]string
}

func newMemQuirks() *memQuirks {
	return &memQuirks{flags: make(map[quirkPair]string)}
}

func (m *memQuirks) Mark(ctx context.Context, ch stock.ChannelCode, key stock.ProductKey, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[quirkPair{ch, key}] = reason
	return nil
}

func (m *memQuirks) Clear(ctx context.Context, ch stock.ChannelCode, key stock.ProductKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flags, quirkPair{ch, key})
	return nil
}

func (m *memQuirks) List(ctx context.Context) ([]stock.ChannelQuirk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []stock.ChannelQuirk
	for p, reason := range m.flags {
		out = append(out, stock.ChannelQuirk{Channel: p.ch, Key: p.key, Reason: reason})
	}
	return out, nil
}

func (m *memQuirks) flagged(ch stock.ChannelCode, key stock.ProductKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.flags[quirkPair{ch, key}]
	return ok
}

// ---------------------------------------------------------------------------
// Fake channel adapter
// ---------------------------------------------------------------------------

type recordedPush struct {
	key stock.ProductKey
	qty int64
}

type fakeChannel struct {
	mu   sync.Mutex
	code stock.ChannelCode

	items      []channel.StockItem
	fetchErrs  []error // consumed one per fetch call, nil slice = always succeed
	fetchCalls int

	pushErrs map[stock.ProductKey]error
	pushes   []recordedPush

	refreshErr    error
	refreshCalls  int
	authSupported bool
}

func newFakeChannel(code stock.ChannelCode, items ...channel.StockItem) *fakeChannel {
	return &fakeChannel{code: code, items: items, authSupported: true}
}

func (f *fakeChannel) Code() stock.ChannelCode { return f.code }

func (f *fakeChannel) FetchStockSnapshot(ctx context.Context) ([]channel.StockItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.fetchCalls
	f.fetchCalls++
	if call < len(f.fetchErrs) && f.fetchErrs[call] != nil {
		return nil, f.fetchErrs[call]
	}
	return f.items, nil
}

func (f *fakeChannel) PushStockUpdate(ctx context.Context, key stock.ProductKey, quantity int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.pushErrs[key]; ok {
		return err
	}
	f.pushes = append(f.pushes, recordedPush{key: key, qty: quantity})
	return nil
}

func (f *fakeChannel) RefreshAuth(ctx context.Context) (*channel.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if !f.authSupported {
		return nil, channel.ErrAuthNotSupported
	}
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &channel.Credential{Channel: f.code}, nil
}

func (f *fakeChannel) recordedPushes() []recordedPush {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedPush(nil), f.pushes...)
}
