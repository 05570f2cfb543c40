// Package ledger is a single-user Repository persisted as a JSON file.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rshade/fluxi/internal/engine"
)

// ErrLedgerCorrupted indicates the ledger file exists but cannot be decoded.
// It is never silently replaced with an empty ledger.
var ErrLedgerCorrupted = errors.New("ledger file corrupted")

// LedgerVersion is the current schema version of the ledger file.
const LedgerVersion = 1

// ledgerData is the serialized form of the ledger.
type ledgerData struct {
	Version      int                  `json:"version"`
	Profile      engine.Profile       `json:"profile"`
	Transactions []engine.Transaction `json:"transactions"`
	Goals        []engine.Goal        `json:"goals"`
	Categories   []engine.Category    `json:"categories"`
}

// Store implements engine.Repository over a JSON file.
//
// Reads are served from the last loaded snapshot. Every mutation takes the
// cross-process lock, reloads the file, applies the change and writes the
// file back atomically.
type Store struct {
	mu       sync.RWMutex
	filePath string
	now      func() time.Time
	data     ledgerData
}

var _ engine.Repository = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for created and updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// DefaultPath returns ~/.fluxi/ledger.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(homeDir, defaultLedgerDir, "ledger.json"), nil
}

// Open loads the ledger at filePath. A missing file is seeded with the
// default categories and profile and written immediately, so category ids
// are stable across processes. An empty filePath uses DefaultPath.
func Open(filePath string, opts ...Option) (*Store, error) {
	if filePath == "" {
		var err error
		if filePath, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	s := &Store{filePath: filePath, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		// mutate rereads under the lock, so a seed written by a concurrent
		// first run wins over ours.
		if err = s.mutate(func(*ledgerData) error { return nil }); err != nil {
			return nil, fmt.Errorf("seeding ledger: %w", err)
		}
		return s, nil
	}

	data, err := s.read()
	if err != nil {
		return nil, err
	}
	s.data = data
	return s, nil
}

// FilePath returns the ledger file location.
func (s *Store) FilePath() string {
	return s.filePath
}

// read decodes the ledger file, seeding defaults when it does not exist.
func (s *Store) read() (ledgerData, error) {
	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			if s.data.Version == LedgerVersion {
				return s.data.clone(), nil
			}
			return s.seed(), nil
		}
		return ledgerData{}, fmt.Errorf("reading ledger file: %w", err)
	}

	var data ledgerData
	if err = json.Unmarshal(raw, &data); err != nil {
		return ledgerData{}, fmt.Errorf("%w: %w", ErrLedgerCorrupted, err)
	}
	if data.Version != LedgerVersion {
		return ledgerData{}, fmt.Errorf("%w: unsupported version %d (expected %d)",
			ErrLedgerCorrupted, data.Version, LedgerVersion)
	}
	return data, nil
}

// seed returns a fresh ledger.
func (s *Store) seed() ledgerData {
	cats := defaultCategories()
	for i := range cats {
		cats[i].ID = newID()
	}
	return ledgerData{
		Version:    LedgerVersion,
		Profile:    engine.Profile{ID: newID(), FullName: defaultProfileName, UpdatedAt: s.now().UTC()},
		Categories: cats,
	}
}

// mutate runs fn against the freshest ledger on disk and persists the result.
func (s *Store) mutate(fn func(*ledgerData) error) error {
	unlock, err := acquireFileLock(s.filePath)
	if err != nil {
		return fmt.Errorf("acquiring ledger lock: %w", err)
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}
	if err = fn(&data); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling ledger: %w", err)
	}
	if err = writeFileAtomic(s.filePath, raw); err != nil {
		return err
	}
	s.data = data
	return nil
}

// clone copies the record slices so a failed mutation cannot leak into the snapshot.
func (d ledgerData) clone() ledgerData {
	d.Transactions = append([]engine.Transaction(nil), d.Transactions...)
	d.Goals = append([]engine.Goal(nil), d.Goals...)
	d.Categories = append([]engine.Category(nil), d.Categories...)
	return d
}

func newID() string {
	return strings.ToLower(ulid.Make().String())
}

// ---- transactions ----

// ListTransactions returns transactions matching filter. Results are ordered
// by filter.OrderBy (date by default), descending unless Ascending is set.
func (s *Store) ListTransactions(_ context.Context, filter engine.TransactionFilter) ([]engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]engine.Transaction, 0, len(s.data.Transactions))
	for _, tx := range s.data.Transactions {
		if matchesFilter(tx, filter) {
			out = append(out, tx)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		less := lessTransaction(out[i], out[j], filter.OrderBy)
		if filter.Ascending {
			return less
		}
		return lessTransaction(out[j], out[i], filter.OrderBy)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matchesFilter(tx engine.Transaction, f engine.TransactionFilter) bool {
	switch {
	case f.Type != "" && tx.Type != f.Type:
		return false
	case f.CategoryID != "" && tx.CategoryID != f.CategoryID:
		return false
	case f.StartDate != "" && tx.Date < f.StartDate:
		return false
	case f.EndDate != "" && tx.Date > f.EndDate:
		return false
	}
	return true
}

// lessTransaction orders by the selected field, then by creation time.
func lessTransaction(a, b engine.Transaction, order engine.TransactionOrder) bool {
	if order != engine.OrderByCreatedAt && a.Date != b.Date {
		return a.Date < b.Date
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// GetTransaction returns the transaction with id.
func (s *Store) GetTransaction(_ context.Context, id string) (*engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := indexOfTransaction(s.data.Transactions, id)
	if i < 0 {
		return nil, fmt.Errorf("transaction %s: %w", id, engine.ErrNotFound)
	}
	tx := s.data.Transactions[i]
	return &tx, nil
}

// CreateTransaction stores tx under a new id.
func (s *Store) CreateTransaction(_ context.Context, tx engine.Transaction) (*engine.Transaction, error) {
	tx.ID = newID()
	tx.CreatedAt = s.now().UTC()

	err := s.mutate(func(d *ledgerData) error {
		if tx.CategoryID != "" && indexOfCategory(d.Categories, tx.CategoryID) < 0 {
			return fmt.Errorf("category %s: %w", tx.CategoryID, engine.ErrNotFound)
		}
		d.Transactions = append(d.Transactions, tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// UpdateTransaction applies the non-nil fields of update.
func (s *Store) UpdateTransaction(
	_ context.Context,
	id string,
	update engine.TransactionUpdate,
) (*engine.Transaction, error) {
	var updated engine.Transaction
	err := s.mutate(func(d *ledgerData) error {
		i := indexOfTransaction(d.Transactions, id)
		if i < 0 {
			return fmt.Errorf("transaction %s: %w", id, engine.ErrNotFound)
		}
		if update.CategoryID != nil && *update.CategoryID != "" &&
			indexOfCategory(d.Categories, *update.CategoryID) < 0 {
			return fmt.Errorf("category %s: %w", *update.CategoryID, engine.ErrNotFound)
		}
		tx := &d.Transactions[i]
		if update.Type != nil {
			tx.Type = *update.Type
		}
		if update.Amount != nil {
			tx.Amount = *update.Amount
		}
		if update.Description != nil {
			tx.Description = *update.Description
		}
		if update.CategoryID != nil {
			tx.CategoryID = *update.CategoryID
		}
		if update.Date != nil {
			tx.Date = *update.Date
		}
		if update.Notes != nil {
			tx.Notes = *update.Notes
		}
		updated = *tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTransaction removes the transaction with id.
func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	return s.mutate(func(d *ledgerData) error {
		i := indexOfTransaction(d.Transactions, id)
		if i < 0 {
			return fmt.Errorf("transaction %s: %w", id, engine.ErrNotFound)
		}
		d.Transactions = append(d.Transactions[:i], d.Transactions[i+1:]...)
		return nil
	})
}

func indexOfTransaction(txs []engine.Transaction, id string) int {
	for i := range txs {
		if txs[i].ID == id {
			return i
		}
	}
	return -1
}

// ---- goals ----

// ListGoals returns goals newest first; an empty status lists every goal.
func (s *Store) ListGoals(_ context.Context, status engine.GoalStatus) ([]engine.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]engine.Goal, 0, len(s.data.Goals))
	for _, g := range s.data.Goals {
		if status == "" || g.Status == status {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetGoal returns the goal with id.
func (s *Store) GetGoal(_ context.Context, id string) (*engine.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := indexOfGoal(s.data.Goals, id)
	if i < 0 {
		return nil, fmt.Errorf("goal %s: %w", id, engine.ErrNotFound)
	}
	g := s.data.Goals[i]
	return &g, nil
}

// CreateGoal stores goal under a new id. An empty status means active.
func (s *Store) CreateGoal(_ context.Context, goal engine.Goal) (*engine.Goal, error) {
	goal.ID = newID()
	goal.CreatedAt = s.now().UTC()
	if goal.Status == "" {
		goal.Status = engine.GoalActive
	}

	if err := s.mutate(func(d *ledgerData) error {
		d.Goals = append(d.Goals, goal)
		return nil
	}); err != nil {
		return nil, err
	}
	return &goal, nil
}

// UpdateGoal applies the non-nil fields of update.
func (s *Store) UpdateGoal(_ context.Context, id string, update engine.GoalUpdate) (*engine.Goal, error) {
	var updated engine.Goal
	err := s.mutate(func(d *ledgerData) error {
		i := indexOfGoal(d.Goals, id)
		if i < 0 {
			return fmt.Errorf("goal %s: %w", id, engine.ErrNotFound)
		}
		g := &d.Goals[i]
		if update.Name != nil {
			g.Name = *update.Name
		}
		if update.Description != nil {
			g.Description = *update.Description
		}
		if update.TargetAmount != nil {
			g.TargetAmount = *update.TargetAmount
		}
		if update.CurrentAmount != nil {
			g.CurrentAmount = *update.CurrentAmount
		}
		if update.Deadline != nil {
			g.Deadline = *update.Deadline
		}
		if update.Icon != nil {
			g.Icon = *update.Icon
		}
		if update.Color != nil {
			g.Color = *update.Color
		}
		if update.Status != nil {
			g.Status = *update.Status
		}
		updated = *g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteGoal removes the goal with id.
func (s *Store) DeleteGoal(_ context.Context, id string) error {
	return s.mutate(func(d *ledgerData) error {
		i := indexOfGoal(d.Goals, id)
		if i < 0 {
			return fmt.Errorf("goal %s: %w", id, engine.ErrNotFound)
		}
		d.Goals = append(d.Goals[:i], d.Goals[i+1:]...)
		return nil
	})
}

func indexOfGoal(goals []engine.Goal, id string) int {
	for i := range goals {
		if goals[i].ID == id {
			return i
		}
	}
	return -1
}

// ---- categories ----

// ListCategories returns categories of typ ordered by name; empty means all.
func (s *Store) ListCategories(_ context.Context, typ engine.TransactionType) ([]engine.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]engine.Category, 0, len(s.data.Categories))
	for _, c := range s.data.Categories {
		if typ == "" || c.Type == typ {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func indexOfCategory(cats []engine.Category, id string) int {
	for i := range cats {
		if cats[i].ID == id {
			return i
		}
	}
	return -1
}

// ---- profile ----

// GetProfile returns the ledger owner's profile.
func (s *Store) GetProfile(_ context.Context) (*engine.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.data.Profile
	return &p, nil
}

// UpdateProfile applies the non-nil fields of update.
func (s *Store) UpdateProfile(_ context.Context, update engine.ProfileUpdate) (*engine.Profile, error) {
	var updated engine.Profile
	err := s.mutate(func(d *ledgerData) error {
		if update.FullName != nil {
			d.Profile.FullName = strings.TrimSpace(*update.FullName)
		}
		if update.AvatarURL != nil {
			d.Profile.AvatarURL = *update.AvatarURL
		}
		d.Profile.UpdatedAt = s.now().UTC()
		updated = d.Profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
