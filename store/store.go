// Package store owns the canonical in-memory state for the session. It is
// the only component that calls the remote list gateway: it orchestrates
// sync, exposes the action API and applies the write-then-reflect mutation
// discipline (local state changes only after the remote write succeeds).
package store

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"fleettrack/config"
	"fleettrack/graph"
	"fleettrack/models"
	"fleettrack/normalize"
	"fleettrack/schedule"
)

// Gateway is the remote list surface the store depends on. *graph.Client
// implements it; tests substitute fakes.
type Gateway interface {
	Authenticate(ctx context.Context) error
	ResolveContainers(ctx context.Context) error
	List(ctx context.Context, collection graph.Collection) ([]graph.Item, error)
	Create(ctx context.Context, collection graph.Collection, fields map[string]any) (string, error)
	Update(ctx context.Context, collection graph.Collection, itemID string, fields map[string]any) error
	Delete(ctx context.Context, collection graph.Collection, itemID string) error
}

// Store is the single authoritative representation of all entities for the
// current session.
type Store struct {
	gateway  Gateway
	policy   schedule.Policy
	sessions SessionStore
	master   config.MasterConfig

	syncing atomic.Bool

	mu             sync.RWMutex
	plants         []models.Plant
	trucks         []models.Truck
	drivers        []models.Driver
	users          []models.User
	justifications []models.Justification
	loads          []models.Load
	currentUser    *models.User
	audit          []models.AuditEvent

	now func() time.Time
}

// New builds a store and restores any persisted session user.
func New(gateway Gateway, policy schedule.Policy, sessions SessionStore, master config.MasterConfig) *Store {
	s := &Store{
		gateway:  gateway,
		policy:   policy,
		sessions: sessions,
		master:   master,
		now:      time.Now,
	}
	if user, err := sessions.Load(); err != nil {
		log.Printf("⚠️  Failed to restore session: %v", err)
	} else if user != nil {
		s.currentUser = user
		log.Printf("🔁 Restored session for %s", user.Login)
	}
	return s
}

// Sync authenticates, resolves containers, fetches every collection and
// atomically replaces local state. A sync already in flight suppresses the
// call: duplicate concurrent fetches waste quota and can race on state
// replacement. A failed fetch of a required collection fails the whole sync
// and leaves state untouched; only the optional justifications lookup
// degrades to empty with a logged warning.
func (s *Store) Sync(ctx context.Context) error {
	if !s.syncing.CompareAndSwap(false, true) {
		return ErrSyncInFlight
	}
	defer s.syncing.Store(false)

	if err := s.gateway.Authenticate(ctx); err != nil {
		return err
	}
	if err := s.gateway.ResolveContainers(ctx); err != nil {
		return err
	}

	log.Printf("🔄 Syncing remote lists...")
	now := s.now()

	var (
		plants         []models.Plant
		trucks         []models.Truck
		drivers        []models.Driver
		users          []models.User
		justifications []models.Justification
		loads          []models.Load
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.gateway.List(gctx, graph.CollectionPlants)
		if err != nil {
			return err
		}
		for _, item := range items {
			plants = append(plants, normalize.Plant(item))
		}
		return nil
	})
	g.Go(func() error {
		items, err := s.gateway.List(gctx, graph.CollectionTrucks)
		if err != nil {
			return err
		}
		for _, item := range items {
			trucks = append(trucks, normalize.Truck(item))
		}
		return nil
	})
	g.Go(func() error {
		items, err := s.gateway.List(gctx, graph.CollectionDrivers)
		if err != nil {
			return err
		}
		for _, item := range items {
			drivers = append(drivers, normalize.Driver(item))
		}
		return nil
	})
	g.Go(func() error {
		items, err := s.gateway.List(gctx, graph.CollectionUsers)
		if err != nil {
			return err
		}
		for _, item := range items {
			users = append(users, normalize.User(item))
		}
		return nil
	})
	g.Go(func() error {
		items, err := s.gateway.List(gctx, graph.CollectionLoads)
		if err != nil {
			return err
		}
		for _, item := range items {
			loads = append(loads, normalize.Load(item, now))
		}
		return nil
	})
	g.Go(func() error {
		items, err := s.gateway.List(gctx, graph.CollectionJustifications)
		if err != nil {
			// Optional lookup collection: degrade to empty, never fail
			// the sync for it.
			log.Printf("⚠️  Justifications fetch failed, continuing with empty lookup: %v", err)
			return nil
		}
		for _, item := range items {
			justifications = append(justifications, normalize.Justification(item))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	s.plants = plants
	s.trucks = trucks
	s.drivers = drivers
	s.users = users
	s.justifications = justifications
	s.loads = loads
	// Re-match the held user against the fresh list so role or plant
	// changes take effect. Stale-but-present beats losing the session.
	if s.currentUser != nil {
		if fresh := findUser(users, s.currentUser.Login); fresh != nil {
			s.currentUser = fresh
		}
	}
	s.mu.Unlock()

	log.Printf("✅ Sync complete: %d plants, %d trucks, %d drivers, %d users, %d loads",
		len(plants), len(trucks), len(drivers), len(users), len(loads))
	return nil
}

func findUser(users []models.User, login string) *models.User {
	for i := range users {
		if strings.EqualFold(users[i].Login, login) {
			u := users[i]
			return &u
		}
	}
	return nil
}

// --- Load lifecycle ---

// CreateLoadInput carries the dispatch form fields for a new load.
type CreateLoadInput struct {
	TruckID    string
	DriverID   string
	Type       models.LoadType
	StartAt    time.Time
	ExpectedKm float64
	Route      string
}

// CreateLoad validates references, computes the expected return and writes
// through the gateway. Local state is mutated only once the remote write
// succeeds, so a failed write never leaves a phantom record.
func (s *Store) CreateLoad(ctx context.Context, input CreateLoadInput) (models.Load, error) {
	s.mu.RLock()
	truck := findTruck(s.trucks, input.TruckID)
	driver := findDriver(s.drivers, input.DriverID)
	s.mu.RUnlock()

	if truck == nil {
		return models.Load{}, &ValidationError{Field: "truck_id", Reason: "referenced truck does not exist"}
	}
	if driver == nil {
		return models.Load{}, &ValidationError{Field: "driver_id", Reason: "referenced driver does not exist"}
	}
	if input.ExpectedKm < 0 {
		return models.Load{}, &ValidationError{Field: "expected_km", Reason: "must be non-negative"}
	}

	load := models.Load{
		PlantID:          truck.PlantID,
		TruckID:          input.TruckID,
		DriverID:         input.DriverID,
		Type:             input.Type,
		CreatedAt:        s.now(),
		StartAt:          input.StartAt,
		ExpectedKm:       input.ExpectedKm,
		ExpectedReturnAt: s.policy.ExpectedReturn(input.StartAt, input.ExpectedKm, input.Type),
		Status:           models.StatusPending,
		Route:            input.Route,
	}

	id, err := s.gateway.Create(ctx, graph.CollectionLoads, normalize.LoadCreateFields(load))
	if err != nil {
		return models.Load{}, err
	}
	load.LoadID = id

	s.mu.Lock()
	s.loads = append([]models.Load{load}, s.loads...)
	s.mu.Unlock()

	s.recordAudit("LOAD_CREATE", "load "+id+" truck "+input.TruckID)
	return load, nil
}

// CloseLoad transitions a pending load to DONE. Gap and delay are recomputed
// at call time against current state; out-of-tolerance values require a
// justification or the close is rejected before any remote call.
func (s *Store) CloseLoad(ctx context.Context, loadID string, actualKm float64, actualArrivalAt time.Time, gapJustification, delayJustification string) (models.Load, error) {
	s.mu.RLock()
	load := findLoad(s.loads, loadID)
	allLoads := s.loads
	s.mu.RUnlock()

	if load == nil {
		return models.Load{}, &ValidationError{Field: "load_id", Reason: "load not found"}
	}
	if load.Closed() {
		return models.Load{}, &ValidationError{Field: "status", Reason: "load already closed"}
	}

	prevArrival, hasPrev := schedule.PreviousArrival(load.TruckID, load.StartAt, allLoads)
	gap := schedule.GapMinutes(load.StartAt, prevArrival, hasPrev)
	delay := schedule.DelayMinutes(actualArrivalAt, load.ExpectedReturnAt)

	if gap > s.policy.GapToleranceMin && strings.TrimSpace(gapJustification) == "" {
		return models.Load{}, &ValidationError{Field: "gap_justification", Reason: "gap exceeds tolerance and no justification supplied"}
	}
	if delay > s.policy.DelayToleranceMin && strings.TrimSpace(delayJustification) == "" {
		return models.Load{}, &ValidationError{Field: "delay_justification", Reason: "delay exceeds tolerance and no justification supplied"}
	}

	closed := *load
	closed.Status = models.StatusDone
	closed.ActualKm = &actualKm
	closed.ActualArrivalAt = &actualArrivalAt
	closed.GapMinutes = &gap
	closed.GapJustification = gapJustification
	closed.DelayMinutes = &delay
	closed.DelayJustification = delayJustification

	if err := s.gateway.Update(ctx, graph.CollectionLoads, loadID, normalize.LoadCloseFields(closed)); err != nil {
		return models.Load{}, err
	}

	s.replaceLoad(closed)
	s.recordAudit("LOAD_CLOSE", "load "+loadID)
	return closed, nil
}

// UpdateLoad applies a direct edit to a pending load. The expected return is
// written as given; it is caller-editable and deliberately not recomputed.
func (s *Store) UpdateLoad(ctx context.Context, updated models.Load) error {
	s.mu.RLock()
	existing := findLoad(s.loads, updated.LoadID)
	s.mu.RUnlock()

	if existing == nil {
		return &ValidationError{Field: "load_id", Reason: "load not found"}
	}
	if existing.Closed() {
		return &ValidationError{Field: "status", Reason: "closed loads cannot be edited"}
	}

	// Closing fields and status are owned by CloseLoad.
	updated.Status = existing.Status
	updated.CreatedAt = existing.CreatedAt

	if err := s.gateway.Update(ctx, graph.CollectionLoads, updated.LoadID, normalize.LoadUpdateFields(updated)); err != nil {
		return err
	}

	s.replaceLoad(updated)
	return nil
}

// DeleteLoad removes a load at any status. Irreversible.
func (s *Store) DeleteLoad(ctx context.Context, loadID string) error {
	if err := s.gateway.Delete(ctx, graph.CollectionLoads, loadID); err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.loads {
		if s.loads[i].LoadID == loadID {
			s.loads = append(s.loads[:i], s.loads[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.recordAudit("LOAD_DELETE", "load "+loadID)
	return nil
}

func (s *Store) replaceLoad(updated models.Load) {
	s.mu.Lock()
	for i := range s.loads {
		if s.loads[i].LoadID == updated.LoadID {
			s.loads[i] = updated
			break
		}
	}
	s.mu.Unlock()
}

// --- Snapshots and lookups ---

// Plants returns a copy of the plant slice.
func (s *Store) Plants() []models.Plant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Plant(nil), s.plants...)
}

// Trucks returns a copy of the truck slice.
func (s *Store) Trucks() []models.Truck {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Truck(nil), s.trucks...)
}

// Drivers returns a copy of the driver slice.
func (s *Store) Drivers() []models.Driver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Driver(nil), s.drivers...)
}

// Users returns a copy of the user slice.
func (s *Store) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.User(nil), s.users...)
}

// Justifications returns a copy of the closing-reason lookup entries.
func (s *Store) Justifications() []models.Justification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Justification(nil), s.justifications...)
}

// Loads returns a copy of the load slice.
func (s *Store) Loads() []models.Load {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Load(nil), s.loads...)
}

// LoadsForUser returns loads visible to the given user: all loads for
// admins, the user's plant only for operators.
func (s *Store) LoadsForUser(user *models.User) []models.Load {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user == nil || user.AccessLevel == models.RoleAdmin || user.PlantID == "" {
		return append([]models.Load(nil), s.loads...)
	}
	var visible []models.Load
	for _, l := range s.loads {
		if l.PlantID == user.PlantID {
			visible = append(visible, l)
		}
	}
	return visible
}

// PlantByName finds a plant by display name, case-insensitively and
// whitespace-trimmed, matching the normalizer's key conventions.
func (s *Store) PlantByName(name string) (models.Plant, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.plants {
		if strings.ToLower(strings.TrimSpace(p.Name)) == want {
			return p, true
		}
	}
	return models.Plant{}, false
}

// TruckByPlate finds a truck by plate, case-insensitively.
func (s *Store) TruckByPlate(plate string) (models.Truck, bool) {
	want := strings.ToUpper(strings.TrimSpace(plate))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.trucks {
		if strings.ToUpper(strings.TrimSpace(t.Plate)) == want {
			return t, true
		}
	}
	return models.Truck{}, false
}

// DriverByName finds a driver by name, case-insensitively.
func (s *Store) DriverByName(name string) (models.Driver, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.drivers {
		if strings.ToLower(strings.TrimSpace(d.Name)) == want {
			return d, true
		}
	}
	return models.Driver{}, false
}

// Indicators returns the aggregate gap/delay snapshot.
func (s *Store) Indicators() models.Indicators {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schedule.GlobalAverages(s.plants, s.loads)
}

// Policy exposes the active estimation policy for live form previews.
func (s *Store) Policy() schedule.Policy {
	return s.policy
}

func findTruck(trucks []models.Truck, truckID string) *models.Truck {
	for i := range trucks {
		if trucks[i].TruckID == truckID {
			return &trucks[i]
		}
	}
	return nil
}

func findDriver(drivers []models.Driver, driverID string) *models.Driver {
	for i := range drivers {
		if drivers[i].DriverID == driverID {
			return &drivers[i]
		}
	}
	return nil
}

func findLoad(loads []models.Load, loadID string) *models.Load {
	for i := range loads {
		if loads[i].LoadID == loadID {
			return &loads[i]
		}
	}
	return nil
}
