package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"fleettrack/auth"
	"fleettrack/config"
	"fleettrack/graph"
	"fleettrack/models"
	"fleettrack/schedule"
)

// fakeGateway implements Gateway with overridable function fields. Unset
// functions behave as successful no-ops.
type fakeGateway struct {
	authenticateFn func(ctx context.Context) error
	resolveFn      func(ctx context.Context) error
	listFn         func(ctx context.Context, c graph.Collection) ([]graph.Item, error)
	createFn       func(ctx context.Context, c graph.Collection, fields map[string]any) (string, error)
	updateFn       func(ctx context.Context, c graph.Collection, id string, fields map[string]any) error
	deleteFn       func(ctx context.Context, c graph.Collection, id string) error
}

func (f *fakeGateway) Authenticate(ctx context.Context) error {
	if f.authenticateFn != nil {
		return f.authenticateFn(ctx)
	}
	return nil
}

func (f *fakeGateway) ResolveContainers(ctx context.Context) error {
	if f.resolveFn != nil {
		return f.resolveFn(ctx)
	}
	return nil
}

func (f *fakeGateway) List(ctx context.Context, c graph.Collection) ([]graph.Item, error) {
	if f.listFn != nil {
		return f.listFn(ctx, c)
	}
	return nil, nil
}

func (f *fakeGateway) Create(ctx context.Context, c graph.Collection, fields map[string]any) (string, error) {
	if f.createFn != nil {
		return f.createFn(ctx, c, fields)
	}
	return "new-id", nil
}

func (f *fakeGateway) Update(ctx context.Context, c graph.Collection, id string, fields map[string]any) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, c, id, fields)
	}
	return nil
}

func (f *fakeGateway) Delete(ctx context.Context, c graph.Collection, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, c, id)
	}
	return nil
}

// seedItems returns the remote records shared by most tests: one plant, one
// truck, one driver and two users (one bcrypt, one legacy plaintext).
func seedItems(t *testing.T) map[graph.Collection][]graph.Item {
	t.Helper()
	return map[graph.Collection][]graph.Item{
		graph.CollectionPlants: {
			{ID: "p1", Fields: map[string]any{"PlantaId": "P1", "NomedaUnidade": "Unit A"}},
		},
		graph.CollectionTrucks: {
			{ID: "t1", Fields: map[string]any{"CaminhaoId": "T1", "Placa": "ABC-1234", "PlantaId": "P1"}},
		},
		graph.CollectionDrivers: {
			{ID: "d1", Fields: map[string]any{"MotoristaId": "D1", "NomedoMotorista": "John Doe", "PlantaId": "P1"}},
		},
		graph.CollectionUsers: {
			{ID: "u1", Fields: map[string]any{
				"LoginUsuario": "operator1",
				"NomeCompleto": "Operator One",
				"SenhaUsuario": "legacy-pass",
				"NivelAcesso":  "Operador",
				"PlantaId":     "P1",
			}},
		},
	}
}

func listFromSeed(seed map[graph.Collection][]graph.Item) func(context.Context, graph.Collection) ([]graph.Item, error) {
	return func(_ context.Context, c graph.Collection) ([]graph.Item, error) {
		return seed[c], nil
	}
}

func newSyncedStore(t *testing.T, gw *fakeGateway) *Store {
	t.Helper()
	s := New(gw, schedule.DefaultPolicy(), NoSession{}, config.MasterConfig{Login: "master", Password: "masterpass"})
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	return s
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("bad time literal %q: %v", s, err)
	}
	return parsed
}

func TestSyncReplacesState(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)

	if len(s.Plants()) != 1 || len(s.Trucks()) != 1 || len(s.Drivers()) != 1 || len(s.Users()) != 1 {
		t.Fatalf("unexpected state: %d plants, %d trucks, %d drivers, %d users",
			len(s.Plants()), len(s.Trucks()), len(s.Drivers()), len(s.Users()))
	}
	if s.Trucks()[0].Plate != "ABC-1234" {
		t.Fatalf("truck not normalized: %+v", s.Trucks()[0])
	}
}

func TestSyncInFlightSuppressed(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var startedOnce sync.Once
	gw := &fakeGateway{
		authenticateFn: func(ctx context.Context) error {
			startedOnce.Do(func() { close(started) })
			<-release
			return nil
		},
	}
	s := New(gw, schedule.DefaultPolicy(), NoSession{}, config.MasterConfig{})

	done := make(chan error, 1)
	go func() { done <- s.Sync(context.Background()) }()
	<-started

	// Second call while the first still holds the slot.
	if err := s.Sync(context.Background()); !errors.Is(err, ErrSyncInFlight) {
		t.Fatalf("expected ErrSyncInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	// The slot is free again once the first sync completes.
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("sync after completion: %v", err)
	}
}

func TestSyncRequiredFetchFailureLeavesStateUntouched(t *testing.T) {
	seed := seedItems(t)
	gw := &fakeGateway{listFn: listFromSeed(seed)}
	s := newSyncedStore(t, gw)

	gw.listFn = func(_ context.Context, c graph.Collection) ([]graph.Item, error) {
		if c == graph.CollectionLoads {
			return nil, fmt.Errorf("remote unavailable")
		}
		return seed[c], nil
	}

	if err := s.Sync(context.Background()); err == nil {
		t.Fatal("expected sync to fail when a required fetch fails")
	}
	// Previous snapshot survives.
	if len(s.Plants()) != 1 || len(s.Trucks()) != 1 {
		t.Fatal("failed sync must not clobber existing state")
	}
}

func TestSyncOptionalJustificationsDegrade(t *testing.T) {
	seed := seedItems(t)
	gw := &fakeGateway{listFn: func(_ context.Context, c graph.Collection) ([]graph.Item, error) {
		if c == graph.CollectionJustifications {
			return nil, fmt.Errorf("list not provisioned")
		}
		return seed[c], nil
	}}
	s := newSyncedStore(t, gw)

	if len(s.Justifications()) != 0 {
		t.Fatalf("expected empty justifications, got %d", len(s.Justifications()))
	}
	if len(s.Plants()) != 1 {
		t.Fatal("required collections must still sync")
	}
}

func TestCreateLoadValidatesReferences(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)

	_, err := s.CreateLoad(context.Background(), CreateLoadInput{
		TruckID:  "NOPE",
		DriverID: "D1",
		Type:     models.LoadFull,
		StartAt:  time.Now(),
	})
	if !IsValidation(err) {
		t.Fatalf("expected validation error for unknown truck, got %v", err)
	}

	_, err = s.CreateLoad(context.Background(), CreateLoadInput{
		TruckID:    "T1",
		DriverID:   "D1",
		Type:       models.LoadFull,
		StartAt:    time.Now(),
		ExpectedKm: -5,
	})
	if !IsValidation(err) {
		t.Fatalf("expected validation error for negative km, got %v", err)
	}
}

func TestCreateLoadComputesExpectedReturn(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)

	start := mustTime(t, "2024-01-01T08:00:00Z")
	load, err := s.CreateLoad(context.Background(), CreateLoadInput{
		TruckID:    "T1",
		DriverID:   "D1",
		Type:       models.LoadFull,
		StartAt:    start,
		ExpectedKm: 190,
	})
	if err != nil {
		t.Fatalf("CreateLoad: %v", err)
	}

	// 190 km at 38 km/h plus 40 min overhead: back at 13:40.
	want := mustTime(t, "2024-01-01T13:40:00Z")
	if !load.ExpectedReturnAt.Equal(want) {
		t.Fatalf("ExpectedReturnAt = %v, want %v", load.ExpectedReturnAt, want)
	}
	if load.PlantID != "P1" {
		t.Fatalf("plant must come from the truck, got %q", load.PlantID)
	}
	if load.Status != models.StatusPending {
		t.Fatalf("Status = %q, want PENDING", load.Status)
	}
	if load.LoadID != "new-id" {
		t.Fatalf("LoadID = %q, want the server-assigned id", load.LoadID)
	}
	if len(s.Loads()) != 1 {
		t.Fatalf("expected 1 load in state, got %d", len(s.Loads()))
	}
}

func TestCreateLoadRemoteFailureMutatesNothing(t *testing.T) {
	gw := &fakeGateway{
		listFn: listFromSeed(seedItems(t)),
		createFn: func(context.Context, graph.Collection, map[string]any) (string, error) {
			return "", fmt.Errorf("write rejected")
		},
	}
	s := newSyncedStore(t, gw)

	_, err := s.CreateLoad(context.Background(), CreateLoadInput{
		TruckID:    "T1",
		DriverID:   "D1",
		Type:       models.LoadFull,
		StartAt:    time.Now(),
		ExpectedKm: 100,
	})
	if err == nil {
		t.Fatal("expected remote write failure to propagate")
	}
	if len(s.Loads()) != 0 {
		t.Fatal("failed write must not leave a phantom record")
	}
}

func TestCloseLoadDelayRequiresJustification(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)

	start := mustTime(t, "2024-01-01T08:00:00Z")
	load, err := s.CreateLoad(context.Background(), CreateLoadInput{
		TruckID: "T1", DriverID: "D1", Type: models.LoadFull,
		StartAt: start, ExpectedKm: 190,
	})
	if err != nil {
		t.Fatalf("CreateLoad: %v", err)
	}

	// Arrival 40 min past the 13:40 expected return, over the 30 min
	// tolerance.
	arrival := mustTime(t, "2024-01-01T14:20:00Z")
	_, err = s.CloseLoad(context.Background(), load.LoadID, 190, arrival, "", "")
	if !IsValidation(err) {
		t.Fatalf("expected rejection without delay justification, got %v", err)
	}

	closed, err := s.CloseLoad(context.Background(), load.LoadID, 190, arrival, "", "heavy traffic")
	if err != nil {
		t.Fatalf("CloseLoad with justification: %v", err)
	}
	if closed.Status != models.StatusDone {
		t.Fatalf("Status = %q, want DONE", closed.Status)
	}
	if closed.DelayMinutes == nil || *closed.DelayMinutes != 40 {
		t.Fatalf("DelayMinutes = %v, want 40", closed.DelayMinutes)
	}
	if closed.GapMinutes == nil || *closed.GapMinutes != 0 {
		t.Fatalf("GapMinutes = %v, want 0 with no previous trip", closed.GapMinutes)
	}
}

func TestCloseLoadEarlyArrivalNeedsNoJustification(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)

	start := mustTime(t, "2024-01-01T08:00:00Z")
	load, err := s.CreateLoad(context.Background(), CreateLoadInput{
		TruckID: "T1", DriverID: "D1", Type: models.LoadFull,
		StartAt: start, ExpectedKm: 190,
	})
	if err != nil {
		t.Fatalf("CreateLoad: %v", err)
	}

	arrival := mustTime(t, "2024-01-01T13:30:00Z")
	closed, err := s.CloseLoad(context.Background(), load.LoadID, 185, arrival, "", "")
	if err != nil {
		t.Fatalf("early arrival must close cleanly: %v", err)
	}
	if closed.DelayMinutes == nil || *closed.DelayMinutes != -10 {
		t.Fatalf("DelayMinutes = %v, want -10", closed.DelayMinutes)
	}
}

func TestCloseLoadGapRequiresJustification(t *testing.T) {
	seed := seedItems(t)
	// Previous completed trip of the same truck arrived at 06:45.
	seed[graph.CollectionLoads] = []graph.Item{
		{ID: "old", Fields: map[string]any{
			"CaminhaoId":  "T1",
			"PlantaId":    "P1",
			"StatusCarga": "FINALIZADA",
			"ChegadaReal": "2024-01-01T06:45:00Z",
		}},
	}
	gw := &fakeGateway{listFn: listFromSeed(seed)}
	s := newSyncedStore(t, gw)

	// Next trip starts 75 idle minutes later, over the 60 min tolerance.
	start := mustTime(t, "2024-01-01T08:00:00Z")
	load, err := s.CreateLoad(context.Background(), CreateLoadInput{
		TruckID: "T1", DriverID: "D1", Type: models.LoadFull,
		StartAt: start, ExpectedKm: 38,
	})
	if err != nil {
		t.Fatalf("CreateLoad: %v", err)
	}

	arrival := load.ExpectedReturnAt
	_, err = s.CloseLoad(context.Background(), load.LoadID, 38, arrival, "", "")
	if !IsValidation(err) {
		t.Fatalf("expected rejection without gap justification, got %v", err)
	}

	closed, err := s.CloseLoad(context.Background(), load.LoadID, 38, arrival, "scheduled maintenance", "")
	if err != nil {
		t.Fatalf("CloseLoad with gap justification: %v", err)
	}
	if closed.GapMinutes == nil || *closed.GapMinutes != 75 {
		t.Fatalf("GapMinutes = %v, want 75", closed.GapMinutes)
	}
}

func TestCloseLoadAlreadyClosed(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)

	load, err := s.CreateLoad(context.Background(), CreateLoadInput{
		TruckID: "T1", DriverID: "D1", Type: models.LoadFull,
		StartAt: mustTime(t, "2024-01-01T08:00:00Z"), ExpectedKm: 38,
	})
	if err != nil {
		t.Fatalf("CreateLoad: %v", err)
	}
	arrival := load.ExpectedReturnAt
	if _, err := s.CloseLoad(context.Background(), load.LoadID, 38, arrival, "", ""); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if _, err := s.CloseLoad(context.Background(), load.LoadID, 38, arrival, "", ""); !IsValidation(err) {
		t.Fatalf("second close must be rejected, got %v", err)
	}
}

func TestCloseLoadRemoteFailureKeepsPending(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)

	load, err := s.CreateLoad(context.Background(), CreateLoadInput{
		TruckID: "T1", DriverID: "D1", Type: models.LoadFull,
		StartAt: mustTime(t, "2024-01-01T08:00:00Z"), ExpectedKm: 38,
	})
	if err != nil {
		t.Fatalf("CreateLoad: %v", err)
	}

	gw.updateFn = func(context.Context, graph.Collection, string, map[string]any) error {
		return fmt.Errorf("patch rejected")
	}
	if _, err := s.CloseLoad(context.Background(), load.LoadID, 38, load.ExpectedReturnAt, "", ""); err == nil {
		t.Fatal("expected the remote failure to propagate")
	}
	if s.Loads()[0].Status != models.StatusPending {
		t.Fatal("failed close must leave the load pending")
	}
}

func TestUpdateLoadClosedRejected(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)

	load, err := s.CreateLoad(context.Background(), CreateLoadInput{
		TruckID: "T1", DriverID: "D1", Type: models.LoadFull,
		StartAt: mustTime(t, "2024-01-01T08:00:00Z"), ExpectedKm: 38,
	})
	if err != nil {
		t.Fatalf("CreateLoad: %v", err)
	}
	if _, err := s.CloseLoad(context.Background(), load.LoadID, 38, load.ExpectedReturnAt, "", ""); err != nil {
		t.Fatalf("close: %v", err)
	}

	load.ExpectedKm = 50
	if err := s.UpdateLoad(context.Background(), load); !IsValidation(err) {
		t.Fatalf("editing a closed load must be rejected, got %v", err)
	}
}

func TestUpdateLoadPreservesStatus(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)

	load, err := s.CreateLoad(context.Background(), CreateLoadInput{
		TruckID: "T1", DriverID: "D1", Type: models.LoadFull,
		StartAt: mustTime(t, "2024-01-01T08:00:00Z"), ExpectedKm: 38,
	})
	if err != nil {
		t.Fatalf("CreateLoad: %v", err)
	}

	edited := load
	edited.ExpectedKm = 76
	edited.Status = models.StatusDone // status edits are ignored
	if err := s.UpdateLoad(context.Background(), edited); err != nil {
		t.Fatalf("UpdateLoad: %v", err)
	}

	got := s.Loads()[0]
	if got.ExpectedKm != 76 {
		t.Fatalf("ExpectedKm = %v, want 76", got.ExpectedKm)
	}
	if got.Status != models.StatusPending {
		t.Fatal("UpdateLoad must never change status")
	}
}

func TestLoadsForUserScoping(t *testing.T) {
	seed := seedItems(t)
	seed[graph.CollectionLoads] = []graph.Item{
		{ID: "l1", Fields: map[string]any{"PlantaId": "P1", "CaminhaoId": "T1"}},
		{ID: "l2", Fields: map[string]any{"PlantaId": "P2", "CaminhaoId": "T2"}},
	}
	gw := &fakeGateway{listFn: listFromSeed(seed)}
	s := newSyncedStore(t, gw)

	admin := &models.User{AccessLevel: models.RoleAdmin}
	if got := len(s.LoadsForUser(admin)); got != 2 {
		t.Fatalf("admin sees %d loads, want 2", got)
	}

	operator := &models.User{AccessLevel: models.RoleOperator, PlantID: "P1"}
	visible := s.LoadsForUser(operator)
	if len(visible) != 1 || visible[0].PlantID != "P1" {
		t.Fatalf("operator scoping wrong: %+v", visible)
	}

	unscoped := &models.User{AccessLevel: models.RoleOperator}
	if got := len(s.LoadsForUser(unscoped)); got != 2 {
		t.Fatalf("operator without plant sees %d loads, want 2", got)
	}
}

func TestAuthenticateLocallyMaster(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)

	user, ok := s.AuthenticateLocally("MASTER", "masterpass")
	if !ok {
		t.Fatal("master login must succeed case-insensitively")
	}
	if user.AccessLevel != models.RoleAdmin {
		t.Fatalf("master role = %q, want ADMIN", user.AccessLevel)
	}

	if _, ok := s.AuthenticateLocally("master", "wrong"); ok {
		t.Fatal("wrong master password must fail")
	}
}

func TestAuthenticateLocallyEmptyMasterPasswordNeverMatches(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := New(gw, schedule.DefaultPolicy(), NoSession{}, config.MasterConfig{Login: "master"})
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if _, ok := s.AuthenticateLocally("master", ""); ok {
		t.Fatal("empty configured master password must never authenticate")
	}
}

func TestAuthenticateLocallyLegacyPlaintext(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)

	// The seeded row predates hashing and still holds plaintext.
	user, ok := s.AuthenticateLocally("operator1", "legacy-pass")
	if !ok {
		t.Fatal("legacy plaintext row must still authenticate")
	}
	if user.PlantID != "P1" {
		t.Fatalf("PlantID = %q, want P1", user.PlantID)
	}

	if _, ok := s.AuthenticateLocally("operator1", "nope"); ok {
		t.Fatal("wrong password must fail")
	}
	if _, ok := s.AuthenticateLocally("ghost", "legacy-pass"); ok {
		t.Fatal("unknown login must fail")
	}
}

func TestAuthenticateLocallyBcrypt(t *testing.T) {
	hash, err := auth.HashPassword("s3curepass1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	seed := seedItems(t)
	seed[graph.CollectionUsers] = append(seed[graph.CollectionUsers], graph.Item{
		ID: "u2", Fields: map[string]any{
			"LoginUsuario": "maria",
			"SenhaUsuario": hash,
			"NivelAcesso":  "Admin",
		},
	})
	gw := &fakeGateway{listFn: listFromSeed(seed)}
	s := newSyncedStore(t, gw)

	if _, ok := s.AuthenticateLocally("maria", "s3curepass1"); !ok {
		t.Fatal("bcrypt row must authenticate")
	}
	if _, ok := s.AuthenticateLocally("maria", hash); ok {
		t.Fatal("supplying the hash itself must not authenticate")
	}
}

func TestCurrentUserRematchedAfterSync(t *testing.T) {
	seed := seedItems(t)
	gw := &fakeGateway{listFn: listFromSeed(seed)}
	s := newSyncedStore(t, gw)

	if _, ok := s.AuthenticateLocally("operator1", "legacy-pass"); !ok {
		t.Fatal("login failed")
	}

	// The remote row is promoted to admin; the next sync must pick it up.
	seed[graph.CollectionUsers][0].Fields["NivelAcesso"] = "Admin"
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	current := s.CurrentUser()
	if current == nil {
		t.Fatal("session user lost across sync")
	}
	if current.AccessLevel != models.RoleAdmin {
		t.Fatalf("AccessLevel = %q, want the refreshed ADMIN", current.AccessLevel)
	}
}

func TestCreateUserHashesPasswordBeforeWrite(t *testing.T) {
	var written map[string]any
	gw := &fakeGateway{
		listFn: listFromSeed(seedItems(t)),
		createFn: func(_ context.Context, c graph.Collection, fields map[string]any) (string, error) {
			if c == graph.CollectionUsers {
				written = fields
			}
			return "u-new", nil
		},
	}
	s := newSyncedStore(t, gw)

	_, err := s.CreateUser(context.Background(), models.User{
		Login:       "newuser",
		Name:        "New User",
		AccessLevel: models.RoleOperator,
		PlantID:     "P1",
	}, "plainpass1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	stored, _ := written["SenhaUsuario"].(string)
	if stored == "plainpass1" {
		t.Fatal("plaintext password must never reach the remote write")
	}
	if !auth.IsBcryptHash(stored) {
		t.Fatalf("stored credential %q is not a bcrypt hash", stored)
	}
}

func TestCreateUserDuplicateLogin(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)

	_, err := s.CreateUser(context.Background(), models.User{
		Login:       "OPERATOR1", // differs only in case
		AccessLevel: models.RoleOperator,
		PlantID:     "P1",
	}, "whatever1")
	if !IsValidation(err) {
		t.Fatalf("expected duplicate login rejection, got %v", err)
	}
}

func TestCreateUserOperatorRequiresPlant(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)

	_, err := s.CreateUser(context.Background(), models.User{
		Login:       "scopeless",
		AccessLevel: models.RoleOperator,
	}, "whatever1")
	if !IsValidation(err) {
		t.Fatalf("expected plant scoping rejection, got %v", err)
	}
}

func TestCreateTruckDuplicatePlate(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)

	_, err := s.CreateTruck(context.Background(), models.Truck{Plate: "abc-1234", PlantID: "P1"})
	if !IsValidation(err) {
		t.Fatalf("expected duplicate plate rejection, got %v", err)
	}

	created, err := s.CreateTruck(context.Background(), models.Truck{Plate: "def-5678", PlantID: "P1"})
	if err != nil {
		t.Fatalf("CreateTruck: %v", err)
	}
	if created.Plate != "DEF-5678" {
		t.Fatalf("plate not uppercased: %q", created.Plate)
	}
	if created.TruckID != "DEF-5678" {
		t.Fatalf("TruckID should default to the plate, got %q", created.TruckID)
	}
}

func TestLogoutClearsState(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)
	if _, ok := s.AuthenticateLocally("operator1", "legacy-pass"); !ok {
		t.Fatal("login failed")
	}

	s.Logout()

	if s.CurrentUser() != nil {
		t.Fatal("current user must be cleared")
	}
	if len(s.Plants()) != 0 || len(s.Loads()) != 0 || len(s.Users()) != 0 {
		t.Fatal("logout must reset all collection state")
	}
}

func TestAuditTrailRecordsMutations(t *testing.T) {
	gw := &fakeGateway{listFn: listFromSeed(seedItems(t))}
	s := newSyncedStore(t, gw)
	if _, ok := s.AuthenticateLocally("operator1", "legacy-pass"); !ok {
		t.Fatal("login failed")
	}

	if _, err := s.CreateLoad(context.Background(), CreateLoadInput{
		TruckID: "T1", DriverID: "D1", Type: models.LoadFull,
		StartAt: mustTime(t, "2024-01-01T08:00:00Z"), ExpectedKm: 38,
	}); err != nil {
		t.Fatalf("CreateLoad: %v", err)
	}

	trail := s.AuditTrail()
	if len(trail) == 0 {
		t.Fatal("expected at least one audit event")
	}
	last := trail[len(trail)-1]
	if last.Action != "LOAD_CREATE" {
		t.Fatalf("Action = %q, want LOAD_CREATE", last.Action)
	}
	if last.UserLogin != "operator1" {
		t.Fatalf("UserLogin = %q, want operator1", last.UserLogin)
	}
}

func TestIndicatorsOverClosedLoads(t *testing.T) {
	seed := seedItems(t)
	seed[graph.CollectionLoads] = []graph.Item{
		{ID: "l1", Fields: map[string]any{
			"PlantaId":           "P1",
			"StatusCarga":        "FINALIZADA",
			"Diff1_Gap":          float64(20),
			"Diff2_x002e_Atraso": float64(40),
		}},
		{ID: "l2", Fields: map[string]any{"PlantaId": "P1", "StatusCarga": "ATIVA"}},
	}
	gw := &fakeGateway{listFn: listFromSeed(seed)}
	s := newSyncedStore(t, gw)

	ind := s.Indicators()
	if ind.CompletedLoads != 1 {
		t.Fatalf("CompletedLoads = %d, want 1", ind.CompletedLoads)
	}
	if ind.AvgGapMinutes != 20 || ind.AvgDelayMinutes != 40 {
		t.Fatalf("averages = %d/%d, want 20/40", ind.AvgGapMinutes, ind.AvgDelayMinutes)
	}
}

func TestFileSessionRoundTrip(t *testing.T) {
	path := t.TempDir() + "/session.json"
	fs := &FileSession{Path: path}

	if u, err := fs.Load(); err != nil || u != nil {
		t.Fatalf("empty slot should load as nil, got %v, %v", u, err)
	}

	want := models.User{ID: "u1", Login: "operator1", AccessLevel: models.RoleOperator, PlantID: "P1"}
	if err := fs.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := fs.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.Login != want.Login || got.PlantID != want.PlantID {
		t.Fatalf("round trip drifted: %+v", got)
	}

	if err := fs.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if u, _ := fs.Load(); u != nil {
		t.Fatal("cleared slot must load as nil")
	}
	// Clearing twice is not an error.
	if err := fs.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestSessionRestoredOnNew(t *testing.T) {
	path := t.TempDir() + "/session.json"
	fs := &FileSession{Path: path}
	if err := fs.Save(models.User{ID: "u1", Login: "operator1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s := New(&fakeGateway{}, schedule.DefaultPolicy(), fs, config.MasterConfig{})
	current := s.CurrentUser()
	if current == nil || !strings.EqualFold(current.Login, "operator1") {
		t.Fatalf("session not restored: %+v", current)
	}
}
