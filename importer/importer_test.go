package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"fleettrack/models"
	"fleettrack/store"
)

// fakeActions implements Actions with overridable function fields.
type fakeActions struct {
	plants  map[string]models.Plant
	trucks  map[string]models.Truck
	drivers map[string]models.Driver

	createdLoads   []store.CreateLoadInput
	createdTrucks  []models.Truck
	createdDrivers []models.Driver

	createLoadErr error
}

func (f *fakeActions) PlantByName(name string) (models.Plant, bool) {
	p, ok := f.plants[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

func (f *fakeActions) TruckByPlate(plate string) (models.Truck, bool) {
	t, ok := f.trucks[strings.ToUpper(strings.TrimSpace(plate))]
	return t, ok
}

func (f *fakeActions) DriverByName(name string) (models.Driver, bool) {
	d, ok := f.drivers[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

func (f *fakeActions) CreateLoad(_ context.Context, input store.CreateLoadInput) (models.Load, error) {
	if f.createLoadErr != nil {
		return models.Load{}, f.createLoadErr
	}
	f.createdLoads = append(f.createdLoads, input)
	return models.Load{LoadID: fmt.Sprintf("l%d", len(f.createdLoads))}, nil
}

func (f *fakeActions) CreateTruck(_ context.Context, truck models.Truck) (models.Truck, error) {
	f.createdTrucks = append(f.createdTrucks, truck)
	return truck, nil
}

func (f *fakeActions) CreateDriver(_ context.Context, driver models.Driver) (models.Driver, error) {
	f.createdDrivers = append(f.createdDrivers, driver)
	return driver, nil
}

func newFakeActions() *fakeActions {
	return &fakeActions{
		plants: map[string]models.Plant{
			"unit a": {PlantID: "P1", Name: "Unit A"},
		},
		trucks: map[string]models.Truck{
			"ABC-1234": {TruckID: "T1", Plate: "ABC-1234", PlantID: "P1"},
		},
		drivers: map[string]models.Driver{
			"john doe": {DriverID: "D1", Name: "John Doe", PlantID: "P1"},
		},
	}
}

const loadsCSVHeader = "Planta,Placa,Motoristas coleta,Eventos,Início,KM previsto\n"

func TestImportLoadsCSV(t *testing.T) {
	actions := newFakeActions()
	im := New(actions)

	csv := loadsCSVHeader +
		"Unit A,abc-1234,JOHN DOE,COLETA CHEIA,2024-01-01 08:00,190\n" +
		"Unit A,ABC-1234,John Doe,COLETA COMBINADA 2,2024-01-02 08:00,\"120,5\"\n"

	results, err := im.Import(context.Background(), KindLoads, "loads.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 row results, got %d", len(results))
	}
	for _, r := range results {
		if r.Failed() {
			t.Fatalf("row %d failed: %s", r.Row, r.Message)
		}
	}
	if len(actions.createdLoads) != 2 {
		t.Fatalf("expected 2 loads created, got %d", len(actions.createdLoads))
	}

	first := actions.createdLoads[0]
	if first.TruckID != "T1" || first.DriverID != "D1" {
		t.Fatalf("references not resolved: %+v", first)
	}
	if first.Type != models.LoadFull {
		t.Fatalf("first row type = %q, want FULL", first.Type)
	}
	if first.ExpectedKm != 190 {
		t.Fatalf("first row km = %v, want 190", first.ExpectedKm)
	}
	want := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	if !first.StartAt.Equal(want) {
		t.Fatalf("first row start = %v, want %v", first.StartAt, want)
	}

	second := actions.createdLoads[1]
	if second.Type != models.LoadCombined {
		t.Fatalf("COMBINADA event must map to COMBINED_2, got %q", second.Type)
	}
	if second.ExpectedKm != 120.5 {
		t.Fatalf("comma decimal not parsed: %v", second.ExpectedKm)
	}
}

func TestImportLoadsRowFailuresDoNotAbort(t *testing.T) {
	actions := newFakeActions()
	im := New(actions)

	csv := loadsCSVHeader +
		"Unit A,ZZZ-0000,John Doe,COLETA CHEIA,2024-01-01 08:00,190\n" + // unknown plate
		"Unit A,ABC-1234,Nobody,COLETA CHEIA,2024-01-01 08:00,190\n" + // unknown driver
		"Unit B,ABC-1234,John Doe,COLETA CHEIA,2024-01-01 08:00,190\n" + // unknown plant
		"Unit A,ABC-1234,John Doe,COLETA CHEIA,not-a-date,190\n" + // bad date
		"Unit A,ABC-1234,John Doe,COLETA CHEIA,2024-01-01 08:00,190\n" // good

	results, err := im.Import(context.Background(), KindLoads, "loads.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	if failed != 4 {
		t.Fatalf("expected 4 failed rows, got %d", failed)
	}
	if len(actions.createdLoads) != 1 {
		t.Fatalf("expected exactly the good row created, got %d", len(actions.createdLoads))
	}
	// Row numbers are 1-based counting the header.
	if results[0].Row != 2 || results[4].Row != 6 {
		t.Fatalf("row numbering wrong: first=%d last=%d", results[0].Row, results[4].Row)
	}
}

func TestImportLoadsExcelSerialDate(t *testing.T) {
	actions := newFakeActions()
	im := New(actions)

	// 45292 is 2024-01-01; the .25 fraction is 06:00.
	csv := loadsCSVHeader + "Unit A,ABC-1234,John Doe,COLETA CHEIA,45292.25,100\n"
	results, err := im.Import(context.Background(), KindLoads, "loads.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if results[0].Failed() {
		t.Fatalf("serial date row failed: %s", results[0].Message)
	}

	want := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	if !actions.createdLoads[0].StartAt.Equal(want) {
		t.Fatalf("serial date = %v, want %v", actions.createdLoads[0].StartAt, want)
	}
}

func TestImportTrucks(t *testing.T) {
	actions := newFakeActions()
	im := New(actions)

	csv := "Planta,Placa\n" +
		"Unit A,def-5678\n" +
		"Unit A,ABC-1234\n" + // already registered
		"Unit A,\n" // missing plate

	results, err := im.Import(context.Background(), KindTrucks, "trucks.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(actions.createdTrucks) != 1 {
		t.Fatalf("expected 1 truck created, got %d", len(actions.createdTrucks))
	}
	if actions.createdTrucks[0].Plate != "DEF-5678" {
		t.Fatalf("plate not uppercased: %q", actions.createdTrucks[0].Plate)
	}
	if actions.createdTrucks[0].PlantID != "P1" {
		t.Fatalf("plant not resolved: %q", actions.createdTrucks[0].PlantID)
	}
	if !results[1].Failed() || !results[2].Failed() {
		t.Fatal("duplicate and empty plates must fail")
	}
}

func TestImportDrivers(t *testing.T) {
	actions := newFakeActions()
	im := New(actions)

	csv := "Planta,Motoristas coleta\n" +
		"Unit A,Jane Roe\n" +
		"Unit A,JOHN DOE\n" // duplicate, case-insensitive

	results, err := im.Import(context.Background(), KindDrivers, "drivers.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(actions.createdDrivers) != 1 || actions.createdDrivers[0].Name != "Jane Roe" {
		t.Fatalf("unexpected created drivers: %+v", actions.createdDrivers)
	}
	if !results[1].Failed() {
		t.Fatal("case-insensitive duplicate must fail")
	}
}

func TestImportUnreadableFile(t *testing.T) {
	im := New(newFakeActions())
	_, err := im.Import(context.Background(), KindLoads, "book.xlsx", strings.NewReader("not a workbook"))
	if err == nil {
		t.Fatal("expected an unreadable workbook to fail the whole import")
	}
}

func TestParseDateLayouts(t *testing.T) {
	cases := map[string]time.Time{
		"2024-01-01T08:00:00Z": time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		"2024-01-01 08:00":     time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		"02/01/2024 08:00":     time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC),
		"2024-01-01":           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		got, err := parseDate(raw)
		if err != nil {
			t.Errorf("parseDate(%q): %v", raw, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("parseDate(%q) = %v, want %v", raw, got, want)
		}
	}
	if _, err := parseDate(""); err == nil {
		t.Error("empty date must fail")
	}
}
