// Package importer performs bulk creation of loads, trucks and drivers from
// tabular files (XLSX or CSV). Each row resolves its references against the
// already-synced collections by plant name, plate or driver name —
// case-insensitive and whitespace-trimmed, matching the normalizer's key
// conventions — and reports one success/failure line per row. A failed row
// never aborts the batch.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"fleettrack/models"
	"fleettrack/store"
)

// Kind selects which collection a file feeds.
type Kind string

const (
	KindLoads   Kind = "loads"
	KindTrucks  Kind = "trucks"
	KindDrivers Kind = "drivers"
)

// Sheet column headers expected in the source files.
const (
	colPlant  = "Planta"
	colPlate  = "Placa"
	colDriver = "Motoristas coleta"
	colEvent  = "Eventos"
	colStart  = "Início"
	colKm     = "KM previsto"
)

// Actions is the store surface the importer drives.
type Actions interface {
	PlantByName(name string) (models.Plant, bool)
	TruckByPlate(plate string) (models.Truck, bool)
	DriverByName(name string) (models.Driver, bool)
	CreateLoad(ctx context.Context, input store.CreateLoadInput) (models.Load, error)
	CreateTruck(ctx context.Context, truck models.Truck) (models.Truck, error)
	CreateDriver(ctx context.Context, driver models.Driver) (models.Driver, error)
}

// RowResult reports the outcome of one imported row.
type RowResult struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Failed reports whether the row was rejected.
func (r RowResult) Failed() bool { return r.Err != nil }

// Importer binds the parser to the store's action surface.
type Importer struct {
	actions Actions
}

// New creates an importer over the given action surface.
func New(actions Actions) *Importer {
	return &Importer{actions: actions}
}

// Import parses the file and creates one record per row. The filename's
// extension selects the parser: .csv is read as CSV, anything else as XLSX.
func (im *Importer) Import(ctx context.Context, kind Kind, filename string, r io.Reader) ([]RowResult, error) {
	rows, err := parseRows(filename, r)
	if err != nil {
		return nil, err
	}

	results := make([]RowResult, 0, len(rows))
	for i, row := range rows {
		rowNum := i + 2 // 1-based, after the header row
		var result RowResult
		switch kind {
		case KindTrucks:
			result = im.importTruck(ctx, rowNum, row)
		case KindDrivers:
			result = im.importDriver(ctx, rowNum, row)
		default:
			result = im.importLoad(ctx, rowNum, row)
		}
		results = append(results, result)
	}
	return results, nil
}

func (im *Importer) importLoad(ctx context.Context, rowNum int, row map[string]string) RowResult {
	plate := strings.ToUpper(strings.TrimSpace(row[colPlate]))
	driverName := strings.TrimSpace(row[colDriver])
	plantName := strings.TrimSpace(row[colPlant])
	event := strings.ToUpper(strings.TrimSpace(row[colEvent]))

	km, err := parseNumber(row[colKm])
	if err != nil {
		return fail(rowNum, fmt.Errorf("invalid expected km %q", row[colKm]))
	}
	startAt, err := parseDate(row[colStart])
	if err != nil {
		return fail(rowNum, fmt.Errorf("invalid start date %q", row[colStart]))
	}

	if _, ok := im.actions.PlantByName(plantName); !ok {
		return fail(rowNum, fmt.Errorf("plant %q not found", plantName))
	}
	truck, ok := im.actions.TruckByPlate(plate)
	if !ok {
		return fail(rowNum, fmt.Errorf("truck with plate %q not found", plate))
	}
	driver, ok := im.actions.DriverByName(driverName)
	if !ok {
		return fail(rowNum, fmt.Errorf("driver %q not found", driverName))
	}

	loadType := models.LoadFull
	if strings.Contains(event, "COMBINADA") {
		loadType = models.LoadCombined
	}

	_, err = im.actions.CreateLoad(ctx, store.CreateLoadInput{
		TruckID:    truck.TruckID,
		DriverID:   driver.DriverID,
		Type:       loadType,
		StartAt:    startAt,
		ExpectedKm: km,
	})
	if err != nil {
		return fail(rowNum, err)
	}
	return RowResult{Row: rowNum, Message: fmt.Sprintf("load created for %s", plate)}
}

func (im *Importer) importTruck(ctx context.Context, rowNum int, row map[string]string) RowResult {
	plate := strings.ToUpper(strings.TrimSpace(row[colPlate]))
	plantName := strings.TrimSpace(row[colPlant])

	if plate == "" {
		return fail(rowNum, fmt.Errorf("plate missing"))
	}
	plant, ok := im.actions.PlantByName(plantName)
	if !ok {
		return fail(rowNum, fmt.Errorf("plant %q not found", plantName))
	}
	if _, exists := im.actions.TruckByPlate(plate); exists {
		return fail(rowNum, fmt.Errorf("truck with plate %q already registered", plate))
	}

	_, err := im.actions.CreateTruck(ctx, models.Truck{Plate: plate, PlantID: plant.PlantID})
	if err != nil {
		return fail(rowNum, err)
	}
	return RowResult{Row: rowNum, Message: fmt.Sprintf("truck %s registered", plate)}
}

func (im *Importer) importDriver(ctx context.Context, rowNum int, row map[string]string) RowResult {
	name := strings.TrimSpace(row[colDriver])
	plantName := strings.TrimSpace(row[colPlant])

	if name == "" {
		return fail(rowNum, fmt.Errorf("driver name missing"))
	}
	plant, ok := im.actions.PlantByName(plantName)
	if !ok {
		return fail(rowNum, fmt.Errorf("plant %q not found", plantName))
	}
	if _, exists := im.actions.DriverByName(name); exists {
		return fail(rowNum, fmt.Errorf("driver %q already registered", name))
	}

	_, err := im.actions.CreateDriver(ctx, models.Driver{Name: name, PlantID: plant.PlantID})
	if err != nil {
		return fail(rowNum, err)
	}
	return RowResult{Row: rowNum, Message: fmt.Sprintf("driver %s registered", name)}
}

func fail(rowNum int, err error) RowResult {
	return RowResult{Row: rowNum, Message: err.Error(), Err: err}
}

// parseRows reads the first sheet (or the CSV stream) into header-keyed row
// maps.
func parseRows(filename string, r io.Reader) ([]map[string]string, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return parseCSV(r)
	}
	return parseXLSX(r)
}

func parseCSV(r io.Reader) ([]map[string]string, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rowsFromRecords(records), nil
}

func parseXLSX(r io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rowsFromRecords(records), nil
}

func rowsFromRecords(records [][]string) []map[string]string {
	if len(records) == 0 {
		return nil
	}
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, value := range record {
			if i < len(headers) && headers[i] != "" {
				row[headers[i]] = value
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// dateLayouts covers the spellings seen in operator spreadsheets.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
}

// excelEpochOffset converts Excel serial day numbers to Unix days. Serial 1
// is 1900-01-01; 25569 is 1970-01-01.
const excelEpochOffset = 25569

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	// Excel exports dates as serial day numbers when the cell keeps its
	// numeric format.
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		seconds := (serial - excelEpochOffset) * 24 * 3600
		return time.Unix(int64(seconds), 0).UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
