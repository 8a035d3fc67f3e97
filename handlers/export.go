package handlers

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"fleettrack/middleware"
	"fleettrack/store"
)

type ExportHandler struct {
	store *store.Store
}

func NewExportHandler(st *store.Store) *ExportHandler {
	return &ExportHandler{store: st}
}

// ExportLoads streams the caller's visible loads as a CSV download. Plate,
// driver and plant columns are resolved against the synced reference data;
// dangling references render as "unknown".
func (h *ExportHandler) ExportLoads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	loads := h.store.LoadsForUser(user)
	plantNames := make(map[string]string)
	for _, p := range h.store.Plants() {
		plantNames[p.PlantID] = p.Name
	}
	plates := make(map[string]string)
	for _, t := range h.store.Trucks() {
		plates[t.TruckID] = t.Plate
	}
	driverNames := make(map[string]string)
	for _, d := range h.store.Drivers() {
		driverNames[d.DriverID] = d.Name
	}

	filename := fmt.Sprintf("loads-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{
		"LoadID", "Plant", "Plate", "Driver", "Type", "Status",
		"StartAt", "ExpectedKm", "ExpectedReturnAt",
		"ActualKm", "ActualArrivalAt",
		"GapMinutes", "GapJustification", "DelayMinutes", "DelayJustification",
	})

	for _, l := range loads {
		row := []string{
			l.LoadID,
			lookupOr(plantNames, l.PlantID),
			lookupOr(plates, l.TruckID),
			lookupOr(driverNames, l.DriverID),
			string(l.Type),
			string(l.Status),
			l.StartAt.Format(time.RFC3339),
			strconv.FormatFloat(l.ExpectedKm, 'f', -1, 64),
			l.ExpectedReturnAt.Format(time.RFC3339),
			floatOrEmpty(l.ActualKm),
			timeOrEmpty(l.ActualArrivalAt),
			intOrEmpty(l.GapMinutes),
			l.GapJustification,
			intOrEmpty(l.DelayMinutes),
			l.DelayJustification,
		}
		if err := writer.Write(row); err != nil {
			log.Printf("❌ CSV write failed for load %s: %v", l.LoadID, err)
			return
		}
	}
}

func lookupOr(m map[string]string, key string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return "unknown"
}

func floatOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
