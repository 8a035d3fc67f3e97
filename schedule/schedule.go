// Package schedule implements the trip estimation engine: expected-return
// times, inter-trip gaps and arrival delays. All functions are pure; callers
// validate inputs (negative or non-finite km propagates NaN).
package schedule

import (
	"time"

	"fleettrack/config"
	"fleettrack/models"
)

// Policy carries the tunable estimation parameters. The defaults encode the
// fleet's empirical road average and loading/unloading overheads.
type Policy struct {
	AvgSpeedKmh         float64
	FullOverheadMin     float64
	CombinedOverheadMin float64
	GapToleranceMin     int
	DelayToleranceMin   int
}

// DefaultPolicy returns the production defaults: 38 km/h average speed,
// 40 min overhead for full loads, 80 min for combined, 60/30 min tolerances.
func DefaultPolicy() Policy {
	return Policy{
		AvgSpeedKmh:         38,
		FullOverheadMin:     40,
		CombinedOverheadMin: 80,
		GapToleranceMin:     60,
		DelayToleranceMin:   30,
	}
}

// PolicyFromConfig builds a Policy from the loaded configuration.
func PolicyFromConfig(cfg config.ScheduleConfig) Policy {
	return Policy{
		AvgSpeedKmh:         cfg.AvgSpeedKmh,
		FullOverheadMin:     cfg.FullOverheadMin,
		CombinedOverheadMin: cfg.CombinedOverheadMin,
		GapToleranceMin:     cfg.GapToleranceMin,
		DelayToleranceMin:   cfg.DelayToleranceMin,
	}
}

// TravelMinutes computes the estimated drive time in minutes for a trip of
// expectedKm plus the fixed loading/unloading overhead for the load type.
func (p Policy) TravelMinutes(expectedKm float64, loadType models.LoadType) float64 {
	travel := expectedKm / p.AvgSpeedKmh * 60
	if loadType == models.LoadCombined {
		return travel + p.CombinedOverheadMin
	}
	return travel + p.FullOverheadMin
}

// ExpectedReturn adds the estimated travel minutes to the start time.
func (p Policy) ExpectedReturn(startAt time.Time, expectedKm float64, loadType models.LoadType) time.Time {
	minutes := p.TravelMinutes(expectedKm, loadType)
	return startAt.Add(time.Duration(minutes * float64(time.Minute)))
}

// PreviousArrival returns the most recent actual arrival among completed
// loads of the same truck that arrived strictly before beforeStart. When two
// completed loads share an identical arrival timestamp the result is
// whichever the scan keeps last; exact ties do not occur in practice and the
// order is deliberately left unspecified.
func PreviousArrival(truckID string, beforeStart time.Time, allLoads []models.Load) (time.Time, bool) {
	var best time.Time
	found := false
	for _, l := range allLoads {
		if l.TruckID != truckID || l.Status != models.StatusDone || l.ActualArrivalAt == nil {
			continue
		}
		arrival := *l.ActualArrivalAt
		if !arrival.Before(beforeStart) {
			continue
		}
		if !found || !arrival.Before(best) {
			best = arrival
			found = true
		}
	}
	return best, found
}

// GapMinutes returns the idle minutes between the previous arrival and the
// current start. No previous trip means no gap penalty.
func GapMinutes(currentStart, previousArrival time.Time, hasPrevious bool) int {
	if !hasPrevious {
		return 0
	}
	return int(currentStart.Sub(previousArrival) / time.Minute)
}

// DelayMinutes returns actual arrival minus expected return in minutes.
// Negative values mean early arrival and are valid; clamping is the
// validation layer's concern, not the engine's.
func DelayMinutes(actualArrival, expectedReturn time.Time) int {
	return int(actualArrival.Sub(expectedReturn) / time.Minute)
}

// UnloadMinutes estimates dwell time by subtracting pure travel time from the
// total route minutes. Reporting metric only, never stored on the load.
func (p Policy) UnloadMinutes(totalRouteMinutes, actualKm float64) float64 {
	unload := totalRouteMinutes - actualKm/p.AvgSpeedKmh*60
	if unload < 0 {
		return 0
	}
	return unload
}
