package schedule

import (
	"math"

	"fleettrack/models"
)

// PlantAverages computes the rounded mean gap and delay per plant over
// completed loads. Plants without completed loads report zeros.
func PlantAverages(plants []models.Plant, loads []models.Load) []models.PlantStats {
	stats := make([]models.PlantStats, 0, len(plants))
	for _, p := range plants {
		var gapSum, delaySum, count int
		for _, l := range loads {
			if l.PlantID != p.PlantID || l.Status != models.StatusDone {
				continue
			}
			count++
			if l.GapMinutes != nil {
				gapSum += *l.GapMinutes
			}
			if l.DelayMinutes != nil {
				delaySum += *l.DelayMinutes
			}
		}
		ps := models.PlantStats{PlantID: p.PlantID, Name: p.Name, CompletedLoads: count}
		if count > 0 {
			ps.AvgGapMinutes = roundDiv(gapSum, count)
			ps.AvgDelayMinutes = roundDiv(delaySum, count)
		}
		stats = append(stats, ps)
	}
	return stats
}

// GlobalAverages computes the fleet-wide indicator snapshot.
func GlobalAverages(plants []models.Plant, loads []models.Load) models.Indicators {
	var gapSum, delaySum, count int
	for _, l := range loads {
		if l.Status != models.StatusDone {
			continue
		}
		count++
		if l.GapMinutes != nil {
			gapSum += *l.GapMinutes
		}
		if l.DelayMinutes != nil {
			delaySum += *l.DelayMinutes
		}
	}
	ind := models.Indicators{
		CompletedLoads: count,
		ActivePlants:   len(plants),
		Plants:         PlantAverages(plants, loads),
	}
	if count > 0 {
		ind.AvgGapMinutes = roundDiv(gapSum, count)
		ind.AvgDelayMinutes = roundDiv(delaySum, count)
	}
	return ind
}

func roundDiv(sum, count int) int {
	return int(math.Round(float64(sum) / float64(count)))
}
