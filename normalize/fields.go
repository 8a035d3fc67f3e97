package normalize

import (
	"time"

	"fleettrack/models"
)

// Write-side field builders. These produce the remote column spellings the
// production lists expect, including the legacy status tokens and the
// SharePoint-escaped delay column names. They are the inverse of the alias
// tables: normalizing a bag built here yields the same record back.

func legacyStatus(s models.LoadStatus) string {
	if s == models.StatusDone {
		return "FINALIZADA"
	}
	return "ATIVA"
}

func legacyLoadType(t models.LoadType) string {
	if t == models.LoadCombined {
		return "COMBINADA 2"
	}
	return "CHEIA"
}

func legacyRole(r models.Role) string {
	if r == models.RoleAdmin {
		return "Admin"
	}
	return "Operador"
}

// LoadCreateFields builds the field bag for a new load record.
func LoadCreateFields(l models.Load) map[string]any {
	fields := map[string]any{
		"PlantaId":      l.PlantID,
		"CaminhaoId":    l.TruckID,
		"MotoristaId":   l.DriverID,
		"TipoCarga":     legacyLoadType(l.Type),
		"DataCriacao":   l.CreatedAt.Format(time.RFC3339),
		"DataInicio":    l.StartAt.Format(time.RFC3339),
		"KmPrevisto":    l.ExpectedKm,
		"VoltaPrevista": l.ExpectedReturnAt.Format(time.RFC3339),
		"StatusCarga":   legacyStatus(l.Status),
	}
	if l.Route != "" {
		fields["Rota"] = l.Route
	}
	return fields
}

// LoadCloseFields builds the patch applied at the PENDING -> DONE
// transition.
func LoadCloseFields(l models.Load) map[string]any {
	fields := map[string]any{
		"StatusCarga":               legacyStatus(models.StatusDone),
		"Diff1_Gap":                 deref(l.GapMinutes),
		"Diff1_Justificativa":       l.GapJustification,
		"Diff2_x002e_Atraso":        deref(l.DelayMinutes),
		"Diff2_x002e_Justificativa": l.DelayJustification,
	}
	if l.ActualKm != nil {
		fields["KmReal"] = *l.ActualKm
	}
	if l.ActualArrivalAt != nil {
		fields["ChegadaReal"] = l.ActualArrivalAt.Format(time.RFC3339)
	}
	return fields
}

// LoadUpdateFields builds the patch for a direct edit of a pending load.
// ExpectedReturnAt is written as given; it is caller-editable and never
// recomputed here.
func LoadUpdateFields(l models.Load) map[string]any {
	fields := map[string]any{
		"PlantaId":      l.PlantID,
		"CaminhaoId":    l.TruckID,
		"MotoristaId":   l.DriverID,
		"TipoCarga":     legacyLoadType(l.Type),
		"DataInicio":    l.StartAt.Format(time.RFC3339),
		"KmPrevisto":    l.ExpectedKm,
		"VoltaPrevista": l.ExpectedReturnAt.Format(time.RFC3339),
	}
	if l.Route != "" {
		fields["Rota"] = l.Route
	}
	return fields
}

// PlantFields builds the field bag for a plant record.
func PlantFields(p models.Plant) map[string]any {
	return map[string]any{
		"PlantaId":      p.PlantID,
		"NomedaUnidade": p.Name,
	}
}

// TruckFields builds the field bag for a truck record.
func TruckFields(t models.Truck) map[string]any {
	return map[string]any{
		"CaminhaoId": t.TruckID,
		"Placa":      t.Plate,
		"PlantaId":   t.PlantID,
	}
}

// DriverFields builds the field bag for a driver record.
func DriverFields(d models.Driver) map[string]any {
	return map[string]any{
		"MotoristaId":     d.DriverID,
		"NomedoMotorista": d.Name,
		"PlantaId":        d.PlantID,
	}
}

// UserFields builds the field bag for a user record. The password value is
// whatever the store decided to persist (a bcrypt hash for new users).
func UserFields(u models.User) map[string]any {
	fields := map[string]any{
		"LoginUsuario": u.Login,
		"NomeCompleto": u.Name,
		"SenhaUsuario": u.Password,
		"NivelAcesso":  legacyRole(u.AccessLevel),
	}
	if u.PlantID != "" {
		fields["PlantaId"] = u.PlantID
	}
	return fields
}

// JustificationFields builds the field bag for a closing-reason entry.
func JustificationFields(j models.Justification) map[string]any {
	kind := "GAP"
	if j.Kind == models.JustificationDelay {
		kind = "ATRASO"
	}
	return map[string]any{
		"Justificativa":     j.Text,
		"TipoJustificativa": kind,
	}
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
