// Package normalize reconciles the heterogeneous field spellings and types
// of the remote lists into the canonical in-memory shape. Every function is
// pure: same raw input, same normalized output.
//
// Each canonical field has an explicit ordered alias list; the first present
// alias wins. The remote (SharePoint) spelling leads each list so that a
// record rebuilt from the write-side field builders normalizes back to the
// same value.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fleettrack/graph"
	"fleettrack/models"
)

// Alias priority lists per canonical field. Legacy spellings observed in the
// production lists come after the current column names.
var (
	plantIDAliases  = []string{"PlantaId", "PlantaID", "IdPlanta"}
	plantNameAlias  = []string{"NomedaUnidade", "NomeDaUnidade", "Nome", "Title"}
	truckIDAliases  = []string{"CaminhaoId", "CaminhaoID", "IdCaminhao"}
	platesAliases   = []string{"Placa", "Title"}
	driverIDAliases = []string{"MotoristaId", "MotoristaID"}
	driverNameAlias = []string{"NomedoMotorista", "NomeDoMotorista", "Nome", "Title"}

	userLoginAliases = []string{"LoginUsuario", "Login", "Title"}
	userNameAliases  = []string{"NomeCompleto", "Nome"}
	userPassAliases  = []string{"SenhaUsuario", "Senha"}
	userLevelAliases = []string{"NivelAcesso", "Nivel"}

	justTextAliases = []string{"Justificativa", "Texto", "Title"}
	justKindAliases = []string{"TipoJustificativa", "Tipo"}

	loadTypeAliases     = []string{"TipoCarga", "Tipo"}
	loadCreatedAliases  = []string{"DataCriacao", "Created"}
	loadStartAliases    = []string{"DataInicio", "Inicio"}
	loadKmAliases       = []string{"KmPrevisto", "KMPrevisto"}
	loadReturnAliases   = []string{"VoltaPrevista"}
	loadStatusAliases   = []string{"StatusCarga", "Status"}
	loadRouteAliases    = []string{"Rota", "Roteiro"}
	loadRealKmAliases   = []string{"KmReal", "KMReal"}
	loadArrivalAliases  = []string{"ChegadaReal"}
	loadGapAliases      = []string{"Diff1_Gap"}
	loadGapJustAliases  = []string{"Diff1_Justificativa", "Diff1_Jusitificativa"}
	loadDelayAliases    = []string{"Diff2_x002e_Atraso", "Diff2_Atraso", "Diff2.Atraso"}
	loadDelJustAliases  = []string{"Diff2_x002e_Justificativa", "Diff2_Justificativa", "Diff2.Justificativa"}
)

// Plant normalizes one raw plant record.
func Plant(item graph.Item) models.Plant {
	return models.Plant{
		ID:      strings.TrimSpace(item.ID),
		PlantID: firstString(item.Fields, plantIDAliases...),
		Name:    firstString(item.Fields, plantNameAlias...),
	}
}

// Truck normalizes one raw truck record. A missing plant reference is kept
// as-is; orphaned records are never dropped.
func Truck(item graph.Item) models.Truck {
	return models.Truck{
		ID:      strings.TrimSpace(item.ID),
		TruckID: firstString(item.Fields, truckIDAliases...),
		Plate:   strings.ToUpper(firstString(item.Fields, platesAliases...)),
		PlantID: firstString(item.Fields, plantIDAliases...),
	}
}

// Driver normalizes one raw driver record.
func Driver(item graph.Item) models.Driver {
	return models.Driver{
		ID:       strings.TrimSpace(item.ID),
		DriverID: firstString(item.Fields, driverIDAliases...),
		Name:     firstString(item.Fields, driverNameAlias...),
		PlantID:  firstString(item.Fields, plantIDAliases...),
	}
}

// User normalizes one raw user record, folding the legacy access-level
// tokens onto the two-value role enum.
func User(item graph.Item) models.User {
	return models.User{
		ID:          strings.TrimSpace(item.ID),
		Login:       firstString(item.Fields, userLoginAliases...),
		Name:        firstString(item.Fields, userNameAliases...),
		Password:    firstRawString(item.Fields, userPassAliases...),
		AccessLevel: FoldRole(firstString(item.Fields, userLevelAliases...)),
		PlantID:     firstString(item.Fields, plantIDAliases...),
	}
}

// Justification normalizes one closing-reason lookup record.
func Justification(item graph.Item) models.Justification {
	return models.Justification{
		ID:   strings.TrimSpace(item.ID),
		Text: firstString(item.Fields, justTextAliases...),
		Kind: FoldJustificationKind(firstString(item.Fields, justKindAliases...)),
	}
}

// Load normalizes one raw load record. Required dates default to now when
// absent or unparseable; closing fields stay nil until present.
func Load(item graph.Item, now time.Time) models.Load {
	l := models.Load{
		LoadID:           strings.TrimSpace(item.ID),
		PlantID:          firstString(item.Fields, plantIDAliases...),
		TruckID:          firstString(item.Fields, truckIDAliases...),
		DriverID:         firstString(item.Fields, driverIDAliases...),
		Type:             FoldLoadType(firstString(item.Fields, loadTypeAliases...)),
		CreatedAt:        timeOr(item.Fields, now, loadCreatedAliases...),
		StartAt:          timeOr(item.Fields, now, loadStartAliases...),
		ExpectedKm:       numberOrZero(item.Fields, loadKmAliases...),
		ExpectedReturnAt: timeOr(item.Fields, now, loadReturnAliases...),
		Status:           FoldStatus(firstString(item.Fields, loadStatusAliases...)),
		Route:            firstString(item.Fields, loadRouteAliases...),

		GapJustification:   firstString(item.Fields, loadGapJustAliases...),
		DelayJustification: firstString(item.Fields, loadDelJustAliases...),
	}
	if km, ok := firstNumber(item.Fields, loadRealKmAliases...); ok {
		l.ActualKm = &km
	}
	if t, ok := firstTime(item.Fields, loadArrivalAliases...); ok {
		l.ActualArrivalAt = &t
	}
	if n, ok := firstNumber(item.Fields, loadGapAliases...); ok {
		gap := int(n)
		l.GapMinutes = &gap
	}
	if n, ok := firstNumber(item.Fields, loadDelayAliases...); ok {
		delay := int(n)
		l.DelayMinutes = &delay
	}
	return l
}

// FoldStatus maps the legacy status tokens onto the two-value enum. Anything
// unrecognized is treated as still pending.
func FoldStatus(raw string) models.LoadStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "FINALIZADA", "CONCLUIDO", "DONE":
		return models.StatusDone
	default:
		return models.StatusPending
	}
}

// FoldLoadType maps legacy load-type tokens onto the canonical enum.
func FoldLoadType(raw string) models.LoadType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "COMBINADA 2", "COMBINADA2", "COMBINED_2":
		return models.LoadCombined
	default:
		return models.LoadFull
	}
}

// FoldRole maps legacy access-level tokens onto the role enum.
func FoldRole(raw string) models.Role {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ADMIN", "ADMINISTRADOR":
		return models.RoleAdmin
	default:
		return models.RoleOperator
	}
}

// FoldJustificationKind maps legacy kind tokens; delay was historically
// spelled "ATRASO".
func FoldJustificationKind(raw string) models.JustificationKind {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DELAY", "ATRASO":
		return models.JustificationDelay
	default:
		return models.JustificationGap
	}
}

// firstString resolves the first present alias and coerces it to a trimmed
// string. Numbers stored as strings (and vice versa) are tolerated.
func firstString(fields map[string]any, aliases ...string) string {
	for _, alias := range aliases {
		if v, ok := fields[alias]; ok && v != nil {
			return strings.TrimSpace(stringify(v))
		}
	}
	return ""
}

// firstRawString is firstString without trimming, for credential fields
// where surrounding whitespace is significant.
func firstRawString(fields map[string]any, aliases ...string) string {
	for _, alias := range aliases {
		if v, ok := fields[alias]; ok && v != nil {
			return stringify(v)
		}
	}
	return ""
}

func firstNumber(fields map[string]any, aliases ...string) (float64, bool) {
	for _, alias := range aliases {
		v, ok := fields[alias]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f, true
			}
		}
		return 0, false
	}
	return 0, false
}

func numberOrZero(fields map[string]any, aliases ...string) float64 {
	n, _ := firstNumber(fields, aliases...)
	return n
}

// dateLayouts covers the formats observed in the remote lists.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func firstTime(fields map[string]any, aliases ...string) (time.Time, bool) {
	for _, alias := range aliases {
		v, ok := fields[alias]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case time.Time:
			return t, true
		case string:
			s := strings.TrimSpace(t)
			for _, layout := range dateLayouts {
				if parsed, err := time.Parse(layout, s); err == nil {
					return parsed, true
				}
			}
		}
		return time.Time{}, false
	}
	return time.Time{}, false
}

func timeOr(fields map[string]any, fallback time.Time, aliases ...string) time.Time {
	if t, ok := firstTime(fields, aliases...); ok {
		return t
	}
	return fallback
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}
