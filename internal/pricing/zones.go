package pricing

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"phlebcare-backend/internal/models"
)

const (
	ZoneStandard  = "standard"
	ZoneLondon    = "london"
	ZoneOutOfArea = "out_of_area"
)

// OutOfAreaMessage is user-facing; out_of_area is a normal result, not an
// error.
const OutOfAreaMessage = "We do not currently cover home visits in your area. Please contact support to arrange collection."

// londonAreas are the postcode area prefixes treated as the london pricing
// zone when no confirmed mapping exists in the database.
var londonAreas = map[string]struct{}{
	"E": {}, "EC": {}, "N": {}, "NW": {}, "SE": {}, "SW": {}, "W": {}, "WC": {},
	"BR": {}, "CR": {}, "DA": {}, "EN": {}, "HA": {}, "IG": {}, "KT": {},
	"RM": {}, "SM": {}, "TW": {}, "UB": {}, "WD": {},
}

// ZoneResult carries the resolved zone plus the latest-version slot rates
// for it. Out-of-area results have no rates and a user-facing message.
type ZoneResult struct {
	Zone    string            `json:"zone"`
	Message string            `json:"message,omitempty"`
	Rates   []models.ZoneRate `json:"rates,omitempty"`
}

// ResolveZone maps a postcode/town to a pricing zone. A previously
// confirmed mapping in postcode_zones wins over the format heuristics.
func (c *Catalog) ResolveZone(ctx context.Context, postcode, town string) (*ZoneResult, error) {
	zone := c.lookupZone(ctx, postcode, town)
	if zone == ZoneOutOfArea {
		return &ZoneResult{Zone: ZoneOutOfArea, Message: OutOfAreaMessage}, nil
	}

	rates, err := c.zoneRates(ctx, zone)
	if err != nil {
		return nil, err
	}
	return &ZoneResult{Zone: zone, Rates: rates}, nil
}

func (c *Catalog) lookupZone(ctx context.Context, postcode, town string) string {
	normalized := normalizePostcode(postcode)

	// Confirmed mappings first.
	var seen models.PostcodeZone
	if normalized != "" {
		err := c.db.WithContext(ctx).Where("postcode = ?", normalized).First(&seen).Error
		if err == nil {
			return seen.Zone
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return ZoneOutOfArea
		}
	}
	if town != "" {
		err := c.db.WithContext(ctx).Where("LOWER(town) = ?", strings.ToLower(town)).First(&seen).Error
		if err == nil {
			return seen.Zone
		}
	}

	// Format heuristics as fallback.
	if area := postcodeArea(normalized); area != "" {
		if _, ok := londonAreas[area]; ok {
			return ZoneLondon
		}
		return ZoneStandard
	}
	if strings.Contains(strings.ToLower(town), "london") {
		return ZoneLondon
	}
	if town != "" {
		return ZoneStandard
	}
	return ZoneOutOfArea
}

// zoneRates returns the rate card at its latest version.
func (c *Catalog) zoneRates(ctx context.Context, zone string) ([]models.ZoneRate, error) {
	var version int
	row := c.db.WithContext(ctx).Model(&models.ZoneRate{}).
		Where("zone = ?", zone).
		Select("COALESCE(MAX(version), 0)")
	if err := row.Scan(&version).Error; err != nil {
		return nil, err
	}

	var rates []models.ZoneRate
	err := c.db.WithContext(ctx).
		Where("zone = ? AND version = ?", zone, version).
		Order("shift_type asc").
		Find(&rates).Error
	return rates, err
}

func normalizePostcode(postcode string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(postcode), " ", ""))
}

// postcodeArea extracts the leading letters of a UK-shaped postcode
// ("SW1A1AA" -> "SW"). Empty when the input does not look like a postcode.
func postcodeArea(normalized string) string {
	if normalized == "" {
		return ""
	}
	i := 0
	for i < len(normalized) && unicode.IsLetter(rune(normalized[i])) {
		i++
	}
	if i == 0 || i > 2 || i == len(normalized) {
		return ""
	}
	if !unicode.IsDigit(rune(normalized[i])) {
		return ""
	}
	return normalized[:i]
}
