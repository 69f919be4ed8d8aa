package service

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gowenong/where-in-the-world/internal/db"
)

// Normalizer resolves free-text tag/location/country-city values to
// canonical shared rows and removes rows no person references anymore.
// Matching is case-insensitive on trimmed values; the casing of the
// first writer wins. All methods run in the caller's transaction.
type Normalizer struct {
	logger *zap.SugaredLogger
}

func NewNormalizer(l *zap.SugaredLogger) *Normalizer {
	return &Normalizer{
		logger: l,
	}
}

func (n *Normalizer) ResolveTags(tx *gorm.DB, raw []string) ([]db.Tag, error) {
	out := make([]db.Tag, 0, len(raw))
	for _, name := range dedup(raw) {
		tag := db.Tag{}
		res := tx.Where("LOWER(name) = ?", strings.ToLower(name)).First(&tag)
		if res.Error == gorm.ErrRecordNotFound {
			tag = db.Tag{Name: name}
			if res := tx.Create(&tag); res.Error != nil {
				return nil, errors.Wrap(res.Error, "create tag")
			}
		} else if res.Error != nil {
			return nil, errors.Wrap(res.Error, "find tag")
		}
		out = append(out, tag)
	}
	return out, nil
}

func (n *Normalizer) ResolveLocations(tx *gorm.DB, raw []string) ([]db.VisitedLocation, error) {
	out := make([]db.VisitedLocation, 0, len(raw))
	for _, name := range dedup(raw) {
		location := db.VisitedLocation{}
		res := tx.Where("LOWER(name) = ?", strings.ToLower(name)).First(&location)
		if res.Error == gorm.ErrRecordNotFound {
			location = db.VisitedLocation{Name: name}
			if res := tx.Create(&location); res.Error != nil {
				return nil, errors.Wrap(res.Error, "create visited location")
			}
		} else if res.Error != nil {
			return nil, errors.Wrap(res.Error, "find visited location")
		}
		out = append(out, location)
	}
	return out, nil
}

// ResolveCountryCity upserts the (country, city) pair when both are
// present and non-blank. Otherwise it returns nil: the person stays on
// plain scalar fields.
func (n *Normalizer) ResolveCountryCity(tx *gorm.DB, country, city *string) (*db.CountryCity, error) {
	if country == nil || city == nil {
		return nil, nil
	}
	co := strings.TrimSpace(*country)
	ci := strings.TrimSpace(*city)
	if co == "" || ci == "" {
		return nil, nil
	}

	pair := db.CountryCity{}
	res := tx.Where("LOWER(country) = ? AND LOWER(city) = ?", strings.ToLower(co), strings.ToLower(ci)).First(&pair)
	if res.Error == gorm.ErrRecordNotFound {
		pair = db.CountryCity{Country: co, City: ci}
		if res := tx.Create(&pair); res.Error != nil {
			return nil, errors.Wrap(res.Error, "create country city")
		}
		return &pair, nil
	}
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "find country city")
	}
	return &pair, nil
}

// Cleanup drops tags, visited locations and country-city pairs with no
// remaining referent. It must run inside the transaction of the
// mutation that may have orphaned them; the NOT EXISTS check re-reads
// references at delete time, so a row a concurrent transaction just
// linked survives.
func (n *Normalizer) Cleanup(tx *gorm.DB) error {
	stmts := []string{
		"DELETE FROM tags WHERE NOT EXISTS (SELECT 1 FROM person_tags WHERE person_tags.tag_id = tags.id)",
		"DELETE FROM visited_locations WHERE NOT EXISTS (SELECT 1 FROM person_locations WHERE person_locations.visited_location_id = visited_locations.id)",
		"DELETE FROM country_cities WHERE NOT EXISTS (SELECT 1 FROM people WHERE people.country_city_id = country_cities.id)",
	}
	for _, stmt := range stmts {
		if res := tx.Exec(stmt); res.Error != nil {
			return errors.Wrap(res.Error, "cleanup orphaned rows")
		}
	}
	return nil
}

// dedup trims entries, drops blanks and keeps the first spelling of
// each case-insensitive duplicate, preserving input order.
func dedup(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}
