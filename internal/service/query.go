package service

import (
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gowenong/where-in-the-world/internal/db"
)

const defaultSearchLimit = 10

type (
	// PersonFilter criteria combine with AND; the tag set matches any.
	PersonFilter struct {
		Starred  *bool
		Tags     []string
		Country  *string
		City     *string
		Location *string
	}

	// SearchResult is the typeahead projection, relations excluded.
	SearchResult struct {
		ID      uint64
		Name    string
		Country *string
		City    *string
	}

	Query struct {
		db     *gorm.DB
		logger *zap.SugaredLogger
	}
)

func NewQuery(db *gorm.DB, l *zap.SugaredLogger) *Query {
	return &Query{
		db:     db,
		logger: l,
	}
}

func (s *Query) Get(id uint64) (*db.Person, error) {
	return loadPerson(s.db, id)
}

func (s *Query) Search(q string, limit int) ([]SearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results := make([]SearchResult, 0)
	res := s.db.Model(&db.Person{}).
		Select("id", "name", "country", "city").
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%").
		Limit(limit).
		Scan(&results)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "search persons")
	}
	return results, nil
}

// Filter selects matching person ids with one joined query, then loads
// the full records. No criteria means everyone.
func (s *Query) Filter(f PersonFilter) ([]db.Person, error) {
	q := squirrel.
		Select("DISTINCT p.id").From("people p").
		LeftJoin("person_tags pt ON p.id = pt.person_id").
		LeftJoin("tags t ON pt.tag_id = t.id").
		LeftJoin("person_locations pl ON p.id = pl.person_id").
		LeftJoin("visited_locations l ON pl.visited_location_id = l.id").
		OrderBy("p.id")

	if f.Starred != nil {
		q = q.Where(squirrel.Eq{"p.is_starred": *f.Starred})
	}
	if len(f.Tags) != 0 {
		lowered := make([]string, 0, len(f.Tags))
		for _, t := range dedup(f.Tags) {
			lowered = append(lowered, strings.ToLower(t))
		}
		q = q.Where(squirrel.Eq{"LOWER(t.name)": lowered})
	}
	if f.Country != nil {
		q = q.Where("LOWER(p.country) = ?", strings.ToLower(strings.TrimSpace(*f.Country)))
	}
	if f.City != nil {
		q = q.Where("LOWER(p.city) = ?", strings.ToLower(strings.TrimSpace(*f.City)))
	}
	if f.Location != nil {
		q = q.Where("LOWER(l.name) = ?", strings.ToLower(strings.TrimSpace(*f.Location)))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	ids := make([]uint64, 0)
	res := s.db.Raw(sql, args...).Scan(&ids)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan ids")
	}
	if len(ids) == 0 {
		return []db.Person{}, nil
	}

	people := make([]db.Person, 0, len(ids))
	res = s.db.
		Preload("Tags").
		Preload("VisitedLocations").
		Preload("CountryCity").
		Order("id").
		Find(&people, ids)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "load persons")
	}
	return people, nil
}

// TagNames returns every distinct tag value, for the filter UI.
func (s *Query) TagNames() ([]string, error) {
	names := make([]string, 0)
	res := s.db.Model(&db.Tag{}).Order("name").Pluck("name", &names)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "list tags")
	}
	return names, nil
}
