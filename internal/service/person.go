package service

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gowenong/where-in-the-world/internal/db"
)

var (
	ErrNotFound   = errors.New("person not found")
	ErrValidation = errors.New("validation failed")
)

type (
	PersonInput struct {
		Name             string
		Country          *string
		City             *string
		IsStarred        bool
		Tags             []string
		VisitedLocations []string
	}

	// PersonPatch is the tri-state update form: a nil field is left
	// untouched, a present field replaces the stored value outright.
	// For the relation sets that means full replace, never merge;
	// a pointer to an empty slice clears the set.
	PersonPatch struct {
		Name             *string
		Country          *string
		City             *string
		IsStarred        *bool
		Tags             *[]string
		VisitedLocations *[]string
	}

	// Mutation orchestrates person create/update/delete together with
	// relation normalization and orphan cleanup, each call one
	// all-or-nothing transaction.
	Mutation struct {
		db     *gorm.DB
		norm   *Normalizer
		logger *zap.SugaredLogger
	}
)

func NewMutation(db *gorm.DB, norm *Normalizer, l *zap.SugaredLogger) *Mutation {
	return &Mutation{
		db:     db,
		norm:   norm,
		logger: l,
	}
}

func (s *Mutation) Create(in PersonInput) (*db.Person, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.Wrap(ErrValidation, "name must not be blank")
	}

	person := db.Person{
		Name:      name,
		Country:   trimPtr(in.Country),
		City:      trimPtr(in.City),
		IsStarred: in.IsStarred,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		pair, err := s.norm.ResolveCountryCity(tx, in.Country, in.City)
		if err != nil {
			return err
		}
		if pair != nil {
			person.CountryCityID = &pair.ID
		}

		tags, err := s.norm.ResolveTags(tx, in.Tags)
		if err != nil {
			return err
		}
		locations, err := s.norm.ResolveLocations(tx, in.VisitedLocations)
		if err != nil {
			return err
		}
		person.Tags = tags
		person.VisitedLocations = locations

		if res := tx.Create(&person); res.Error != nil {
			return errors.Wrap(res.Error, "create person")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("person created", "id", person.ID, "name", person.Name)
	return &person, nil
}

func (s *Mutation) Update(id uint64, patch PersonPatch) (*db.Person, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, errors.Wrap(ErrValidation, "name must not be blank")
	}

	var updated *db.Person
	err := s.db.Transaction(func(tx *gorm.DB) error {
		person := db.Person{}
		res := tx.First(&person, id)
		if res.Error == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		if res.Error != nil {
			return errors.Wrap(res.Error, "find person")
		}

		if patch.Name != nil {
			person.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.IsStarred != nil {
			person.IsStarred = *patch.IsStarred
		}
		if patch.Country != nil {
			person.Country = trimPtr(patch.Country)
		}
		if patch.City != nil {
			person.City = trimPtr(patch.City)
		}

		// The pair association only holds when the request carries both
		// halves; anything less falls back to the scalar fields.
		person.CountryCityID = nil
		if patch.Country != nil && patch.City != nil {
			pair, err := s.norm.ResolveCountryCity(tx, patch.Country, patch.City)
			if err != nil {
				return err
			}
			if pair != nil {
				person.CountryCityID = &pair.ID
			}
		}

		if res := tx.Save(&person); res.Error != nil {
			return errors.Wrap(res.Error, "save person")
		}

		if patch.Tags != nil {
			tags, err := s.norm.ResolveTags(tx, *patch.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(&person).Association("Tags").Replace(tags); err != nil {
				return errors.Wrap(err, "replace tags")
			}
		}
		if patch.VisitedLocations != nil {
			locations, err := s.norm.ResolveLocations(tx, *patch.VisitedLocations)
			if err != nil {
				return err
			}
			if err := tx.Model(&person).Association("VisitedLocations").Replace(locations); err != nil {
				return errors.Wrap(err, "replace visited locations")
			}
		}

		if err := s.norm.Cleanup(tx); err != nil {
			return err
		}

		loaded, err := loadPerson(tx, id)
		if err != nil {
			return err
		}
		updated = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("person updated", "id", id)
	return updated, nil
}

func (s *Mutation) Delete(id uint64) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		person := db.Person{}
		res := tx.First(&person, id)
		if res.Error == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		if res.Error != nil {
			return errors.Wrap(res.Error, "find person")
		}

		if err := tx.Model(&person).Association("Tags").Clear(); err != nil {
			return errors.Wrap(err, "clear tags")
		}
		if err := tx.Model(&person).Association("VisitedLocations").Clear(); err != nil {
			return errors.Wrap(err, "clear visited locations")
		}
		if res := tx.Delete(&person); res.Error != nil {
			return errors.Wrap(res.Error, "delete person")
		}

		return s.norm.Cleanup(tx)
	})
	if err != nil {
		return err
	}

	s.logger.Infow("person deleted", "id", id)
	return nil
}

func loadPerson(tx *gorm.DB, id uint64) (*db.Person, error) {
	person := db.Person{}
	res := tx.
		Preload("Tags").
		Preload("VisitedLocations").
		Preload("CountryCity").
		First(&person, id)
	if res.Error == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "load person")
	}
	return &person, nil
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
