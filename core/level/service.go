package level

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var ErrNotFound = errors.New("level not found")

type (
	Repository interface {
		CreateLevel(ctx context.Context, lvl Level) (Level, error)
		GetLevel(ctx context.Context, id string) (Level, error)
		// ListLevels returns every level ordered by min points.
		ListLevels(ctx context.Context) ([]Level, error)
		UpdateLevel(ctx context.Context, lvl Level) (Level, error)
		DeleteLevel(ctx context.Context, id string) error
	}

	// Cache keeps the ordered levels; a miss is reported with ok == false.
	Cache interface {
		GetLevels(ctx context.Context) (levels []Level, ok bool, err error)
		SetLevels(ctx context.Context, levels []Level) error
		InvalidateLevels(ctx context.Context) error
	}

	ServiceInterface interface {
		List(ctx context.Context) ([]Level, error)
		Get(ctx context.Context, id string) (Level, error)
		Create(ctx context.Context, nl NewLevel) (Level, error)
		Update(ctx context.Context, id string, ul UpdateLevel) (Level, error)
		Delete(ctx context.Context, id string) error
		Journey(ctx context.Context, points int) (Journey, error)
		CheckIntegrity(ctx context.Context) error
		WarmCache(ctx context.Context) error
	}

	Service struct {
		repo   Repository
		cache  Cache // optional
		logger core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

// NewService returns the levels service; cache may be nil.
func NewService(repo Repository, cache Cache, logger core.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// List returns the levels ordered by min points, from the cache when possible.
func (svc *Service) List(ctx context.Context) ([]Level, error) {
	if svc.cache != nil {
		levels, ok, err := svc.cache.GetLevels(ctx)
		if err != nil {
			svc.logger.Warn("reading levels cache", err)
		} else if ok {
			return levels, nil
		}
	}

	levels, err := svc.repo.ListLevels(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing levels")
	}
	if svc.cache != nil {
		if err = svc.cache.SetLevels(ctx, levels); err != nil {
			svc.logger.Warn("writing levels cache", err)
		}
	}
	return levels, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Level, error) {
	return svc.repo.GetLevel(ctx, id)
}

// checkWith validates the ladder made of the stored levels where lvl replaces (or joins) them.
func (svc *Service) checkWith(ctx context.Context, lvl Level) error {
	levels, err := svc.repo.ListLevels(ctx)
	if err != nil {
		return errors.Wrap(err, "listing levels")
	}
	ladder := make([]Level, 0, len(levels)+1)
	for _, l := range levels {
		if lvl.ID == "" || l.ID != lvl.ID {
			ladder = append(ladder, l)
		}
	}
	return asValidationError(Validate(append(ladder, lvl)))
}

func asValidationError(err error) error {
	var ierr *IntegrityError
	if !errors.As(err, &ierr) {
		return err
	}
	flds := make([]core.FieldError, len(ierr.Issues))
	for i, iss := range ierr.Issues {
		flds[i] = core.FieldError{Field: "levels", Error: iss.String()}
	}
	return core.NewValidationError(err, flds...)
}

// Create adds a level; the resulting ladder must stay contiguous.
func (svc *Service) Create(ctx context.Context, nl NewLevel) (Level, error) {
	lvl := Level{
		Name:      nl.Name,
		Icon:      nl.Icon,
		MinPoints: nl.MinPoints,
		MaxPoints: nl.MaxPoints,
	}
	if err := svc.checkWith(ctx, lvl); err != nil {
		return Level{}, err
	}
	lvl, err := svc.repo.CreateLevel(ctx, lvl)
	if err != nil {
		return Level{}, errors.Wrap(err, "creating level")
	}
	svc.invalidate(ctx)
	return lvl, nil
}

func (svc *Service) Update(ctx context.Context, id string, ul UpdateLevel) (Level, error) {
	lvl, err := svc.repo.GetLevel(ctx, id)
	if err != nil {
		return Level{}, err
	}
	lvl = ul.Apply(lvl)
	if err = svc.checkWith(ctx, lvl); err != nil {
		return Level{}, err
	}
	if lvl, err = svc.repo.UpdateLevel(ctx, lvl); err != nil {
		return Level{}, errors.Wrap(err, "updating level")
	}
	svc.invalidate(ctx)
	return lvl, nil
}

// Delete removes a level. Deleting a middle tier leaves a gap, which CheckIntegrity reports.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteLevel(ctx, id); err != nil {
		return err
	}
	svc.invalidate(ctx)
	return nil
}

func (svc *Service) invalidate(ctx context.Context) {
	if svc.cache == nil {
		return
	}
	if err := svc.cache.InvalidateLevels(ctx); err != nil {
		svc.logger.Warn("invalidating levels cache", err)
	}
}

// Journey resolves the journey of a user having points.
func (svc *Service) Journey(ctx context.Context, points int) (Journey, error) {
	levels, err := svc.List(ctx)
	if err != nil {
		return Journey{}, err
	}
	return ResolveJourney(levels, points), nil
}

// CheckIntegrity validates the stored levels, bypassing the cache.
func (svc *Service) CheckIntegrity(ctx context.Context) error {
	levels, err := svc.repo.ListLevels(ctx)
	if err != nil {
		return errors.Wrap(err, "listing levels")
	}
	return Validate(levels)
}

// WarmCache reloads the cache from the store.
func (svc *Service) WarmCache(ctx context.Context) error {
	if svc.cache == nil {
		return nil
	}
	levels, err := svc.repo.ListLevels(ctx)
	if err != nil {
		return errors.Wrap(err, "listing levels")
	}
	return errors.Wrap(svc.cache.SetLevels(ctx, levels), "writing levels cache")
}
