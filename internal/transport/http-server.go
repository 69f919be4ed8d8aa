package transport

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gowenong/where-in-the-world/internal/config"
	"github.com/gowenong/where-in-the-world/internal/db"
	"github.com/gowenong/where-in-the-world/internal/models"
	"github.com/gowenong/where-in-the-world/internal/service"
)

type (
	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		mutation *service.Mutation
		query    *service.Query
		logger   *zap.SugaredLogger
	}
)

func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, mutation *service.Mutation, query *service.Query, logger *zap.SugaredLogger) *HTTPServer {
	instance := HTTPServer{
		mutation: mutation,
		query:    query,
		logger:   logger,
	}

	e := instance.echo()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal("shutting down the server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return &instance
}

func (s *HTTPServer) echo() *echo.Echo {
	e := echo.New()

	peopleG := e.Group("/people")
	peopleG.GET("", s.PersonFilter)
	peopleG.GET("/search", s.PersonSearch)
	peopleG.GET("/:id", s.PersonGet)
	peopleG.POST("", s.PersonCreate)
	peopleG.PUT("/:id", s.PersonUpdate)
	peopleG.DELETE("/:id", s.PersonDelete)

	e.GET("/tags", s.TagList)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))

	e.Validator = &CustomValidator{validator: validator.New()}

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	return e
}

func (s *HTTPServer) PersonFilter(c echo.Context) error {
	filter := service.PersonFilter{}

	if v := c.QueryParam("starred"); v != "" {
		starred, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid query param 'starred'")
		}
		filter.Starred = &starred
	}
	if v := c.QueryParam("tags"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Tags = append(filter.Tags, t)
			}
		}
	}
	if v := c.QueryParam("country"); v != "" {
		filter.Country = &v
	}
	if v := c.QueryParam("city"); v != "" {
		filter.City = &v
	}
	if v := c.QueryParam("location"); v != "" {
		filter.Location = &v
	}

	people, err := s.query.Filter(filter)
	if err != nil {
		return httpError(err)
	}

	resp := make([]models.PersonResp, len(people))
	for i := range people {
		resp[i] = toPersonResp(&people[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) PersonSearch(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid query param 'limit'")
		}
		limit = parsed
	}

	results, err := s.query.Search(c.QueryParam("q"), limit)
	if err != nil {
		return httpError(err)
	}

	resp := make([]models.PersonSearchResp, len(results))
	for i := range results {
		resp[i] = models.PersonSearchResp{
			ID:      results[i].ID,
			Name:    results[i].Name,
			Country: results[i].Country,
			City:    results[i].City,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) PersonGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	person, err := s.query.Get(id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toPersonResp(person))
}

func (s *HTTPServer) PersonCreate(c echo.Context) error {
	req := models.PersonCreateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	in := service.PersonInput{
		Name:             req.Name,
		Country:          req.Country,
		City:             req.City,
		Tags:             req.Tags,
		VisitedLocations: req.VisitedLocations,
	}
	if req.IsStarred != nil {
		in.IsStarred = *req.IsStarred
	}

	person, err := s.mutation.Create(in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toPersonResp(person))
}

func (s *HTTPServer) PersonUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := models.PersonUpdateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	person, err := s.mutation.Update(id, service.PersonPatch{
		Name:             req.Name,
		Country:          req.Country,
		City:             req.City,
		IsStarred:        req.IsStarred,
		Tags:             req.Tags,
		VisitedLocations: req.VisitedLocations,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toPersonResp(person))
}

func (s *HTTPServer) PersonDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.mutation.Delete(id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) TagList(c echo.Context) error {
	names, err := s.query.TagNames()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, names)
}

////////

func toPersonResp(p *db.Person) models.PersonResp {
	tags := make([]string, len(p.Tags))
	for i := range p.Tags {
		tags[i] = p.Tags[i].Name
	}
	locations := make([]string, len(p.VisitedLocations))
	for i := range p.VisitedLocations {
		locations[i] = p.VisitedLocations[i].Name
	}
	return models.PersonResp{
		ID:               p.ID,
		Name:             p.Name,
		Country:          p.Country,
		City:             p.City,
		IsStarred:        p.IsStarred,
		Tags:             tags,
		VisitedLocations: locations,
	}
}

func httpError(err error) error {
	switch errors.Cause(err) {
	case service.ErrValidation:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case service.ErrNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func BindAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err = c.Validate(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param 'id'")
	}
	return value, nil
}

func GetAndParseParam(c echo.Context, name string) (uint64, error) {
	v, e := GetParam(c, name)
	if e != nil {
		return 0, e
	}
	vv, e := strconv.ParseUint(v, 10, 64)
	if e != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid path param 'id'")
	}
	return vv, nil
}
