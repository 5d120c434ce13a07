package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/landplot/internal/core/domain"
)

const maxBulkDelete = 500

// ListLandsHandler returns one page of land records matching the query
// filters. The total number of matches is sent in X-Total-Count.
func ListLandsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter, err := parseLandFilter(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		lands, total, err := deps.Lands.List(c.UserContext(), filter)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("list lands", "error", err)
			return errInternal(c, "failed to list lands")
		}

		pg := Pagination{Offset: filter.Offset, Limit: filter.Limit, Total: total}
		SetLinkHeaders(c, pg)
		c.Set("X-Total-Count", strconv.Itoa(total))
		return c.JSON(lands)
	}
}

// GetLandHandler returns a single land record.
func GetLandHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := landID(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		land, err := deps.Lands.GetByID(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err, "land not found")
		}
		if land.Polygons == nil {
			land.Polygons = []domain.Polygon{}
		}
		return c.JSON(land)
	}
}

// CreateLandHandler stores a new land record. Polygons in the body are
// ignored; a new record always starts with none.
func CreateLandHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var land domain.Land
		if err := c.BodyParser(&land); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		if err := deps.Lands.Create(c.UserContext(), &land); err != nil {
			return serviceError(c, err, "")
		}
		c.Location("/lands/" + strconv.FormatInt(land.ID, 10))
		return c.Status(fiber.StatusCreated).JSON(land)
	}
}

// UpdateLandHandler merges the body into a land record. A body that only
// carries "polygons" replaces the polygon collection wholesale.
func UpdateLandHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := landID(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		var patch domain.LandPatch
		if err := c.BodyParser(&patch); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if patch.Polygons != nil {
			if err := validatePolygons(*patch.Polygons); err != nil {
				return errBadRequest(c, err.Error())
			}
		}

		land, err := deps.Lands.Update(c.UserContext(), id, patch)
		if err != nil {
			return serviceError(c, err, "land not found")
		}
		return c.JSON(land)
	}
}

// DeleteLandHandler removes a land record.
func DeleteLandHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := landID(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		if err := deps.Lands.Delete(c.UserContext(), id); err != nil {
			return serviceError(c, err, "land not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// BulkDeleteHandler deletes several records in order. With a workflow
// engine configured the job is accepted and runs in the background.
func BulkDeleteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req bulkDeleteRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.IDs) == 0 {
			return errBadRequest(c, "ids must not be empty")
		}
		if len(req.IDs) > maxBulkDelete {
			return errBadRequest(c, "too many ids (max 500)")
		}
		for _, id := range req.IDs {
			if id <= 0 {
				return errBadRequest(c, "ids must be positive integers")
			}
		}

		if deps.BulkDeleter != nil {
			jobID, err := deps.BulkDeleter.StartBulkDelete(c.UserContext(), req.IDs)
			if err != nil {
				LoggerFromCtx(c.UserContext()).Error("start bulk delete", "error", err)
				return errInternal(c, "failed to start bulk delete")
			}
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": jobID, "count": len(req.IDs)})
		}

		res, err := deps.Lands.BulkDelete(c.UserContext(), req.IDs)
		if err != nil {
			status := fiber.StatusInternalServerError
			if errors.Is(err, domain.ErrNotFound) {
				status = fiber.StatusNotFound
			}
			return c.Status(status).JSON(res)
		}
		return c.JSON(res)
	}
}

// LandAreaHandler returns the geodesic area of each polygon of a record.
func LandAreaHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := landID(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		area, err := deps.Lands.Area(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err, "land not found")
		}
		return c.JSON(area)
	}
}

// LandGeoJSONHandler exports a record's polygons as a GeoJSON
// FeatureCollection.
func LandGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := landID(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		fc, err := deps.Lands.GeoJSON(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err, "land not found")
		}
		data, err := fc.MarshalJSON()
		if err != nil {
			return errInternal(c, "failed to encode geojson")
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// LandEventsHandler returns the recorded change history of a land, newest
// first. The history outlives the record itself.
func LandEventsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.History == nil {
			return errUnavailable(c, "event history is not enabled")
		}
		id, err := landID(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		events, err := deps.History.History(c.UserContext(), id, c.QueryInt("limit", 50))
		if err != nil {
			return serviceError(c, err, "")
		}
		return c.JSON(events)
	}
}

func landID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("land id must be a positive integer")
	}
	return id, nil
}

func parseLandFilter(c *fiber.Ctx) (domain.LandFilter, error) {
	f := domain.LandFilter{
		Query:    c.Query("q"),
		Owner:    c.Query("owner"),
		LandType: c.Query("type"),
		Offset:   c.QueryInt("offset", 0),
		Limit:    c.QueryInt("limit", 50),
	}
	if len(f.Query) > 200 {
		return f, errors.New("query too long (max 200 characters)")
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}

	ranges := []struct {
		key string
		dst *int64
	}{
		{"min_price", &f.MinPrice},
		{"max_price", &f.MaxPrice},
		{"min_size", &f.MinSize},
		{"max_size", &f.MaxSize},
	}
	for _, r := range ranges {
		raw := c.Query(r.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return f, errors.New(r.key + " must be a non-negative integer")
		}
		*r.dst = v
	}
	return f, nil
}

func validatePolygons(polys []domain.Polygon) error {
	for i, p := range polys {
		for _, pt := range p {
			if !pt.Valid() {
				return errors.New("polygon " + strconv.Itoa(i) + " has a coordinate out of range")
			}
		}
	}
	return nil
}

// serviceError maps domain errors onto API errors. notFound overrides the
// message of a 404.
func serviceError(c *fiber.Ctx, err error, notFound string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if notFound == "" {
			notFound = "not found"
		}
		return errNotFound(c, notFound)
	case errors.Is(err, domain.ErrInvalidInput):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return errUnauthorized(c, "login required")
	}
	LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	return errInternal(c, "internal error")
}
