package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"geoscout/internal/core/query"
)

// searchRequest is the POST /v1/searches body.
type searchRequest struct {
	Query string `json:"query"`
}

// SearchHandler runs the full pipeline over the submitted text and
// returns the published result.
func SearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		return runSearch(c, deps, req.Query)
	}
}

// SearchByQueryHandler is the GET variant for link sharing:
// /v1/searches?q=bus+stops+in+bordeaux.
func SearchByQueryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return runSearch(c, deps, c.Query("q"))
	}
}

func runSearch(c *fiber.Ctx, deps *Dependencies, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errBadRequest(c, "query text is required")
	}

	ctx := c.UserContext()
	LoggerFromCtx(ctx).Debug("search submitted", "query", raw)

	result, err := deps.Search.Search(ctx, raw)
	if err != nil {
		return errSearch(c, err)
	}
	return c.JSON(result)
}

// ResultHandler returns the last published result. It always answers
// 200; before the first search it is the idle zero result.
func ResultHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Search.Current())
	}
}

// ResultFeaturesHandler pages through the feature list of the last
// published result, for clients that render large result sets lazily.
func ResultFeaturesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		feats := deps.Search.Current().Features

		offset, limit := normalizeRange(c.QueryInt("offset", 0), c.QueryInt("limit", 100))
		end := offset + limit
		if offset > len(feats) {
			offset = len(feats)
		}
		if end > len(feats) {
			end = len(feats)
		}

		p := Pagination{Offset: offset, Limit: limit, Total: len(feats)}
		SetLinkHeaders(c, p)
		return c.JSON(PaginatedResponse{Data: feats[offset:end], Pagination: p})
	}
}

// TopicsHandler lists the supported topic keywords and the tag filter
// each resolves to.
func TopicsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		topics := query.TopicFilters()
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fiber.Map{
			"topics": topics,
			"count":  len(topics),
		})
	}
}
