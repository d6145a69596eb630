// Package scim serves the SCIM 2.0 Users endpoint.
package scim

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/scim-bridge/scim-bridge/internal/auth"
	"github.com/scim-bridge/scim-bridge/internal/config"
	"github.com/scim-bridge/scim-bridge/internal/provision"
	"github.com/scim-bridge/scim-bridge/internal/web/handler"
)

const (
	// Path is the base path of the Users resource.
	Path = "/scim/v2/Users"

	// DefaultPageSize is the count used when a list request has none.
	DefaultPageSize = 100
)

// Service is the SCIM Users handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	prov      *provision.Service
	validator XValidator
}

var (
	// Handler is the SCIM Users handler.
	Handler = Service{}
)

// Init registers the Users routes behind bearer authentication.
func (s *Service) Init(app *fiber.App, cfg *config.Config, prov *provision.Service, authService *auth.Service) {
	if app == nil || cfg == nil || prov == nil {
		log.Fatal().Msg(handler.ErrNilACPFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.prov = prov
	s.validator = NewValidator()

	users := app.Group(Path, auth.RequireBearer(authService))
	users.Post("", s.Create)
	users.Get("", s.List)
	users.Get("/:id", s.Get)
	users.Patch("/:id", s.Patch)
	users.Delete("/:id", s.Delete)
}

// Create handles POST /scim/v2/Users.
func (s *Service) Create(c *fiber.Ctx) error {
	var in User
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return sendError(c, fiber.StatusBadRequest, typeInvalidSyntax, "Invalid JSON body: "+err.Error())
	}

	if errs := s.validator.Validate(&in); len(errs) > 0 {
		return sendError(c, fiber.StatusBadRequest, typeInvalidValue, detail(errs))
	}

	res, err := s.prov.Create(c.UserContext(), eventFromUser(&in))

	var warnings []string

	switch {
	case err == nil:
	case errors.Is(err, provision.ErrPartial):
		warnings = append(warnings, err.Error())
	case errors.Is(err, provision.ErrPrincipalRequired):
		return sendError(c, fiber.StatusBadRequest, typeInvalidValue, err.Error())
	default:
		return sendError(c, fiber.StatusInternalServerError, "", "Internal error creating user: "+err.Error())
	}

	out := userFromResult(res, s.cfg.Webserver.URL)
	out.ExternalID = in.ExternalID
	out.Title = in.Title
	out.Department = in.Department
	out.Extension.Warnings = warnings

	c.Location(out.Meta.Location)

	return c.Status(fiber.StatusCreated).JSON(out, ContentType)
}

// Get handles GET /scim/v2/Users/:id.
func (s *Service) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	res, err := s.prov.Get(id)
	if err != nil {
		return s.lookupError(c, id, err)
	}

	return c.JSON(userFromResult(res, s.cfg.Webserver.URL), ContentType)
}

// List handles GET /scim/v2/Users with startIndex, count and an optional
// `attribute eq "value"` filter.
func (s *Service) List(c *fiber.Ctx) error {
	startIndex := c.QueryInt("startIndex", 1)
	count := c.QueryInt("count", DefaultPageSize)

	if startIndex < 1 {
		return sendError(c, fiber.StatusBadRequest, typeInvalidValue, "startIndex must be at least 1")
	}

	if count < 1 || count > s.cfg.SCIM.MaxPageSize {
		return sendError(c, fiber.StatusBadRequest, typeInvalidValue, "count out of range")
	}

	var (
		page  []*provision.Result
		total int
		err   error
	)

	if filter := c.Query("filter"); filter != "" {
		page, total, err = s.filtered(filter, startIndex, count)
		if errors.Is(err, errUnsupportedFilter) {
			return sendError(c, fiber.StatusBadRequest, typeInvalidFilter, err.Error())
		}
	} else {
		page, total, err = s.prov.List(startIndex, count)
	}

	if err != nil {
		return sendError(c, fiber.StatusInternalServerError, "", "Internal error listing users: "+err.Error())
	}

	resources := make([]User, 0, len(page))
	for _, res := range page {
		resources = append(resources, userFromResult(res, s.cfg.Webserver.URL))
	}

	return c.JSON(ListResponse{
		Schemas:      []string{SchemaListResponse},
		TotalResults: total,
		StartIndex:   startIndex,
		ItemsPerPage: len(resources),
		Resources:    resources,
	}, ContentType)
}

func (s *Service) filtered(filter string, startIndex, count int) ([]*provision.Result, int, error) {
	match, err := filterFunc(filter)
	if err != nil {
		return nil, 0, err
	}

	all, _, err := s.prov.List(1, math.MaxInt32)
	if err != nil {
		return nil, 0, err
	}

	var hits []*provision.Result

	for _, res := range all {
		if match(res) {
			hits = append(hits, res)
		}
	}

	if startIndex > len(hits) {
		return []*provision.Result{}, len(hits), nil
	}

	return hits[startIndex-1 : min(startIndex-1+count, len(hits))], len(hits), nil
}

// Patch handles PATCH /scim/v2/Users/:id.
func (s *Service) Patch(c *fiber.Ctx) error {
	id := c.Params("id")

	var in PatchOp
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return sendError(c, fiber.StatusBadRequest, typeInvalidSyntax, "Invalid JSON body: "+err.Error())
	}

	// providers differ in the case of op
	for i := range in.Operations {
		in.Operations[i].Op = strings.ToLower(strings.TrimSpace(in.Operations[i].Op))
	}

	if errs := s.validator.Validate(&in); len(errs) > 0 {
		return sendError(c, fiber.StatusBadRequest, typeInvalidValue, detail(errs))
	}

	req, err := patchRequest(in.Operations)
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, typeInvalidValue, err.Error())
	}

	res, err := s.prov.Patch(c.UserContext(), id, req)

	var warnings []string

	switch {
	case err == nil:
	case errors.Is(err, provision.ErrPartial):
		warnings = append(warnings, err.Error())
	default:
		return s.lookupError(c, id, err)
	}

	out := userFromResult(res, s.cfg.Webserver.URL)
	out.Extension.YAMLPRURL = res.ReviewURL
	out.Extension.PRURL = ""
	out.Extension.Warnings = warnings

	return c.JSON(out, ContentType)
}

// Delete handles DELETE /scim/v2/Users/:id. The identity is deactivated
// and removed from every group, its document stays in the repository.
func (s *Service) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	_, err := s.prov.Deactivate(c.UserContext(), id)

	switch {
	case err == nil:
	case errors.Is(err, provision.ErrPartial):
		log.Warn().Err(err).Str("id", id).Msg("user partially deprovisioned")
	default:
		return s.lookupError(c, id, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Service) lookupError(c *fiber.Ctx, id string, err error) error {
	if errors.Is(err, provision.ErrUserNotFound) {
		return sendError(c, fiber.StatusNotFound, "", "User not found: "+id)
	}

	log.Error().Err(err).Str("id", id).Msg("scim request failed")

	return sendError(c, fiber.StatusInternalServerError, "", "Internal error: "+err.Error())
}
