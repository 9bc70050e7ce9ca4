package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/cloud"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/detect"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/service"
)

type SubstationLister interface {
	ListSubstations(ctx context.Context) ([]domain.Substation, error)
}

type Runner interface {
	Run(ctx context.Context, opts service.Options) (*service.Report, error)
}

type RunTrigger interface {
	InvokeRunAsync(ctx context.Context, req cloud.RunRequest) error
}

type AlertLog interface {
	RecentAlerts(ctx context.Context, substationID string, limit int32) ([]domain.AlertRecord, error)
}

type ReportStore interface {
	ListReports(ctx context.Context, prefix string) ([]string, error)
}

// Deps are the collaborators behind the API. Trigger, History and Reports
// are optional; their routes answer 503 when unset.
type Deps struct {
	Substations SubstationLister
	Runner      Runner
	Trigger     RunTrigger
	History     AlertLog
	Reports     ReportStore
}

// FromServices picks the API collaborators out of the wired services.
func FromServices(svcs *service.Services) Deps {
	d := Deps{Substations: svcs.Repos, Runner: svcs.Alerts}
	if svcs.Trigger != nil {
		d.Trigger = svcs.Trigger
	}
	if svcs.History != nil {
		d.History = svcs.History
	}
	if svcs.Reports != nil {
		d.Reports = svcs.Reports
	}
	return d
}

type runRequest struct {
	SubstationIDs []string `json:"ss_ids"`
	Detectors     []string `json:"detectors"`
	DevMode       bool     `json:"dev_mode"`
	Async         bool     `json:"async"`
}

func Register(app *fiber.App, d Deps) {
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	g := app.Group("/")
	g.Get("substations", func(c *fiber.Ctx) error {
		items, err := d.Substations.ListSubstations(c.UserContext())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(items)
	})

	g.Post("runs", func(c *fiber.Ctx) error {
		var req runRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return c.Status(400).JSON(fiber.Map{"error": err.Error()})
			}
		}

		if req.Async {
			if d.Trigger == nil {
				return c.Status(503).JSON(fiber.Map{"error": "async runs need cloud services"})
			}
			err := d.Trigger.InvokeRunAsync(c.UserContext(), cloud.RunRequest{
				SubstationIDs: req.SubstationIDs,
				Detectors:     req.Detectors,
				DevMode:       req.DevMode,
			})
			if err != nil {
				return c.Status(502).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(202).JSON(fiber.Map{"status": "queued"})
		}

		rep, err := d.Runner.Run(c.UserContext(), service.Options{
			EntityIDs: req.SubstationIDs,
			Detectors: req.Detectors,
			DevMode:   req.DevMode,
		})
		if err != nil {
			log.Error().Err(err).Msg("run failed")
			var ge *detect.GroupError
			if errors.Is(err, detect.ErrMissingChannel) || errors.As(err, &ge) {
				return c.Status(422).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(rep)
	})

	g.Get("alerts/:id", func(c *fiber.Ctx) error {
		if d.History == nil {
			return c.Status(503).JSON(fiber.Map{"error": "alert history not configured"})
		}
		limit := c.QueryInt("limit", 20)
		if limit <= 0 || limit > 500 {
			return c.Status(400).JSON(fiber.Map{"error": "limit must be between 1 and 500"})
		}
		items, err := d.History.RecentAlerts(c.UserContext(), c.Params("id"), int32(limit))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(items)
	})

	g.Get("reports", func(c *fiber.Ctx) error {
		if d.Reports == nil {
			return c.Status(503).JSON(fiber.Map{"error": "report storage not configured"})
		}
		keys, err := d.Reports.ListReports(c.UserContext(), c.Query("prefix", "summaries/"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(keys)
	})
}
