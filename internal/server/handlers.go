package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Assassin199108/pokemon-agent-backend/internal/agent"
	"github.com/Assassin199108/pokemon-agent-backend/internal/scraper"
	"github.com/Assassin199108/pokemon-agent-backend/internal/store"
	"github.com/Assassin199108/pokemon-agent-backend/internal/telemetry"
	"github.com/Assassin199108/pokemon-agent-backend/internal/webcache"
	"github.com/Assassin199108/pokemon-agent-backend/models"
)

// PokemonHandler exposes the pipeline and agent over the versioned API
type PokemonHandler struct {
	Scraper   *scraper.Scraper
	Agent     *agent.Agent
	Cache     *webcache.Cache
	Store     *store.Store // nil when persistence is not configured
	Telemetry *telemetry.Telemetry
}

func (h *PokemonHandler) Register(g *echo.Group) {
	g.POST("/pokemon/info", h.info)
	g.POST("/pokemon/react-info", h.reactInfo)
	g.GET("/pokemon/:name/history", h.history)
	g.GET("/cache/stats", h.cacheStats)
	g.DELETE("/cache", h.cacheClear)
	g.GET("/stats", h.stats)
}

type infoRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (h *PokemonHandler) info(c echo.Context) error {
	var req infoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" && req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name or url required")
	}

	var out scraper.Outcome
	if req.URL != "" {
		out = h.Scraper.ScrapeURL(c.Request().Context(), req.Name, req.URL)
	} else {
		out = h.Scraper.ScrapeByName(c.Request().Context(), req.Name)
	}
	if out.Result != nil {
		return c.JSON(http.StatusOK, out.Result)
	}
	return c.JSON(statusFor(out.Error.ErrorType), out.Error)
}

type reactRequest struct {
	Name string `json:"name"`
}

func (h *PokemonHandler) reactInfo(c echo.Context) error {
	var req reactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}

	res, err := h.Agent.Run(c.Request().Context(), req.Name)
	if err != nil {
		envelope := models.NewErrorResponse(models.ErrorTypeAgent, "", err)
		code := http.StatusInternalServerError
		if errors.Is(err, agent.ErrBudgetExhausted) {
			code = http.StatusGatewayTimeout
		}
		return c.JSON(code, envelope)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"answer":     res.Answer,
		"iterations": res.Iterations,
		"elapsed_ms": res.ElapsedMS,
	})
}

func (h *PokemonHandler) history(c echo.Context) error {
	if h.Store == nil {
		return echo.NewHTTPError(http.StatusNotFound, "persistence not configured")
	}
	name := c.Param("name")
	recs, err := h.Store.History(c.Request().Context(), name, 20)
	if err != nil {
		if errors.Is(err, models.ErrExtractionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no extractions for "+name)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(recs) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no extractions for "+name)
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *PokemonHandler) cacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Cache.Stats(c.Request().Context()))
}

func (h *PokemonHandler) cacheClear(c echo.Context) error {
	if err := h.Cache.Clear(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.Cache.ResetStats()
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *PokemonHandler) stats(c echo.Context) error {
	resp := map[string]interface{}{
		"session": h.Scraper.Stats(),
	}
	if h.Store != nil {
		if persisted, err := h.Store.Stats(c.Request().Context()); err == nil {
			resp["persisted"] = persisted
		}
	}
	if h.Telemetry != nil {
		resp["cost"] = h.Telemetry.GetCostSummary()
	}
	return c.JSON(http.StatusOK, resp)
}

// statusFor maps the pipeline error taxonomy onto HTTP status codes
func statusFor(errorType string) int {
	switch errorType {
	case models.ErrorTypeTimeout:
		return http.StatusRequestTimeout
	case models.ErrorTypeValidation, models.ErrorTypeEmptyContent, models.ErrorTypeInsufficientContent:
		return http.StatusUnprocessableEntity
	case models.ErrorTypeNetwork, models.ErrorTypeHTTPStatus, models.ErrorTypeSearch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
