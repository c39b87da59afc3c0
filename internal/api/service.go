// Package api serves a read-only status surface for dashboards: health, metrics, schedules and leaderboards.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/slots"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type Service struct {
	storage  *storage.Storage
	resolver *slots.Resolver
	now      func() time.Time
}

func NewService(storage *storage.Storage, resolver *slots.Resolver) *Service {
	return &Service{
		storage:  storage,
		resolver: resolver,
		now:      time.Now,
	}
}

func (s *Service) Register(e *echo.Echo) {
	e.GET("/healthz", s.HandleHealth())
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/groups/:id/leaderboard", s.HandleLeaderboard())
	e.GET("/groups/:id/slots", s.HandleSlots())
	e.GET("/groups/:id/members/:user/activity", s.HandleActivity())
}

func (s *Service) HandleHealth() echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.storage.Ping(c.Request().Context()); err != nil {
			logrus.Errorf("health check failed: %v", err)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}

type leaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Earned   int    `json:"earned"`
	Knockout int    `json:"knockout"`
	Net      int    `json:"net"`
	Day      int    `json:"day"`
}

func (s *Service) HandleLeaderboard() echo.HandlerFunc {
	return func(c echo.Context) error {
		groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid group id"})
		}
		limit, err := limitParam(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}

		top, err := s.storage.Leaderboard(c.Request().Context(), groupID, limit)
		if err != nil {
			logrus.Errorf("failed to get leaderboard for %d: %v", groupID, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to get leaderboard"})
		}

		entries := make([]leaderboardEntry, 0, len(top))
		for i, m := range top {
			entries = append(entries, leaderboardEntry{
				Rank:     i + 1,
				UserID:   m.UserID,
				Name:     m.DisplayName(),
				Earned:   m.TotalPoints,
				Knockout: m.KnockoutPoints,
				Net:      m.NetScore(),
				Day:      m.DayNumber,
			})
		}
		return c.JSON(http.StatusOK, echo.Map{"group_id": groupID, "leaderboard": entries})
	}
}

type slotView struct {
	ID     uint            `json:"id"`
	Name   string          `json:"name"`
	Start  string          `json:"start"`
	End    string          `json:"end"`
	Type   models.SlotType `json:"type"`
	Points int             `json:"points"`
	Active bool            `json:"active"`
}

func (s *Service) HandleSlots() echo.HandlerFunc {
	return func(c echo.Context) error {
		groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid group id"})
		}

		ctx := c.Request().Context()
		list, err := s.storage.ListSlots(ctx, groupID)
		if err != nil {
			logrus.Errorf("failed to list slots for %d: %v", groupID, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list slots"})
		}

		now := s.now().In(s.resolver.Location())
		active, _ := slots.Pick(list, now)

		views := make([]slotView, 0, len(list))
		for _, slot := range list {
			views = append(views, slotView{
				ID:     slot.ID,
				Name:   slot.Name,
				Start:  slot.StartTime,
				End:    slot.EndTime,
				Type:   slot.Type,
				Points: slot.Points,
				Active: active != nil && active.ID == slot.ID,
			})
		}
		return c.JSON(http.StatusOK, echo.Map{"group_id": groupID, "day": s.resolver.Day(now), "slots": views})
	}
}

func (s *Service) HandleActivity() echo.HandlerFunc {
	return func(c echo.Context) error {
		groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid group id"})
		}
		userID, err := strconv.ParseInt(c.Param("user"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
		}
		limit, err := limitParam(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}

		ctx := c.Request().Context()
		member, err := s.storage.GetMember(ctx, groupID, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
		}
		if err != nil {
			logrus.Errorf("failed to get member %d/%d: %v", groupID, userID, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to get member"})
		}

		logs, err := s.storage.ActivityLogs(ctx, groupID, userID, limit)
		if err != nil {
			logrus.Errorf("failed to get activity for %d/%d: %v", groupID, userID, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to get activity"})
		}
		return c.JSON(http.StatusOK, echo.Map{"member": member, "activity": logs})
	}
}

func limitParam(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > maxLimit {
		return 0, errors.New("limit must be between 1 and 100")
	}
	return limit, nil
}
