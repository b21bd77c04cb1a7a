package internalhttp

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mkovalev/dayboard/internal/app"
	"github.com/mkovalev/dayboard/internal/storage"
)

func (s *Server) createEvent(c echo.Context) error {
	owner := c.Request().Header.Get(ownerHeader)
	if owner == "" {
		return writeError(c, storage.NewValidationError("request", ownerHeader, "owner header is required"))
	}
	var req app.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, storage.NewValidationError("request", "body", err.Error()))
	}
	e, err := s.app.CreateEvent(c.Request().Context(), owner, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (s *Server) listEvents(c echo.Context) error {
	from, err := parseTimeParam(c, "from")
	if err != nil {
		return writeError(c, err)
	}
	to, err := parseTimeParam(c, "to")
	if err != nil {
		return writeError(c, err)
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))

	filter := storage.EventFilter{
		OwnerID:   c.Request().Header.Get(ownerHeader),
		From:      from,
		To:        to,
		EventType: c.QueryParam("type"),
		Page:      page,
		PageSize:  pageSize,
	}
	events, err := s.app.ListEvents(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

func (s *Server) getEvent(c echo.Context) error {
	e, err := s.app.GetEventByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (s *Server) updateEvent(c echo.Context) error {
	var req app.UpdateEventRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, storage.NewValidationError("request", "body", err.Error()))
	}
	e, err := s.app.UpdateEvent(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (s *Server) deleteEvent(c echo.Context) error {
	if err := s.app.DeleteEvent(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listOccurrences(c echo.Context) error {
	from, err := parseTimeParam(c, "from")
	if err != nil {
		return writeError(c, err)
	}
	to, err := parseTimeParam(c, "to")
	if err != nil {
		return writeError(c, err)
	}
	occurrences, err := s.app.ListOccurrences(c.Request().Context(), c.Param("id"), from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, occurrences)
}

func (s *Server) updateOccurrence(c echo.Context) error {
	originalTime, err := parseTimeParam(c, "time")
	if err != nil {
		return writeError(c, err)
	}
	var req app.UpdateOccurrenceRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, storage.NewValidationError("request", "body", err.Error()))
	}
	x, err := s.app.UpdateOccurrence(c.Request().Context(), c.Param("id"), originalTime, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, x)
}

func (s *Server) deleteOccurrence(c echo.Context) error {
	originalTime, err := parseTimeParam(c, "time")
	if err != nil {
		return writeError(c, err)
	}
	if err := s.app.DeleteOccurrence(c.Request().Context(), c.Param("id"), originalTime); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) addReminder(c echo.Context) error {
	var req app.ReminderRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, storage.NewValidationError("request", "body", err.Error()))
	}
	r, err := s.app.AddReminder(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (s *Server) updateReminder(c echo.Context) error {
	var req app.ReminderRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, storage.NewValidationError("request", "body", err.Error()))
	}
	r, err := s.app.UpdateReminder(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) deleteReminder(c echo.Context) error {
	if err := s.app.DeleteReminder(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
