package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type SetLevelRequest struct {
	UserID string `json:"user_id"`
	Level  string `json:"level"`
}

type LevelResponse struct {
	Level string `json:"level"`
}

type StreakResponse struct {
	Streak int32 `json:"streak"`
}

// GetStreak returns the stored streak; unknown users have 0.
// GET /user/streak/:user_id
func (s *APIV1Service) GetStreak(c echo.Context) error {
	userID := c.Param("user_id")
	streak, err := s.Tutor.GetStreak(withUser(c, userID), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, StreakResponse{Streak: streak})
}

// SetLevel stores the proficiency level.
// POST /user/level
func (s *APIV1Service) SetLevel(c echo.Context) error {
	var req SetLevelRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	level, err := s.Tutor.SetLevel(withUser(c, req.UserID), req.UserID, req.Level)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "updated", "level": string(level)})
}

// GetLevel returns the level; unknown users are A1.
// GET /user/level/:user_id
func (s *APIV1Service) GetLevel(c echo.Context) error {
	userID := c.Param("user_id")
	level, err := s.Tutor.GetLevel(withUser(c, userID), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, LevelResponse{Level: string(level)})
}
