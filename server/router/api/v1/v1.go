package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/rod/internal/profile"
	apperrors "github.com/hrygo/rod/server/internal/errors"
	"github.com/hrygo/rod/server/internal/observability"
	"github.com/hrygo/rod/server/service/tutor"
	"github.com/hrygo/rod/store"
)

// MediaStore is the store subset backing the news endpoints.
type MediaStore interface {
	ListMediaItems(ctx context.Context, find *store.FindMediaItem) ([]*store.MediaItem, error)
}

type APIV1Service struct {
	Profile *profile.Profile
	Tutor   *tutor.Service
	Speech  *tutor.Speech
	Media   MediaStore
	Metrics *observability.Metrics
}

func NewAPIV1Service(profile *profile.Profile, tutorService *tutor.Service, speech *tutor.Speech, media MediaStore, metrics *observability.Metrics) *APIV1Service {
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	return &APIV1Service{
		Profile: profile,
		Tutor:   tutorService,
		Speech:  speech,
		Media:   media,
		Metrics: metrics,
	}
}

// RegisterRoutes mounts every endpoint on g. Synthesized audio is served
// from the profile's audio dir under /audio.
func (s *APIV1Service) RegisterRoutes(g *echo.Group) {
	g.POST("/chat", s.PostChat)
	g.GET("/chat/:conversation_id", s.GetConversationMessages)
	g.GET("/history/:user_id", s.ListHistory)
	g.PATCH("/conversations/:conversation_id", s.RenameConversation)
	g.GET("/feedback/:conversation_id", s.ListFeedback)

	g.GET("/user/streak/:user_id", s.GetStreak)
	g.POST("/user/level", s.SetLevel)
	g.GET("/user/level/:user_id", s.GetLevel)

	g.POST("/transcribe", s.Transcribe)
	g.POST("/synthesize", s.Synthesize)
	g.Static("/audio", s.Profile.AudioDir)

	g.GET("/media/news", s.ListNews)
	g.GET("/media/feed.rss", s.NewsFeed)

	g.GET("/system/metrics", s.GetMetrics)
	g.GET("/healthz", s.Healthz)
}

// respondError writes {"error": msg} with the status of the error code.
// Internal failures are logged with their cause and reported generically.
func respondError(c echo.Context, err error) error {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal("internal server error", err)
	}
	status := appErr.HTTPStatus()
	logger := observability.Logger(c.Request().Context())
	attrs := []any{
		slog.String(observability.LogFieldErrorCode, string(appErr.Code)),
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	}

	message := appErr.Message
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
		if appErr.Code == apperrors.ErrCodeInternal {
			message = "internal server error"
		}
	} else {
		logger.Warn("request rejected", attrs...)
	}
	return c.JSON(status, map[string]string{"error": message})
}

// bindJSON decodes the request body, mapping decode failures to INVALID_ARGUMENT.
func bindJSON(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return apperrors.InvalidArgument("invalid request body")
	}
	return nil
}

func conversationIDParam(c echo.Context) (int32, error) {
	raw := c.Param("conversation_id")
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidArgument("invalid conversation id").WithContext("conversation_id", raw)
	}
	return int32(id), nil
}

// ownerParam is the optional ?user_id= ownership filter.
func ownerParam(c echo.Context) string {
	return strings.TrimSpace(c.QueryParam("user_id"))
}

// withUser attaches the user id to the request context for the rest of the call.
func withUser(c echo.Context, userID string) context.Context {
	ctx := c.Request().Context()
	if reqCtx, ok := observability.FromContext(ctx); ok {
		scoped := *reqCtx
		scoped.UserID = userID
		ctx = observability.WithRequestContext(ctx, &scoped)
		c.SetRequest(c.Request().WithContext(ctx))
	}
	return ctx
}

func formatTs(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

// baseURL is the public base for links we hand out.
func (s *APIV1Service) baseURL(c echo.Context) string {
	if s.Profile.PublicURL != "" {
		return s.Profile.PublicURL
	}
	return c.Scheme() + "://" + c.Request().Host
}

func (s *APIV1Service) observe(op string, start time.Time, err error) {
	s.Metrics.Observe(op, time.Since(start), err)
}
