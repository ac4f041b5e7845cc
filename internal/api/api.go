package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/telequiz/telequiz/internal/domain"
	"github.com/telequiz/telequiz/internal/errors"
	"github.com/telequiz/telequiz/internal/event"
	"github.com/telequiz/telequiz/internal/quiz"
)

const version = "1.0.0"

var submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "telequiz_submissions_total",
	Help: "Quiz submissions by outcome.",
}, []string{"status"})

type Config struct {
	Engine   *gin.Engine
	EventBus *event.Bus
	Quiz     *quiz.Service

	// StorageBackend is reported in the service metadata.
	StorageBackend string

	// AdminToken guards the /admin endpoints when set. Empty leaves them
	// open, matching the original deployment.
	AdminToken string

	// Redis carries new-result notifications when configured; nil disables
	// publishing.
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	qs      *quiz.Service
	backend string

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		qs:      c.Quiz,
		backend: c.StorageBackend,
		redis:   c.Redis,
		prefix:  c.PubsubPrefix,
	}

	e := c.Engine
	e.GET("/", a.handleRoot)
	e.GET("/questions", a.handleQuestions)
	e.GET("/check-user/:user_id", a.handleCheckUser)
	e.POST("/submit", a.handleSubmit)

	admin := e.Group("/admin", adminAuth(c.AdminToken))
	admin.GET("/results", a.handleAdminResults)
	admin.GET("/statistics", a.handleAdminStatistics)

	if a.redis != nil {
		c.EventBus.Subscribe(domain.EventNameResultSaved, func(ctx context.Context, e event.Event) error {
			return a.PublishResultSaved(ctx, e.(domain.EventResultSaved))
		})
	}

	return a
}

func (a *API) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "Telequiz API",
		"version": version,
		"storage": a.backend,
		"endpoints": []string{
			"/questions",
			"/check-user/{user_id}",
			"/submit",
			"/admin/results",
			"/admin/statistics",
		},
	})
}

func (a *API) handleQuestions(c *gin.Context) {
	c.JSON(http.StatusOK, a.qs.GetQuestions())
}

type checkUserResponse struct {
	Completed bool   `json:"completed"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (a *API) handleCheckUser(c *gin.Context) {
	resp := a.qs.CheckUser(c.Request.Context(), c.Param("user_id"))

	out := checkUserResponse{Completed: resp.Completed}
	if resp.Completed {
		out.Timestamp = resp.Timestamp.Format(time.RFC3339Nano)
	}

	c.JSON(http.StatusOK, out)
}

type submitRequest struct {
	TelegramUserID string `json:"telegram_user_id" binding:"required"`
	Username       string `json:"username" binding:"required"`
	Answers        []int  `json:"answers" binding:"required"`
	TimeSpent      int    `json:"time_spent" binding:"gte=0"`
	Questions      []int  `json:"questions" binding:"required"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Score   *int   `json:"score,omitempty"`
}

func (a *API) handleSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		submissionsTotal.WithLabelValues("invalid").Inc()
		e := errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid submission: %v", err))
		c.JSON(e.HTTPStatusCode(), submitResponse{Success: false, Message: e.Message})
		return
	}

	resp, err := a.qs.Submit(c.Request.Context(), quiz.SubmitRequest{
		UserID:    req.TelegramUserID,
		Username:  req.Username,
		Answers:   req.Answers,
		Questions: req.Questions,
		TimeSpent: req.TimeSpent,
	})
	if err != nil {
		e := errors.Convert(err)
		if e.Code == errors.CodeAlreadyExists {
			submissionsTotal.WithLabelValues("duplicate").Inc()
		} else {
			submissionsTotal.WithLabelValues("error").Inc()
		}
		c.JSON(e.HTTPStatusCode(), submitResponse{Success: false, Message: e.Message})
		return
	}

	submissionsTotal.WithLabelValues("saved").Inc()
	c.JSON(http.StatusOK, submitResponse{
		Success: true,
		Message: "Quiz results saved successfully",
		Score:   &resp.Score,
	})
}

type resultEntry struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Score     int    `json:"score"`
	TimeSpent int    `json:"time_spent"`
	Timestamp string `json:"timestamp"`
}

func (a *API) handleAdminResults(c *gin.Context) {
	results, err := a.qs.ListResults(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	entries := make([]resultEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, resultEntry{
			UserID:    r.UserID,
			Username:  r.Username,
			Score:     r.Score,
			TimeSpent: r.TimeSpent,
			Timestamp: r.Timestamp.Format(time.RFC3339Nano),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_users": len(results),
		"results":     entries,
	})
}

func (a *API) handleAdminStatistics(c *gin.Context) {
	stats, err := a.qs.GetStatistics(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	if stats == nil {
		c.JSON(http.StatusOK, gin.H{"message": "No results yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_users":          stats.TotalUsers,
		"average_score":        stats.AverageScore.InexactFloat64(),
		"average_time_seconds": stats.AverageTime.InexactFloat64(),
		"max_score":            stats.MaxScore,
		"completion_rate":      stats.CompletionRate,
	})
}

func adminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if got != token {
			e := errors.New(errors.CodeUnauthenticated,
				errors.WithMessagef("admin token required"))
			c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{"message": e.Message})
			return
		}

		c.Next()
	}
}

func writeError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.JSON(e.HTTPStatusCode(), gin.H{"message": e.Message})
}
