package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/astro-snapshot-go/internal/middleware"
	"github.com/irfndi/astro-snapshot-go/internal/models"
	"github.com/irfndi/astro-snapshot-go/internal/utils"
	"github.com/sirupsen/logrus"
)

// SnapshotGetter serves snapshots by calendar date and zodiac mode.
type SnapshotGetter interface {
	Get(ctx context.Context, date time.Time, mode models.ZodiacMode) (*models.Snapshot, error)
}

// SnapshotHandler serves transit snapshots.
type SnapshotHandler struct {
	cache  SnapshotGetter
	logger *logrus.Logger
	now    func() time.Time
}

func NewSnapshotHandler(cache SnapshotGetter, logger *logrus.Logger) *SnapshotHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &SnapshotHandler{cache: cache, logger: logger, now: time.Now}
}

// GetSnapshot returns the snapshot for a date.
// @Summary Get transit snapshot
// @Description Positions, aspects, tallies and lunar phase for one calendar date
// @Tags snapshot
// @Param date query string false "Date as YYYY-MM-DD (default: today, UTC)"
// @Param mode query string false "tropical or sidereal"
// @Param sidereal query bool false "Shorthand for mode=sidereal"
// @Produce json
// @Success 200 {object} models.Snapshot
// @Router /api/v1/snapshot [get]
func (h *SnapshotHandler) GetSnapshot(c *gin.Context) {
	date, mode, err := h.parseRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	middleware.AddSpanAttribute(c, "snapshot.key", models.NewSnapshotKey(date, mode).String())

	snapshot, err := h.cache.Get(c.Request.Context(), date, mode)
	if err != nil {
		middleware.RecordError(c, err, "snapshot unavailable")
		h.logger.WithError(err).WithFields(logrus.Fields{
			"date":       date.Format(models.DateLayout),
			"mode":       mode,
			"request_id": middleware.GetRequestID(c),
		}).Error("Failed to get snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to compute snapshot",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    snapshot,
	})
}

// parseRequest validates the date and mode before any computation.
func (h *SnapshotHandler) parseRequest(c *gin.Context) (time.Time, models.ZodiacMode, error) {
	raw := c.Param("date")
	if raw == "" {
		raw = c.Query("date")
	}

	var date time.Time
	if raw == "" {
		y, m, d := h.now().UTC().Date()
		date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return time.Time{}, "", utils.NewValidationErrorf("invalid date %q: expected YYYY-MM-DD", raw)
		}
		date = parsed
	}

	mode, err := parseMode(c.Query("mode"), c.Query("sidereal"))
	if err != nil {
		return time.Time{}, "", err
	}
	return date, mode, nil
}

func parseMode(mode, sidereal string) (models.ZodiacMode, error) {
	if mode != "" {
		parsed, err := models.ParseZodiacMode(mode)
		if err != nil {
			return "", utils.NewValidationError(err.Error())
		}
		if sidereal != "" && !siderealAgrees(parsed, sidereal) {
			return "", utils.NewValidationError("mode and sidereal parameters disagree")
		}
		return parsed, nil
	}
	if sidereal == "" {
		return models.Tropical, nil
	}
	on, err := strconv.ParseBool(strings.TrimSpace(sidereal))
	if err != nil {
		return "", utils.NewValidationErrorf("invalid sidereal flag %q", sidereal)
	}
	if on {
		return models.Sidereal, nil
	}
	return models.Tropical, nil
}

func siderealAgrees(mode models.ZodiacMode, sidereal string) bool {
	on, err := strconv.ParseBool(strings.TrimSpace(sidereal))
	return err == nil && on == (mode == models.Sidereal)
}

