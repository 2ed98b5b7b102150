package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/services"
)

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	var vErr *services.ValidationError
	var apiErr *services.APIError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotHearted), errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrAlreadyHearted),
		errors.Is(err, services.ErrSlugExists),
		errors.Is(err, services.ErrSeedInProgress),
		errors.Is(err, services.ErrAssignmentNotActive):
		return http.StatusConflict
	case errors.Is(err, services.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("API: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// language reads ?lang=, defaulting to English.
func language(c *gin.Context) (models.Language, bool) {
	lang, err := models.ParseLanguage(c.Query("lang"))
	if err != nil {
		badRequest(c, err.Error())
		return "", false
	}
	return lang, true
}

// concreteLanguage is language for routes that read one partition.
func concreteLanguage(c *gin.Context) (models.Language, bool) {
	lang, ok := language(c)
	if ok && lang == models.LanguageAll {
		badRequest(c, "lang must be 'en' or 'ja'")
		return "", false
	}
	return lang, ok
}

func dexParam(c *gin.Context) (int, bool) {
	dex, err := strconv.Atoi(c.Param("dex"))
	if err != nil || dex <= 0 {
		badRequest(c, "invalid national dex number")
		return 0, false
	}
	return dex, true
}

func intQuery(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		badRequest(c, "invalid "+key)
		return 0, false
	}
	return v, true
}
