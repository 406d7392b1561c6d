package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/all2prosperity/audio-svc/domain"
	"github.com/all2prosperity/audio-svc/internal/auth"
)

const (
	userIDKey   = "userID"
	deviceIDKey = "deviceID"
)

// CORSConfig allows any origin plus the caller identification headers.
var CORSConfig = middleware.CORSConfig{
	AllowOrigins: []string{"*"},
	AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	AllowHeaders: []string{
		echo.HeaderContentType,
		echo.HeaderAuthorization,
		echo.HeaderAccept,
		domain.HeaderDeviceID,
		domain.HeaderDevID,
		domain.HeaderUserID,
	},
}

// Authenticate resolves the calling user from x-oz-user-id, falling back to
// x-oz-dev-id. With a signer the bearer token must validate as well and its
// claims take precedence over the headers.
func Authenticate(signer *auth.Signer, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header
			userID := header.Get(domain.HeaderUserID)
			if userID == "" {
				userID = header.Get(domain.HeaderDevID)
			}
			deviceID := header.Get(domain.HeaderDeviceID)

			if signer != nil {
				token, ok := bearerToken(header.Get(echo.HeaderAuthorization))
				if !ok {
					logger.Warn("Request rejected: missing token", zap.String("path", c.Path()))
					return c.JSON(http.StatusUnauthorized, ErrorResponse{
						Error:   "missing_token",
						Message: "JWT token is required in Authorization header",
					})
				}

				claims, err := signer.ValidateToken(token)
				if err != nil {
					logger.Warn("Request rejected: invalid token", zap.Error(err))
					return c.JSON(http.StatusUnauthorized, ErrorResponse{
						Error:   "invalid_token",
						Message: "Invalid or expired JWT token",
					})
				}

				if principal := claims.Principal(); principal != "" {
					userID = principal
				}
				if claims.DeviceID != "" {
					deviceID = claims.DeviceID
				}
			}

			if userID == "" {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "unauthorized",
					Message: "User id not found",
				})
			}

			c.Set(userIDKey, userID)
			c.Set(deviceIDKey, deviceID)
			return next(c)
		}
	}
}

func bearerToken(value string) (string, bool) {
	token, ok := strings.CutPrefix(value, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func currentUser(c echo.Context) string {
	userID, _ := c.Get(userIDKey).(string)
	return userID
}

func currentDevice(c echo.Context) string {
	deviceID, _ := c.Get(deviceIDKey).(string)
	return deviceID
}
