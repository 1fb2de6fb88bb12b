package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Kshitiz-Mhto/streampipes/pkg/config"
	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// context keys
const (
	RequestIDKey = "request_id"
	UserIDKey    = "user_id"
	UserRoleKey  = "user_role"
)

// GetRequestID extracts request ID from gin context
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// GetUserID 인증된 사용자 이름
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// ErrorResponseWithCode sends error response with error code and request_id
func ErrorResponseWithCode(c *gin.Context, status int, code models.ErrorCode, message string) {
	apiErr := models.NewAPIError(code, message)
	apiErr.RequestID = GetRequestID(c)
	c.JSON(status, apiErr)
}

// ErrorResponseWithDetails sends error response with error code, details and request_id
func ErrorResponseWithDetails(c *gin.Context, status int, code models.ErrorCode, message string, details map[string]string) {
	apiErr := models.NewAPIErrorWithDetails(code, message, details)
	apiErr.RequestID = GetRequestID(c)
	c.JSON(status, apiErr)
}

// AuthMiddleware JWT 인증 미들웨어
func AuthMiddleware(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			ErrorResponseWithCode(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Missing authorization header")
			c.Abort()
			return
		}

		// Bearer 토큰 추출
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			ErrorResponseWithCode(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			ErrorResponseWithCode(c, http.StatusUnauthorized, models.ErrCodeInvalidToken, "Invalid token")
			c.Abort()
			return
		}

		claims, _ := token.Claims.(jwt.MapClaims)
		sub, _ := claims["sub"].(string)
		if sub == "" {
			ErrorResponseWithCode(c, http.StatusUnauthorized, models.ErrCodeInvalidToken, "Token has no subject")
			c.Abort()
			return
		}
		role, _ := claims["role"].(string)

		c.Set(UserIDKey, sub)
		c.Set(UserRoleKey, role)

		c.Next()
	}
}

// UserScopeMiddleware 경로의 :username이 토큰 사용자와 같은지 확인
// 관리자는 모든 사용자 경로에 접근 가능
func UserScopeMiddleware(users *config.UsersConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.Param("username")
		userID := GetUserID(c)

		if username == userID {
			c.Next()
			return
		}

		if c.GetString(UserRoleKey) == config.RoleAdmin || (users != nil && users.IsAdmin(userID)) {
			c.Next()
			return
		}

		ErrorResponseWithCode(c, http.StatusForbidden, models.ErrCodeForbidden, "Access to another user's resources is not allowed")
		c.Abort()
	}
}

// CORSMiddleware CORS 미들웨어
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware 요청 ID 미들웨어
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}
