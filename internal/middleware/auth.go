package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/requestdata"
)

type AuthMiddleware struct {
	log       *logger.Logger
	secretKey []byte
}

func NewAuthMiddleware(log *logger.Logger, secretKey string) *AuthMiddleware {
	return &AuthMiddleware{
		log:       log.With("Middleware", "AuthMiddleware"),
		secretKey: []byte(secretKey),
	}
}

// OptionalAuth parses a bearer token when one is present and stores the
// caller's identity in requestdata. Requests without a valid token continue
// anonymously; handlers that need an identity fall back to payload fields.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.Next()
			return
		}
		userID, err := am.parseToken(tokenString)
		if err != nil {
			am.log.Debug("ignoring unparseable bearer token", "error", err)
			c.Next()
			return
		}
		rd := &requestdata.RequestData{TokenString: tokenString, UserID: userID}
		c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

func (am *AuthMiddleware) parseToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return am.secretKey, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(sub)
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
