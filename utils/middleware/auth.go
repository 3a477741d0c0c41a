package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/postforge/api/model"
	"github.com/postforge/api/utils/auth"
	"github.com/postforge/api/utils/response"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager       *auth.JWTManager
	blacklistService *auth.BlacklistService
	db               *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:       jwtManager,
		blacklistService: auth.NewBlacklistService(db),
		db:               db,
	}
}

// Required is middleware that requires a valid JWT access token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, claims, ok := m.authenticate(c)
		if !ok {
			return nil
		}
		storeIdentity(c, user, claims)
		return c.Next()
	}
}

// RequireAdmin requires a valid token belonging to an admin user
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, claims, ok := m.authenticate(c)
		if !ok {
			return nil
		}
		if claims.Role != "admin" {
			return response.Forbidden(c, "Admin access required")
		}
		storeIdentity(c, user, claims)
		return c.Next()
	}
}

// authenticate validates the bearer token, its blacklist status and the
// user's token version. On failure the HTTP response is already written and
// ok is false.
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (user *model.User, claims *auth.Claims, ok bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		response.Unauthorized(c, "Missing authorization token")
		return nil, nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		response.Unauthorized(c, "Invalid authorization format")
		return nil, nil, false
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		if err == auth.ErrExpiredToken {
			response.Unauthorized(c, "Token has expired")
		} else {
			response.Unauthorized(c, "Invalid token")
		}
		return nil, nil, false
	}
	if claims.TokenType != "access" {
		response.Unauthorized(c, "Invalid token type")
		return nil, nil, false
	}

	isRevoked, err := m.blacklistService.IsTokenRevoked(c.Context(), claims.ID)
	if err != nil {
		response.InternalServerError(c, "Failed to check token status")
		return nil, nil, false
	}
	if isRevoked {
		response.Unauthorized(c, "Token has been revoked")
		return nil, nil, false
	}

	var dbUser model.User
	if err := m.db.First(&dbUser, claims.UserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			response.Unauthorized(c, "User not found")
		} else {
			response.InternalServerError(c, "Failed to load user")
		}
		return nil, nil, false
	}
	if dbUser.TokenVersion != claims.TokenVersion {
		response.Unauthorized(c, "Token has been invalidated")
		return nil, nil, false
	}
	return &dbUser, claims, true
}

func storeIdentity(c *fiber.Ctx, user *model.User, claims *auth.Claims) {
	c.Locals("user_id", claims.UserID)
	c.Locals("user_email", claims.Email)
	c.Locals("user_role", claims.Role)
	c.Locals("claims", claims)
	c.Locals("user", user)
	c.Locals("token_jti", claims.ID)
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	userID := c.Locals("user_id")
	if userID == nil {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	user := c.Locals("user")
	if user == nil {
		return nil, false
	}
	u, ok := user.(*model.User)
	return u, ok
}

// GetClaims extracts full claims from context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims := c.Locals("claims")
	if claims == nil {
		return nil, false
	}
	claimsData, ok := claims.(*auth.Claims)
	return claimsData, ok
}

// GetTokenJTI extracts the token JTI from context
func GetTokenJTI(c *fiber.Ctx) (string, bool) {
	jti := c.Locals("token_jti")
	if jti == nil {
		return "", false
	}
	j, ok := jti.(string)
	return j, ok
}
