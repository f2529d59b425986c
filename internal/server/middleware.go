package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/gascustody/internal/audit/domain"
	authdomain "github.com/smallbiznis/gascustody/internal/auth/domain"
	obscontext "github.com/smallbiznis/gascustody/internal/observability/context"
)

const bearerPrefix = "bearer "

// AuthRequired resolves the staff principal from the Authorization header.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, authdomain.ErrMissingToken)
			return
		}

		principal, err := s.authsvc.ParseStaffToken(token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := authdomain.WithPrincipal(c.Request.Context(), principal)
		ctx = obscontext.WithActor(ctx, auditdomain.ActorTypeUser, strconv.FormatInt(principal.UserID, 10))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authorize checks the principal's role against the casbin policy for object and action.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := authdomain.PrincipalFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), principal, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

func actorID(c *gin.Context) int64 {
	principal, _ := authdomain.PrincipalFromContext(c.Request.Context())
	return principal.UserID
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"status": "success", "data": data})
}

func respondOK(c *gin.Context, data any) {
	respond(c, http.StatusOK, data)
}

func respondFile(c *gin.Context, fileName, contentType string, content []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, contentType, content)
}
