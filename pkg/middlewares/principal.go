package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"go.uber.org/zap"
)

var ErrNoPrincipal = errors.New("no authenticated principal")

// PrincipalResolver resolves the calling end-user's stable id. How the caller
// authenticated (session, JWT, passkey) is the resolver's concern.
type PrincipalResolver interface {
	ResolveUserID(c *gin.Context) (string, error)
}

// HeaderPrincipalResolver trusts the user id header set by the upstream auth gateway.
type HeaderPrincipalResolver struct{}

func (HeaderPrincipalResolver) ResolveUserID(c *gin.Context) (string, error) {
	userID := strings.TrimSpace(c.GetHeader(pkg.HeaderUserId))
	if userID == "" {
		return "", ErrNoPrincipal
	}
	return userID, nil
}

// Principal stores the resolved user id in the context under pkg.UserId, or aborts with 401.
func Principal(logger *zap.Logger, resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := resolver.ResolveUserID(c)
		if err != nil {
			resp := pkg.ToErrorResponse(logger, c.GetString(pkg.TraceId),
				pkg.NewAppError(pkg.ErrUnauthorizedCode, "authentication required", err))
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Set(pkg.UserId, userID)
		c.Next()
	}
}
