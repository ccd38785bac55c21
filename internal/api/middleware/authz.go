package middleware

import (
	_ "embed"
	"fmt"
	"net/http"
	"strings"

	"github.com/bhandras/studyhall/internal/logger"
	"github.com/bhandras/studyhall/pkg/types"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/gin-gonic/gin"
)

//go:embed model.conf
var rbacModel string

//go:embed policy.csv
var rbacPolicy string

// Authorizer decides which roles may call which routes.
type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewAuthorizer loads the embedded RBAC model and policy.
func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := loadPolicy(enforcer, rbacPolicy); err != nil {
		return nil, err
	}
	return &Authorizer{enforcer: enforcer}, nil
}

func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Allowed reports whether role may perform method on path.
func (a *Authorizer) Allowed(role, path, method string) (bool, error) {
	return a.enforcer.Enforce(role, path, method)
}

// Middleware enforces the policy for the authenticated identity. It must run
// after AuthMiddleware.
func (a *Authorizer) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "authentication required"})
			return
		}

		role := id.User.Role
		if role == "" {
			role = "student"
		}
		allowed, err := a.Allowed(role, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			logger.Errorf("Authorization check failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, types.ErrorResponse{Error: "authorization error"})
			return
		}
		if !allowed {
			logger.Warnf("Forbidden: user %d (%s) %s %s", id.User.ID, role, c.Request.Method, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, types.ErrorResponse{Error: "forbidden"})
			return
		}
		c.Next()
	}
}
