package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/agencyflow/internal/observability/context"
)

const (
	HeaderTenant = "X-Tenant-ID"
	HeaderUser   = "X-User-ID"

	contextTenantIDKey = "tenant_id"
	contextActorIDKey  = "actor_id"
)

// TenantContext resolves the caller's tenant and optional acting user from
// headers. Requests without a valid tenant are rejected.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := snowflake.ParseString(strings.TrimSpace(c.GetHeader(HeaderTenant)))
		if err != nil || tenantID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Set(contextTenantIDKey, tenantID)
		ctx := obscontext.WithTenantID(c.Request.Context(), tenantID.String())

		if raw := strings.TrimSpace(c.GetHeader(HeaderUser)); raw != "" {
			actorID, err := snowflake.ParseString(raw)
			if err != nil || actorID == 0 {
				AbortWithError(c, invalidIDError("user_id"))
				return
			}
			c.Set(contextActorIDKey, actorID)
			ctx = obscontext.WithActorID(ctx, actorID.String())
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ActorRequired rejects requests that did not name an acting user.
func ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actorID(c) == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func tenantID(c *gin.Context) snowflake.ID {
	id, _ := c.Get(contextTenantIDKey)
	tenant, _ := id.(snowflake.ID)
	return tenant
}

func actorID(c *gin.Context) *snowflake.ID {
	id, ok := c.Get(contextActorIDKey)
	if !ok {
		return nil
	}
	actor, ok := id.(snowflake.ID)
	if !ok {
		return nil
	}
	return &actor
}

func pathID(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id == 0 {
		return 0, invalidIDError(name)
	}
	return id, nil
}
