package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/scanpoint/attendance-api/internal/models"
)

func performWithRole(role models.UserRole, allowed ...models.UserRole) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected",
		func(c *gin.Context) {
			c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: role})
		},
		RequireRoles(allowed...),
		func(c *gin.Context) {
			c.Status(http.StatusOK)
		},
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	return rec
}

func TestRequireRolesAllows(t *testing.T) {
	rec := performWithRole(models.RoleTeacher, models.RoleAdmin, models.RoleTeacher)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRolesBlocks(t *testing.T) {
	rec := performWithRole(models.RoleStudent, models.RoleAdmin, models.RoleTeacher)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
