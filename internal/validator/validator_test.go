package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type body struct {
	Title string `json:"title" binding:"required"`
	Marks int    `json:"marks" binding:"required,gt=0"`
}

func bindBody(raw string) map[string]string {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	var dst body
	return Bind(c, &dst)
}

func TestBind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Setup()

	assert.Nil(t, bindBody(`{"title":"HW1","marks":10}`))

	fields := bindBody(`{"title":"HW1","marks":0}`)
	assert.Contains(t, fields, "marks")

	fields = bindBody(`{"marks":5}`)
	assert.Contains(t, fields, "title")

	fields = bindBody(`{"title":"HW1","marks":10,"owner":"me"}`)
	assert.Equal(t, "unknown field", fields["owner"])

	fields = bindBody(`{not json`)
	assert.Contains(t, fields, "detail")
}
