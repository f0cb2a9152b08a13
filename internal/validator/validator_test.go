package validator

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exam-portal/internal/model"
)

func TestBindQuery_EventKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Setup()

	bind := func(url string) map[string]string {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, url, nil)
		var q model.AttemptEventQuery
		return BindQuery(c, &q)
	}

	assert.Nil(t, bind("/events?kind=submitted&page=2"))
	assert.Nil(t, bind("/events"))

	fields := bind("/events?kind=teleported")
	assert.Equal(t, "kind must be a known attempt event kind", fields["kind"])

	fields = bind("/events?per_page=1000")
	assert.Contains(t, fields, "per_page")
}

func TestBind_TranslatesLoginErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Setup()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/login", nil)
	c.Request.Body = http.NoBody
	c.Request.Header.Set("Content-Type", "application/json")

	var req model.LoginRequest
	fields := Bind(c, &req)
	assert.Contains(t, fields, "detail")
}

func TestRegisterTag(t *testing.T) {
	enLocale := en.New()
	tr, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	v := govalidator.New()

	for _, ct := range customTags {
		require.NoError(t, registerTag(v, tr, ct))
	}
	assert.NoError(t, v.Var("submitted", "event_kind"))
	assert.Error(t, v.Var("teleported", "event_kind"))

	err := registerTag(v, tr, customTag{tag: "", fn: customTags[0].fn, message: "x"})
	assert.Error(t, err)

	assert.Panics(t, func() {
		saved := customTags
		defer func() { customTags = saved }()
		customTags = []customTag{{tag: "", fn: saved[0].fn, message: "x"}}
		registerCustom(v)
	})
}
