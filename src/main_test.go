package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"rifa/src/middlewares"
	"rifa/src/types"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
)

type TestSuite struct {
	suite.Suite
}

// stubAuthMiddleware injects an authenticated admin without touching
// the database.
func stubAuthMiddleware(ctx *gin.Context) {
	ctx.Set("id", uint(1))
	ctx.Set("email", "admin@example.com")
	ctx.Set("role", types.ROLE_ADMIN)
}

func (s *TestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bookabledate", futureDateValidatorFunc)
		v.RegisterValidation("ltdate", ltfield)
	}
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Setenv("MAINTENANCE_MODE", "false")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestStatusForError() {
	assert.Equal(s.T(), 404, statusForError(types.ErrNotFound))
	assert.Equal(s.T(), 409, statusForError(types.ErrInvalidState))
	assert.Equal(s.T(), 409, statusForError(types.ErrDependentData))
	assert.Equal(s.T(), 400, statusForError(io.EOF))
}

func (s *TestSuite) TestCreateRaffleValidation() {
	os.Setenv("MAINTENANCE_MODE", "false")
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(stubAuthMiddleware)
	raffleAdminHandlers(apiv1)

	s.Run("Should reject a raffle without required fields", func() {
		w := httptest.NewRecorder()
		reqBody := types.CreateRaffleRequestBody{
			Title: "test raffle",
		}
		rbytes, err := json.Marshal(&reqBody)
		assert.Nil(s.T(), err)
		req, err := http.NewRequest("POST", "/api/v1/raffles", strings.NewReader(string(rbytes)))
		assert.Nil(s.T(), err)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)

		rbytes, err = io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		errMsg := gjson.Get(string(rbytes), "error").String()
		assert.NotEmpty(s.T(), errMsg)
	})

	s.Run("Should reject a raffle with too few tickets", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"title":        "test raffle",
			"prize":        "a prize",
			"ticket_price": 10.0,
			"ticket_count": 5,
			"start_date":   "2030-01-01 10:00:00 -03:00",
			"end_date":     "2030-02-01 10:00:00 -03:00",
			"pix_key":      "someone@example.com",
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/raffles", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject a raffle with start after end", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"title":        "test raffle",
			"prize":        "a prize",
			"ticket_price": 10.0,
			"ticket_count": 100,
			"start_date":   "2030-03-01 10:00:00 -03:00",
			"end_date":     "2030-02-01 10:00:00 -03:00",
			"pix_key":      "someone@example.com",
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/raffles", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject a raffle ending in the past", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"title":        "test raffle",
			"prize":        "a prize",
			"ticket_price": 10.0,
			"ticket_count": 100,
			"start_date":   "2020-01-01 10:00:00 -03:00",
			"end_date":     "2020-02-01 10:00:00 -03:00",
			"pix_key":      "someone@example.com",
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/raffles", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestTicketRouteValidation() {
	os.Setenv("MAINTENANCE_MODE", "false")
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(stubAuthMiddleware)
	ticketHandlers(apiv1)

	s.Run("Should reject a reservation without buyer info", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/raffles/1/tickets/7/reserve", strings.NewReader(`{}`))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject a refund without a reason", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/raffles/1/tickets/7/refund", strings.NewReader(`{}`))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject a non-numeric ticket number", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/raffles/1/tickets/abc/reserve", strings.NewReader(`{}`))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestRoleGate() {
	os.Setenv("MAINTENANCE_MODE", "false")
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(func(ctx *gin.Context) {
		ctx.Set("id", uint(2))
		ctx.Set("email", "viewer@example.com")
		ctx.Set("role", types.ROLE_VIEWER)
	})
	sellers := apiv1.Group("")
	sellers.Use(middlewares.RequireRole(types.ROLE_ADMIN, types.ROLE_SELLER))
	ticketHandlers(sellers)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/raffles/1/tickets/7/reserve", strings.NewReader(`{}`))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 403, w.Code)
}

func (s *TestSuite) TestPaymentRouteValidation() {
	os.Setenv("MAINTENANCE_MODE", "false")
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(stubAuthMiddleware)
	paymentHandlers(apiv1)

	s.Run("Should reject a payment without an amount", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"raffle_id":      1,
			"participant_id": 1,
			"method":         "pix",
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/payments", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject an unknown payment method", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"raffle_id":      1,
			"participant_id": 1,
			"amount":         50.0,
			"method":         "barter",
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/payments", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestDrawingRouteValidation() {
	os.Setenv("MAINTENANCE_MODE", "false")
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(stubAuthMiddleware)
	drawingHandlers(apiv1)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/drawings", strings.NewReader(`{}`))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 400, w.Code)
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
