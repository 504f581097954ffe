package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/busgo/internal/domain"
	redisrepo "github.com/kirinyoku/busgo/internal/repository/redis"
	"github.com/kirinyoku/busgo/internal/service"
	"github.com/kirinyoku/busgo/internal/service/catalog"
	"github.com/kirinyoku/busgo/internal/service/reviews"
	"github.com/kirinyoku/busgo/internal/service/tickets"
	"github.com/kirinyoku/busgo/internal/service/trips"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	jwtSecret string,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := AuthRequired(jwtSecret)
	guide := RequirePermission(domain.PermTripGuide | domain.PermAdmin)
	admin := RequirePermission(domain.PermAdmin)

	// Trips
	r.GET("/trips", handleListTrips(svcs))
	r.GET("/trips/:tripId", handleGetTrip(svcs))
	r.POST("/trips", auth, guide, handleCreateTrip(svcs))
	r.PATCH("/trips/:tripId", auth, guide, handleUpdateTrip(svcs))
	r.DELETE("/trips/:tripId", auth, guide, handleDeleteTrip(svcs))

	// Tickets
	r.POST("/trips/:tripId/tickets/:seatNumber", auth, handleBookTicket(svcs, idem))
	r.DELETE("/tickets/:ticketId", auth, handleCancelTicket(svcs))
	r.GET("/tickets", auth, admin, handleListTickets(svcs))
	r.GET("/tickets/:ticketId", auth, admin, handleGetTicket(svcs))
	r.DELETE("/tickets", auth, admin, handleDeleteAllTickets(svcs))

	// Reviews
	r.GET("/trips/:tripId/reviews", handleListReviews(svcs))
	r.POST("/trips/:tripId/reviews", auth, handleCreateReview(svcs))
	r.DELETE("/reviews/:reviewId", auth, handleDeleteReview(svcs))

	// Catalog
	r.GET("/buses", handleListBuses(svcs))
	r.GET("/buses/:busId", handleGetBus(svcs))
	r.POST("/buses", auth, admin, handleCreateBus(svcs))
	r.PATCH("/buses/:busId", auth, admin, handleUpdateBus(svcs))
	r.DELETE("/buses/:busId", auth, admin, handleDeleteBus(svcs))

	r.GET("/cities", handleListCities(svcs))
	r.GET("/cities/:cityId", handleGetCity(svcs))
	r.POST("/cities", auth, admin, handleCreateCity(svcs))
	r.DELETE("/cities/:cityId", auth, admin, handleDeleteCity(svcs))

	return r
}

// --- Trip handlers ---

// @Summary  List trips
// @Param    from    query  string  false  "departure city id"
// @Param    to      query  string  false  "arrival city id"
// @Param    bus_id  query  string  false  "bus id"
// @Param    status  query  string  false  "active|completed|canceled"
// @Param    date    query  string  false  "departure day (YYYY-MM-DD, UTC)"
// @Param    limit   query  int     false  "page size"
// @Param    offset  query  int     false  "offset"
// @Success  200  {array}  TripResponse
// @Router   /trips [get]
func handleListTrips(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f domain.TripFilter

		for q, dst := range map[string]**uuid.UUID{
			"from":   &f.DepartureCityID,
			"to":     &f.ArrivalCityID,
			"bus_id": &f.BusID,
		} {
			if s := c.Query(q); s != "" {
				id, err := uuid.Parse(s)
				if err != nil {
					badRequest(c, "invalid "+q)
					return
				}
				*dst = &id
			}
		}

		if s := c.Query("status"); s != "" {
			st := domain.TripStatus(s)
			switch st {
			case domain.TripActive, domain.TripCompleted, domain.TripCanceled:
				f.Status = &st
			default:
				badRequest(c, "invalid status")
				return
			}
		}

		if s := c.Query("date"); s != "" {
			day, err := time.Parse("2006-01-02", s)
			if err != nil {
				badRequest(c, "invalid date (YYYY-MM-DD)")
				return
			}
			f.Date = &day
		}

		limit := parseIntDefault(c.Query("limit"), 50)
		offset := parseIntDefault(c.Query("offset"), 0)

		out, err := svcs.Trips.List(c.Request.Context(), f, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, toTripResponses(out), "public, max-age=15", true)
	}
}

// @Summary  Get trip
// @Param    tripId  path  string  true  "Trip ID (uuid)"
// @Success  200  {object}  TripResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /trips/{tripId} [get]
func handleGetTrip(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseUUIDParam(c, "tripId")
		if !ok {
			return
		}

		t, err := svcs.Trips.Get(c.Request.Context(), tripID)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, toTripResponse(t), "public, max-age=60", true)
	}
}

// @Summary  Create trip
// @Param    req  body  CreateTripRequest  true  "payload"
// @Success  201  {object}  CreatedResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "bus already scheduled"
// @Router   /trips [post]
func handleCreateTrip(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTripRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		in := trips.CreateTripInput{PriceCents: req.PriceCents}

		var err error
		if in.DepartureCityID, err = uuid.Parse(req.DepartureCityID); err != nil {
			badRequest(c, "invalid departure_city_id")
			return
		}
		if in.ArrivalCityID, err = uuid.Parse(req.ArrivalCityID); err != nil {
			badRequest(c, "invalid arrival_city_id")
			return
		}
		if in.BusID, err = uuid.Parse(req.BusID); err != nil {
			badRequest(c, "invalid bus_id")
			return
		}
		if in.DepartureAt, err = parseRFC3339(req.DepartureAt); err != nil {
			badRequest(c, "invalid departure_at (RFC3339)")
			return
		}
		if in.ArrivalAt, err = parseRFC3339(req.ArrivalAt); err != nil {
			badRequest(c, "invalid arrival_at (RFC3339)")
			return
		}

		t, err := svcs.Trips.Create(c.Request.Context(), in)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreatedResponse{ID: t.ID.String()})
	}
}

// @Summary  Patch trip
// @Param    tripId  path  string             true  "Trip ID (uuid)"
// @Param    req     body  UpdateTripRequest  true  "partial payload"
// @Success  200  {object}  TripResponse
// @Failure  400  {object}  ErrorResponse  "validation / derived field in body"
// @Failure  409  {object}  ErrorResponse
// @Router   /trips/{tripId} [patch]
func handleUpdateTrip(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseUUIDParam(c, "tripId")
		if !ok {
			return
		}

		raw, err := c.GetRawData()
		if err != nil {
			badRequest(c, "unreadable body")
			return
		}

		// Derived fields are rejected before the body is even bound.
		if err := trips.CheckProtectedFields(raw); err != nil {
			respondErr(c, err)
			return
		}

		var req UpdateTripRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			badRequest(c, "malformed JSON body")
			return
		}

		var in trips.UpdateTripInput

		for name, p := range map[string]struct {
			src *string
			dst **uuid.UUID
		}{
			"departure_city_id": {req.DepartureCityID, &in.DepartureCityID},
			"arrival_city_id":   {req.ArrivalCityID, &in.ArrivalCityID},
			"bus_id":            {req.BusID, &in.BusID},
		} {
			if p.src == nil {
				continue
			}
			id, err := uuid.Parse(*p.src)
			if err != nil {
				badRequest(c, "invalid "+name)
				return
			}
			*p.dst = &id
		}

		if req.DepartureAt != nil {
			t, err := parseRFC3339(*req.DepartureAt)
			if err != nil {
				badRequest(c, "invalid departure_at (RFC3339)")
				return
			}
			in.DepartureAt = &t
		}
		if req.ArrivalAt != nil {
			t, err := parseRFC3339(*req.ArrivalAt)
			if err != nil {
				badRequest(c, "invalid arrival_at (RFC3339)")
				return
			}
			in.ArrivalAt = &t
		}
		in.PriceCents = req.PriceCents

		t, err := svcs.Trips.Update(c.Request.Context(), tripID, in)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toTripResponse(t))
	}
}

// @Summary  Delete trip with its tickets and scheduled jobs
// @Param    tripId  path  string  true  "Trip ID (uuid)"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /trips/{tripId} [delete]
func handleDeleteTrip(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseUUIDParam(c, "tripId")
		if !ok {
			return
		}

		if err := svcs.Trips.Delete(c.Request.Context(), tripID); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// --- Ticket handlers ---

// @Summary  Book a seat (idempotent)
// @Param    tripId      path  string  true  "Trip ID (uuid)"
// @Param    seatNumber  path  int     true  "Seat number, 1-based"
// @Header   201  {string}  Idempotency-Key  "echo"
// @Success  201  {object}  CreatedResponse
// @Failure  400  {object}  ErrorResponse  "seat outside capacity / trip not active"
// @Failure  409  {object}  ErrorResponse  "seat already booked"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Router   /trips/{tripId}/tickets/{seatNumber} [post]
func handleBookTicket(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseUUIDParam(c, "tripId")
		if !ok {
			return
		}

		seat, err := strconv.Atoi(c.Param("seatNumber"))
		if err != nil || seat < 1 {
			badRequest(c, "invalid seatNumber")
			return
		}

		userID, ok := currentUserID(c)
		if !ok {
			unauthorized(c, "missing bearer token")
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(tripID, idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		rlKey := "ip:" + c.ClientIP()

		ticket, err := svcs.Tickets.Book(c.Request.Context(), tripID, userID, seat, rlKey)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := CreatedResponse{ID: ticket.ID.String()}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Cancel ticket and release its seat
// @Param    ticketId  path  string  true  "Ticket ID (uuid)"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /tickets/{ticketId} [delete]
func handleCancelTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ticketID, ok := parseUUIDParam(c, "ticketId")
		if !ok {
			return
		}

		if _, err := svcs.Tickets.Cancel(c.Request.Context(), ticketID); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  List tickets
// @Param    trip_id  query  string  false  "scope to one trip"
// @Param    limit    query  int     false  "page size"
// @Param    offset   query  int     false  "offset"
// @Success  200  {array}  TicketResponse
// @Router   /tickets [get]
func handleListTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID := uuid.Nil
		if s := c.Query("trip_id"); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				badRequest(c, "invalid trip_id")
				return
			}
			tripID = id
		}

		limit := parseIntDefault(c.Query("limit"), 100)
		offset := parseIntDefault(c.Query("offset"), 0)

		out, err := svcs.Tickets.List(c.Request.Context(), tripID, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toTicketResponses(out))
	}
}

// @Summary  Get ticket
// @Param    ticketId  path  string  true  "Ticket ID (uuid)"
// @Success  200  {object}  TicketResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /tickets/{ticketId} [get]
func handleGetTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ticketID, ok := parseUUIDParam(c, "ticketId")
		if !ok {
			return
		}

		t, err := svcs.Tickets.Get(c.Request.Context(), ticketID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toTicketResponse(t))
	}
}

// @Summary  Delete all tickets
// @Success  200  {object}  DeletedResponse
// @Router   /tickets [delete]
func handleDeleteAllTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svcs.Tickets.DeleteAll(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, DeletedResponse{Deleted: n})
	}
}

// --- Review handlers ---

// @Summary  List trip reviews
// @Param    tripId  path   string  true   "Trip ID (uuid)"
// @Param    limit   query  int     false  "page size"
// @Param    offset  query  int     false  "offset"
// @Success  200  {array}  ReviewResponse
// @Router   /trips/{tripId}/reviews [get]
func handleListReviews(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseUUIDParam(c, "tripId")
		if !ok {
			return
		}

		limit := parseIntDefault(c.Query("limit"), 50)
		offset := parseIntDefault(c.Query("offset"), 0)

		out, err := svcs.Reviews.ListByTrip(c.Request.Context(), tripID, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := make([]ReviewResponse, 0, len(out))
		for i := range out {
			resp = append(resp, toReviewResponse(&out[i]))
		}

		c.JSON(http.StatusOK, resp)
	}
}

// @Summary  Create review
// @Param    tripId  path  string               true  "Trip ID (uuid)"
// @Param    req     body  CreateReviewRequest  true  "payload"
// @Success  201  {object}  CreatedResponse
// @Failure  400  {object}  ErrorResponse  "rating out of range"
// @Failure  404  {object}  ErrorResponse
// @Router   /trips/{tripId}/reviews [post]
func handleCreateReview(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseUUIDParam(c, "tripId")
		if !ok {
			return
		}

		userID, ok := currentUserID(c)
		if !ok {
			unauthorized(c, "missing bearer token")
			return
		}

		var req CreateReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		rv, err := svcs.Reviews.Create(c.Request.Context(), tripID, userID, req.Rating, req.Comment)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreatedResponse{ID: rv.ID.String()})
	}
}

// @Summary  Delete review
// @Param    reviewId  path  string  true  "Review ID (uuid)"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /reviews/{reviewId} [delete]
func handleDeleteReview(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		reviewID, ok := parseUUIDParam(c, "reviewId")
		if !ok {
			return
		}

		if err := svcs.Reviews.Delete(c.Request.Context(), reviewID); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// --- Catalog handlers ---

// @Summary  Create bus
// @Param    req  body  CreateBusRequest  true  "payload"
// @Success  201  {object}  CreatedResponse
// @Failure  409  {object}  ErrorResponse  "duplicate plate"
// @Router   /buses [post]
func handleCreateBus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		b, err := svcs.Catalog.CreateBus(c.Request.Context(), req.Plate, req.Model, req.Capacity)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreatedResponse{ID: b.ID.String()})
	}
}

// @Summary  List buses
// @Success  200  {array}  BusResponse
// @Router   /buses [get]
func handleListBuses(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 100)
		offset := parseIntDefault(c.Query("offset"), 0)

		out, err := svcs.Catalog.ListBuses(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := make([]BusResponse, 0, len(out))
		for i := range out {
			resp = append(resp, toBusResponse(&out[i]))
		}

		writeJSONWithCache(c, http.StatusOK, resp, "public, max-age=60", true)
	}
}

// @Summary  Get bus
// @Param    busId  path  string  true  "Bus ID (uuid)"
// @Success  200  {object}  BusResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /buses/{busId} [get]
func handleGetBus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		busID, ok := parseUUIDParam(c, "busId")
		if !ok {
			return
		}

		b, err := svcs.Catalog.GetBus(c.Request.Context(), busID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toBusResponse(b))
	}
}

// @Summary  Patch bus
// @Param    busId  path  string            true  "Bus ID (uuid)"
// @Param    req    body  UpdateBusRequest  true  "partial payload"
// @Success  200  {object}  BusResponse
// @Router   /buses/{busId} [patch]
func handleUpdateBus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		busID, ok := parseUUIDParam(c, "busId")
		if !ok {
			return
		}

		var req UpdateBusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		b, err := svcs.Catalog.GetBus(c.Request.Context(), busID)
		if err != nil {
			respondErr(c, err)
			return
		}

		if req.Plate != nil {
			b.Plate = *req.Plate
		}
		if req.Model != nil {
			b.Model = *req.Model
		}
		if req.Capacity != nil {
			if *req.Capacity < 1 {
				badRequest(c, "capacity must be positive")
				return
			}
			b.Capacity = *req.Capacity
		}

		if err := svcs.Catalog.UpdateBus(c.Request.Context(), b); err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toBusResponse(b))
	}
}

// @Summary  Delete bus
// @Param    busId  path  string  true  "Bus ID (uuid)"
// @Success  204
// @Failure  409  {object}  ErrorResponse  "bus referenced by trips"
// @Router   /buses/{busId} [delete]
func handleDeleteBus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		busID, ok := parseUUIDParam(c, "busId")
		if !ok {
			return
		}

		if err := svcs.Catalog.DeleteBus(c.Request.Context(), busID); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  Create city
// @Param    req  body  CreateCityRequest  true  "payload"
// @Success  201  {object}  CreatedResponse
// @Failure  409  {object}  ErrorResponse  "duplicate name"
// @Router   /cities [post]
func handleCreateCity(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		city, err := svcs.Catalog.CreateCity(c.Request.Context(), req.Name)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreatedResponse{ID: city.ID.String()})
	}
}

// @Summary  List cities
// @Success  200  {array}  CityResponse
// @Router   /cities [get]
func handleListCities(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 100)
		offset := parseIntDefault(c.Query("offset"), 0)

		out, err := svcs.Catalog.ListCities(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := make([]CityResponse, 0, len(out))
		for i := range out {
			resp = append(resp, toCityResponse(&out[i]))
		}

		writeJSONWithCache(c, http.StatusOK, resp, "public, max-age=60", true)
	}
}

// @Summary  Get city
// @Param    cityId  path  string  true  "City ID (uuid)"
// @Success  200  {object}  CityResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /cities/{cityId} [get]
func handleGetCity(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		cityID, ok := parseUUIDParam(c, "cityId")
		if !ok {
			return
		}

		city, err := svcs.Catalog.GetCity(c.Request.Context(), cityID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toCityResponse(city))
	}
}

// @Summary  Delete city
// @Param    cityId  path  string  true  "City ID (uuid)"
// @Success  204
// @Failure  409  {object}  ErrorResponse  "city referenced by trips"
// @Router   /cities/{cityId} [delete]
func handleDeleteCity(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		cityID, ok := parseUUIDParam(c, "cityId")
		if !ok {
			return
		}

		if err := svcs.Catalog.DeleteCity(c.Request.Context(), cityID); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var vErr *trips.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  vErr.Reason,
			Fields: vErr.Fields,
		})
		return
	}

	var rlErr *tickets.RateLimitedError
	if errors.As(err, &rlErr) {
		retry := int(rlErr.RetryAfter.Seconds())
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	}

	switch {
	// trips service
	case errors.Is(err, trips.ErrTripNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "trip not found"})
	case errors.Is(err, trips.ErrTripCompleted):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "trip is completed and immutable"})
	case errors.Is(err, trips.ErrBusUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "bus already scheduled for overlapping trip"})
	case errors.Is(err, trips.ErrBusNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "bus not found"})
	case errors.Is(err, trips.ErrCityNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "city not found"})

	// tickets service
	case errors.Is(err, tickets.ErrTripNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "trip not found"})
	case errors.Is(err, tickets.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
	case errors.Is(err, tickets.ErrTripNotActive):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "trip is not open for booking"})
	case errors.Is(err, tickets.ErrSeatOutOfRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "seat outside bus capacity"})
	case errors.Is(err, tickets.ErrSeatTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "seat already booked"})

	// reviews service
	case errors.Is(err, reviews.ErrTripNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "trip not found"})
	case errors.Is(err, reviews.ErrReviewNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "review not found"})
	case errors.Is(err, reviews.ErrInvalidRating):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "rating must be between 1 and 5"})

	// catalog service
	case errors.Is(err, catalog.ErrBusNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "bus not found"})
	case errors.Is(err, catalog.ErrCityNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "city not found"})
	case errors.Is(err, catalog.ErrDuplicatePlate):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "bus with this plate already exists"})
	case errors.Is(err, catalog.ErrDuplicateCity):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "city with this name already exists"})
	case errors.Is(err, catalog.ErrBusInUse):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "bus is referenced by existing trips"})
	case errors.Is(err, catalog.ErrCityInUse):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "city is referenced by existing trips"})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
