package ginserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ereft/internal/app/commands"
	availabilityapp "ereft/internal/app/handlers/availability"
	bookingapp "ereft/internal/app/handlers/booking"
	propertyapp "ereft/internal/app/handlers/property"
	"ereft/internal/app/middleware"
	appoutbox "ereft/internal/app/outbox"
	"ereft/internal/app/queries"
	"ereft/internal/domain/access"
	"ereft/internal/infra/config"
	ginserver "ereft/internal/infra/http/gin"
	"ereft/internal/infra/obs"
	"ereft/internal/infra/storage/memory"
)

var testNow = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

// testServer wires the full memory stack behind the real router, the same way
// the composition root does for the memory storage mode.
type testServer struct {
	router http.Handler
	box    *memory.Outbox
	leases *memory.Lease
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	properties := memory.NewPropertyRepository()
	entries := memory.NewCalendarStore()
	rules := memory.NewRuleRepository()
	bookings := memory.NewBookingRepository()
	box := memory.NewOutbox()
	leases := memory.NewLease(50 * time.Millisecond)
	factory := memory.Factory{
		PropertyRepo: properties,
		Entries:      entries,
		RuleRepo:     rules,
		BookingRepo:  bookings,
	}
	gate := access.NewGate(nil)
	encoder := appoutbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{
		UoWFactory: factory, Lease: leases, Outbox: box, Encoder: encoder, HorizonDays: 365, Clock: clock,
	})
	commands.RegisterHandler(commandBus, bookingapp.TransitionBookingCommand{}.Key(), &bookingapp.TransitionBookingHandler{
		UoWFactory: factory, Lease: leases, Gate: gate, Outbox: box, Encoder: encoder, Clock: clock,
	})
	commands.RegisterHandler(commandBus, availabilityapp.BulkUpsertCalendarCommand{}.Key(), &availabilityapp.BulkUpsertCalendarHandler{
		UoWFactory: factory, Lease: leases, Gate: gate, Clock: clock,
	})
	commands.RegisterHandler(commandBus, availabilityapp.SetCalendarDateCommand{}.Key(), &availabilityapp.SetCalendarDateHandler{
		UoWFactory: factory, Lease: leases, Gate: gate, Clock: clock,
	})
	commands.RegisterHandler(commandBus, availabilityapp.RemoveCalendarDateCommand{}.Key(), &availabilityapp.RemoveCalendarDateHandler{
		UoWFactory: factory, Lease: leases, Gate: gate,
	})
	commands.RegisterHandler(commandBus, availabilityapp.CreateRuleCommand{}.Key(), &availabilityapp.CreateRuleHandler{Gate: gate, Clock: clock})
	commands.RegisterHandler(commandBus, availabilityapp.UpdateRuleCommand{}.Key(), &availabilityapp.UpdateRuleHandler{Gate: gate})
	commands.RegisterHandler(commandBus, availabilityapp.DeleteRuleCommand{}.Key(), &availabilityapp.DeleteRuleHandler{Gate: gate})
	commands.RegisterHandler(commandBus, propertyapp.CreatePropertyCommand{}.Key(), &propertyapp.CreatePropertyHandler{})
	commands.RegisterHandler(commandBus, propertyapp.DeletePropertyCommand{}.Key(), &propertyapp.DeletePropertyHandler{Gate: gate})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, availabilityapp.ListCalendarQuery{}.Key(), &availabilityapp.ListCalendarHandler{
		Properties: properties, Entries: entries, Rules: rules, Gate: gate, Clock: clock,
	})
	queries.RegisterHandler(queryBus, availabilityapp.ListRulesQuery{}.Key(), &availabilityapp.ListRulesHandler{
		Properties: properties, Rules: rules, Gate: gate,
	})
	queries.RegisterHandler(queryBus, bookingapp.ListPropertyBookingsQuery{}.Key(), &bookingapp.ListPropertyBookingsHandler{
		Properties: properties, Bookings: bookings, Gate: gate,
	})
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{
		Properties: properties, Bookings: bookings, Gate: gate,
	})
	queries.RegisterHandler(queryBus, propertyapp.GetPropertyQuery{}.Key(), &propertyapp.GetPropertyHandler{
		Properties: properties,
	})

	logger := slog.New(slog.DiscardHandler)
	wrappedCommands := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(memory.NewIdempotencyStore(), time.Hour),
		middleware.Retry(logger, 0),
		middleware.Transaction(factory, nil),
		middleware.OutboxFlush(box, logger),
	)
	wrappedQueries := middleware.ChainQueries(queryBus)

	server := ginserver.NewServer(
		config.Config{Env: "test", HTTPAddr: ":0"},
		obs.Middleware{Logger: logger},
		obs.HealthHandlers{},
		ginserver.Handlers{
			Availability: ginserver.AvailabilityHandler{Commands: wrappedCommands, Queries: wrappedQueries},
			Booking:      ginserver.BookingHandler{Commands: wrappedCommands, Queries: wrappedQueries},
			Property: ginserver.PropertyHandler{
				Commands:        wrappedCommands,
				Queries:         wrappedQueries,
				DefaultCurrency: "ETB",
			},
			AuthMiddleware: ginserver.AuthMiddleware{}.Handle,
		},
	)

	return &testServer{router: server.Handler, box: box, leases: leases}
}

func (s *testServer) do(t *testing.T, method, path, userID string, body any, headers ...map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	for _, h := range headers {
		for k, v := range h {
			req.Header.Set(k, v)
		}
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func (s *testServer) createProperty(t *testing.T, owner string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/properties", owner, map[string]any{
		"title":         "Lakeside Cabin",
		"nightly_price": 150000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id, ok := decode(t, rec)["id"].(string)
	require.True(t, ok)
	return id
}

func bookingRequest(name, email, checkIn, checkOut string) map[string]any {
	return map[string]any{
		"guest_name":     name,
		"guest_email":    email,
		"guest_phone":    "+251911000000",
		"check_in_date":  checkIn,
		"check_out_date": checkOut,
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/livez", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/readyz", "", nil).Code)
}

func TestCreatePropertyRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/properties", "", map[string]any{
		"title":         "Cabin",
		"nightly_price": 1000,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetPropertyNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/properties/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	propID := s.createProperty(t, "owner-1")

	rec := s.do(t, http.MethodPost, "/api/v1/properties/"+propID+"/bookings", "guest-1",
		bookingRequest("Abebe Kebede", "abebe@example.com", "2025-03-10", "2025-03-13"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	bookingID, _ := created["id"].(string)
	require.NotEmpty(t, bookingID)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, float64(3), created["nights"])
	assert.Equal(t, float64(450000), created["total_price"])
	assert.Equal(t, "ETB", created["currency"])

	rec = s.do(t, http.MethodPut, "/api/v1/bookings/"+bookingID+"/status", "owner-1",
		map[string]any{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode(t, rec)["status"])

	// The confirmed nights now reject an overlapping request.
	rec = s.do(t, http.MethodPost, "/api/v1/properties/"+propID+"/bookings", "guest-2",
		bookingRequest("Sara Tesfaye", "sara@example.com", "2025-03-11", "2025-03-14"))
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	conflict := decode(t, rec)
	assert.Equal(t, "requested dates are not available", conflict["detail"])
	assert.Equal(t, []any{"2025-03-11", "2025-03-12"}, conflict["unavailable_dates"])

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/bookings/"+bookingID, "guest-1", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/bookings/"+bookingID, "guest-9", nil).Code)

	// Cancelling releases the nights for the next guest.
	rec = s.do(t, http.MethodPut, "/api/v1/bookings/"+bookingID+"/status", "guest-1",
		map[string]any{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/properties/"+propID+"/bookings", "guest-2",
		bookingRequest("Sara Tesfaye", "sara@example.com", "2025-03-11", "2025-03-14"))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Positive(t, s.box.Pending(), "lifecycle should have queued outbox events")
}

func TestCreateBookingValidation(t *testing.T) {
	s := newTestServer(t)
	propID := s.createProperty(t, "owner-1")

	rec := s.do(t, http.MethodPost, "/api/v1/properties/"+propID+"/bookings", "guest-1",
		bookingRequest("Abebe Kebede", "abebe@example.com", "2025-03-13", "2025-03-10"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/properties/"+propID+"/bookings", "guest-1",
		bookingRequest("Abebe Kebede", "abebe@example.com", "not-a-date", "2025-03-10"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBookingIdempotencyKeyReplay(t *testing.T) {
	s := newTestServer(t)
	propID := s.createProperty(t, "owner-1")

	path := "/api/v1/properties/" + propID + "/bookings"
	body := bookingRequest("Abebe Kebede", "abebe@example.com", "2025-03-10", "2025-03-13")
	key := map[string]string{"Idempotency-Key": "retry-1"}

	first := s.do(t, http.MethodPost, path, "guest-1", body, key)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := s.do(t, http.MethodPost, path, "guest-1", body, key)
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())

	assert.Equal(t, decode(t, first)["id"], decode(t, second)["id"], "replay must return the original booking")
}

func TestCalendarEndpointsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	propID := s.createProperty(t, "owner-1")

	rec := s.do(t, http.MethodPost, "/api/v1/properties/"+propID+"/availability", "owner-1", map[string]any{
		"dates": []map[string]any{
			{"date": "2025-03-10", "status": "blocked", "notes": "painting"},
			{"date": "2025-03-11", "status": "blocked"},
			{"date": "2025-03-99", "status": "blocked"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode(t, rec)
	assert.Equal(t, float64(2), result["created"])
	errs, ok := result["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "2025-03-99", errs[0].(map[string]any)["date"])

	// A clean batch reports errors explicitly as null, not by omission.
	rec = s.do(t, http.MethodPost, "/api/v1/properties/"+propID+"/availability", "owner-1", map[string]any{
		"dates": []map[string]any{
			{"date": "2025-03-15", "status": "blocked"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"errors":null`)

	// Owners see notes, anonymous readers only the status.
	rec = s.do(t, http.MethodGet, "/api/v1/properties/"+propID+"/availability?start_date=2025-03-10&end_date=2025-03-10", "owner-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	days, ok := decode(t, rec)["days"].([]any)
	require.True(t, ok)
	require.Len(t, days, 1)
	ownerDay := days[0].(map[string]any)
	assert.Equal(t, "blocked", ownerDay["status"])
	assert.Equal(t, "painting", ownerDay["notes"])

	rec = s.do(t, http.MethodGet, "/api/v1/properties/"+propID+"/availability?start_date=2025-03-10&end_date=2025-03-10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	anonDay := decode(t, rec)["days"].([]any)[0].(map[string]any)
	assert.Equal(t, "blocked", anonDay["status"])
	_, hasNotes := anonDay["notes"]
	assert.False(t, hasNotes)

	rec = s.do(t, http.MethodPut, "/api/v1/properties/"+propID+"/availability/2025-03-12", "guest-1",
		map[string]any{"status": "blocked"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/properties/"+propID+"/availability/2025-03-12", "owner-1",
		map[string]any{"status": "blocked"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPut, "/api/v1/properties/"+propID+"/availability/2025-03-12", "owner-1",
		map[string]any{"status": "available"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/v1/properties/"+propID+"/availability/2025-03-12", "owner-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/v1/properties/"+propID+"/availability/2025-03-12", "owner-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/properties/"+propID+"/availability/tomorrow", "owner-1",
		map[string]any{"status": "blocked"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuleEndpointsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	propID := s.createProperty(t, "owner-1")

	rec := s.do(t, http.MethodPost, "/api/v1/properties/"+propID+"/availability-rules", "owner-1", map[string]any{
		"rule_type":    "weekly",
		"status":       "blocked",
		"days_of_week": []int{5, 6},
		"start_date":   "2025-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ruleID, _ := decode(t, rec)["id"].(string)
	require.NotEmpty(t, ruleID)

	// 2025-03-07 is a Friday, 2025-03-08 a Saturday.
	rec = s.do(t, http.MethodGet, "/api/v1/properties/"+propID+"/availability?start_date=2025-03-07&end_date=2025-03-08", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	days := decode(t, rec)["days"].([]any)
	require.Len(t, days, 2)
	assert.Equal(t, "available", days[0].(map[string]any)["status"])
	assert.Equal(t, "blocked", days[1].(map[string]any)["status"])

	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodGet, "/api/v1/properties/"+propID+"/availability-rules", "guest-1", nil).Code)
	rec = s.do(t, http.MethodGet, "/api/v1/properties/"+propID+"/availability-rules", "owner-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rules := decode(t, rec)["rules"].([]any)
	require.Len(t, rules, 1)

	rec = s.do(t, http.MethodPatch, "/api/v1/availability-rules/"+ruleID, "owner-1",
		map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/properties/"+propID+"/availability?start_date=2025-03-08&end_date=2025-03-08", "", nil)
	days = decode(t, rec)["days"].([]any)
	assert.Equal(t, "available", days[0].(map[string]any)["status"])

	assert.Equal(t, http.StatusNoContent,
		s.do(t, http.MethodDelete, "/api/v1/availability-rules/"+ruleID, "owner-1", nil).Code)
	assert.Equal(t, http.StatusNotFound,
		s.do(t, http.MethodDelete, "/api/v1/availability-rules/"+ruleID, "owner-1", nil).Code)
}

func TestCreateBookingWhileLeaseHeld(t *testing.T) {
	s := newTestServer(t)
	propID := s.createProperty(t, "owner-1")

	release, err := s.leases.Acquire(context.Background(), propID)
	require.NoError(t, err)
	defer release()

	rec := s.do(t, http.MethodPost, "/api/v1/properties/"+propID+"/bookings", "guest-1",
		bookingRequest("Abebe Kebede", "abebe@example.com", "2025-03-10", "2025-03-13"))
	assert.Equal(t, http.StatusLocked, rec.Code)
}

func TestDeletePropertyOverHTTP(t *testing.T) {
	s := newTestServer(t)
	propID := s.createProperty(t, "owner-1")

	rec := s.do(t, http.MethodPut, "/api/v1/properties/"+propID+"/availability/2025-03-10", "owner-1",
		map[string]any{"status": "blocked"})
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/api/v1/properties/"+propID, "guest-1", nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/properties/"+propID, "owner-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/properties/"+propID, "", nil).Code)
	assert.Equal(t, http.StatusNotFound,
		s.do(t, http.MethodGet, "/api/v1/properties/"+propID+"/availability", "", nil).Code)
}
