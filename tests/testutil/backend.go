package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nhle/airbrb-notify/internal/model"
)

// Backend is an in-process fake of the AirBrB REST API serving
// GET /listings, GET /listings/:id and GET /bookings. Its catalog and
// bookings can be changed while a test runs.
type Backend struct {
	server *httptest.Server

	mu               sync.Mutex
	token            string
	listings         map[string]model.Listing
	order            []string
	bookings         []model.Booking
	bookingsStatus   int
	bookingsRequests int
	afterBookings    func()
}

// NewBackend starts a fake backend that accepts token as the only valid
// bearer token. It is shut down when the test completes.
func NewBackend(t *testing.T, token string) *Backend {
	t.Helper()

	gin.SetMode(gin.TestMode)

	b := &Backend{
		token:    token,
		listings: make(map[string]model.Listing),
	}

	router := gin.New()
	router.GET("/listings", b.handleListings)

	authed := router.Group("/")
	authed.Use(b.requireToken)
	{
		authed.GET("/listings/:id", b.handleListing)
		authed.GET("/bookings", b.handleBookings)
	}

	b.server = httptest.NewServer(router)
	t.Cleanup(b.server.Close)

	return b
}

// URL returns the base URL of the fake backend.
func (b *Backend) URL() string {
	return b.server.URL
}

// AddListing adds a listing to the catalog.
func (b *Backend) AddListing(id, title, owner string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.listings[id]; !ok {
		b.order = append(b.order, id)
	}
	b.listings[id] = model.Listing{ID: id, Title: title, Owner: owner, Published: true}
}

// SetBookings replaces the bookings snapshot.
func (b *Backend) SetBookings(bookings ...model.Booking) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bookings = append([]model.Booking(nil), bookings...)
}

// SetBookingStatus changes the status of booking id in the snapshot.
func (b *Backend) SetBookingStatus(id string, status model.BookingStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.bookings {
		if b.bookings[i].ID == id {
			b.bookings[i].Status = status
		}
	}
}

// FailBookings makes GET /bookings answer with status. Zero restores
// normal behavior.
func (b *Backend) FailBookings(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bookingsStatus = status
}

// AfterNextBookings runs fn once, after the next GET /bookings snapshot is
// taken and before it is sent. fn may call other Backend methods.
func (b *Backend) AfterNextBookings(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.afterBookings = fn
}

// BookingRequests returns how many GET /bookings requests were served.
func (b *Backend) BookingRequests() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.bookingsRequests
}

func (b *Backend) requireToken(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != b.token {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid token"})
		return
	}
	c.Next()
}

func (b *Backend) handleListings(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]gin.H, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, gin.H{"id": wireID(id), "title": b.listings[id].Title})
	}
	c.JSON(http.StatusOK, gin.H{"listings": out})
}

func (b *Backend) handleListing(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.listings[c.Param("id")]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": gin.H{
		"title":     l.Title,
		"owner":     l.Owner,
		"price":     l.Price,
		"thumbnail": l.Thumbnail,
		"published": l.Published,
		"reviews":   []gin.H{},
	}})
}

func (b *Backend) handleBookings(c *gin.Context) {
	b.mu.Lock()
	after := b.afterBookings
	b.afterBookings = nil

	b.bookingsRequests++
	if b.bookingsStatus != 0 {
		status := b.bookingsStatus
		b.mu.Unlock()
		if after != nil {
			after()
		}
		c.JSON(status, gin.H{"error": "Backend unavailable"})
		return
	}

	out := make([]gin.H, 0, len(b.bookings))
	for _, bk := range b.bookings {
		out = append(out, gin.H{
			"id":        wireID(bk.ID),
			"listingId": bk.ListingID,
			"owner":     bk.GuestEmail,
			"status":    string(bk.Status),
			"dateRange": gin.H{"start": bk.DateRange.Start, "end": bk.DateRange.End},
		})
	}
	b.mu.Unlock()

	if after != nil {
		after()
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

// wireID renders numeric ids as JSON numbers, the way the backend does.
func wireID(id string) any {
	if n, err := strconv.Atoi(id); err == nil {
		return n
	}
	return id
}
