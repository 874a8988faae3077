// Package backend is an in-process storefront API used by integration
// tests. It implements the same envelope, auth and order-deduplication
// contract as the real backend, plus switches to inject latency and
// failures.
//
// Quirk preserved on purpose: different routes name record identifiers
// differently ("id", "productId", "_id"), which is exactly what the
// client's boundary normalization exists for.
package backend

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	storefront "github.com/tiendio/storefront-go"
)

type user struct {
	profile  storefront.UserProfile
	password string
	verified bool
}

type orderRecord struct {
	id              string
	clientRequestID string
	userID          string
	lines           []storefront.OrderLine
	total           float64
	status          string
	createdAt       time.Time
}

// Server is the in-process backend.
type Server struct {
	mu          sync.Mutex
	engine      *gin.Engine
	users       map[string]*user  // by email
	tokens      map[string]string // token -> email
	products    []gin.H
	orders      []*orderRecord
	byRequestID map[string]*orderRecord
	orderDelay  time.Duration
	failOrders  int
}

// New creates a backend seeded with a verified shopper, an unverified
// account, an admin, and a small mixed-identifier catalog.
func New() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		users: map[string]*user{
			"ada@example.com": {
				profile:  storefront.UserProfile{ID: "u-ada", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Role: "customer"},
				password: "correct-horse",
				verified: true,
			},
			"bob@example.com": {
				profile:  storefront.UserProfile{ID: "u-bob", FirstName: "Bob", LastName: "Builder", Email: "bob@example.com", Role: "customer"},
				password: "hunter2hunter2",
				verified: false,
			},
			"root@example.com": {
				profile:  storefront.UserProfile{ID: "u-root", FirstName: "Root", LastName: "Admin", Email: "root@example.com", Role: "admin"},
				password: "root-password",
				verified: true,
			},
		},
		tokens: map[string]string{},
		products: []gin.H{
			{"id": "p-1", "title": "Desk Lamp", "price": 19.5, "image": "https://img.example.com/lamp"},
			{"productId": "p-2", "title": "Notebook", "price": 4.25, "image": "https://img.example.com/notebook"},
			{"_id": "p-3", "title": "Mechanical Keyboard", "price": 89.0, "image": "https://img.example.com/keyboard"},
		},
		byRequestID: map[string]*orderRecord{},
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the backend as an http.Handler for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ============================================================================
// Test Controls
// ============================================================================

// SetOrderDelay makes order creation record the order first, then sit on
// the response for d. With a client deadline shorter than d this is the
// "server processed it, response lost" scenario.
func (s *Server) SetOrderDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderDelay = d
}

// FailNextOrders makes the next n order creations respond 500 before
// doing any work.
func (s *Server) FailNextOrders(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOrders = n
}

// RevokeAllTokens invalidates every issued credential, simulating
// server-side session expiry.
func (s *Server) RevokeAllTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]string{}
}

// OrderCount reports how many orders exist.
func (s *Server) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// ============================================================================
// Routes
// ============================================================================

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	api := engine.Group("/api")
	{
		api.POST("/auth/login", s.login)
		api.POST("/auth/register", s.register)
		api.POST("/auth/forgot-password", s.forgotPassword)
		api.POST("/auth/reset-password", s.resetPassword)
		api.GET("/productRoutes", s.listProducts)
		api.GET("/productRoutes/:id", s.getProduct)

		authed := api.Group("", s.requireAuth)
		{
			authed.GET("/auth/me", s.me)
			authed.POST("/orderRoutes", s.createOrder)
			authed.GET("/orders", s.listMyOrders)
		}

		admin := api.Group("", s.requireAuth, s.requireAdmin)
		{
			admin.GET("/orders/admin/all", s.listAllOrders)
			admin.PUT("/orders/:id", s.updateOrderStatus)
			admin.DELETE("/orders/:id", s.deleteOrder)
			admin.POST("/products", s.createProduct)
			admin.PUT("/products/:id", s.updateProduct)
			admin.DELETE("/products/:id", s.deleteProduct)
			admin.GET("/userRoutes", s.listUsers)
			admin.PUT("/userRoutes/:id", s.updateUser)
			admin.DELETE("/userRoutes/:id", s.deleteUser)
		}
	}
	return engine
}

func ok(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{"success": true, "message": message, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// ============================================================================
// Auth
// ============================================================================

func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		fail(c, http.StatusUnauthorized, "missing bearer token")
		return
	}

	s.mu.Lock()
	email, valid := s.tokens[token]
	s.mu.Unlock()
	if !valid {
		fail(c, http.StatusUnauthorized, "token expired or revoked")
		return
	}
	c.Set("email", email)
}

func (s *Server) requireAdmin(c *gin.Context) {
	s.mu.Lock()
	u := s.users[c.GetString("email")]
	s.mu.Unlock()
	if u == nil || u.profile.Role != "admin" {
		fail(c, http.StatusForbidden, "admin role required")
	}
}

func (s *Server) currentUser(c *gin.Context) *user {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[c.GetString("email")]
}

func (s *Server) login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "malformed login request")
		return
	}

	s.mu.Lock()
	u := s.users[body.Email]
	s.mu.Unlock()
	if u == nil || u.password != body.Password {
		fail(c, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if !u.verified {
		fail(c, http.StatusForbidden, "verify your email before logging in")
		return
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = body.Email
	s.mu.Unlock()

	ok(c, http.StatusOK, "welcome back", gin.H{"token": token, "user": u.profile})
}

func (s *Server) register(c *gin.Context) {
	var in storefront.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "malformed registration request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[in.Email]; exists {
		fail(c, http.StatusConflict, "email already registered")
		return
	}
	s.users[in.Email] = &user{
		profile: storefront.UserProfile{
			ID:        "u-" + uuid.NewString()[:8],
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Email:     in.Email,
			Role:      "customer",
		},
		password: in.Password,
		verified: false,
	}
	ok(c, http.StatusCreated, "check your email to verify your account", gin.H{})
}

func (s *Server) me(c *gin.Context) {
	u := s.currentUser(c)
	if u == nil {
		fail(c, http.StatusUnauthorized, "unknown user")
		return
	}
	ok(c, http.StatusOK, "ok", gin.H{"user": u.profile})
}

func (s *Server) forgotPassword(c *gin.Context) {
	ok(c, http.StatusOK, "if the account exists, a reset link was sent", gin.H{})
}

func (s *Server) resetPassword(c *gin.Context) {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Token != "valid-reset-token" {
		fail(c, http.StatusBadRequest, "reset token invalid or expired")
		return
	}
	ok(c, http.StatusOK, "password updated", gin.H{})
}

// ============================================================================
// Catalog
// ============================================================================

func (s *Server) listProducts(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok(c, http.StatusOK, "ok", s.products)
}

func (s *Server) getProduct(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.products {
		if recordID(record) == id {
			ok(c, http.StatusOK, "ok", record)
			return
		}
	}
	fail(c, http.StatusNotFound, "no such product")
}

func recordID(record gin.H) string {
	for _, field := range []string{"id", "productId", "_id"} {
		if v, okCast := record[field].(string); okCast && v != "" {
			return v
		}
	}
	return ""
}

// ============================================================================
// Orders
// ============================================================================

func (s *Server) createOrder(c *gin.Context) {
	var sub storefront.OrderSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		fail(c, http.StatusBadRequest, "malformed order request")
		return
	}
	if sub.ClientRequestID == "" {
		fail(c, http.StatusBadRequest, "clientRequestId is required")
		return
	}

	s.mu.Lock()
	if existing, dup := s.byRequestID[sub.ClientRequestID]; dup {
		delay := s.orderDelay
		s.mu.Unlock()
		time.Sleep(delay)
		ok(c, http.StatusOK, "order already processed", orderReceipt(existing))
		return
	}
	if s.failOrders > 0 {
		s.failOrders--
		s.mu.Unlock()
		fail(c, http.StatusInternalServerError, "temporary failure, try again")
		return
	}
	if len(sub.Lines) == 0 {
		s.mu.Unlock()
		fail(c, http.StatusUnprocessableEntity, "order has no lines")
		return
	}

	record := &orderRecord{
		id:              "o-" + uuid.NewString()[:8],
		clientRequestID: sub.ClientRequestID,
		userID:          s.users[c.GetString("email")].profile.ID,
		lines:           sub.Lines,
		total:           sub.Total,
		status:          "created",
		createdAt:       time.Now().UTC(),
	}
	// Record first, then delay: a client that times out here still
	// created the order, which is the whole point of the idempotency key
	s.orders = append(s.orders, record)
	s.byRequestID[sub.ClientRequestID] = record
	delay := s.orderDelay
	s.mu.Unlock()

	time.Sleep(delay)
	ok(c, http.StatusCreated, "order created", orderReceipt(record))
}

func orderReceipt(o *orderRecord) gin.H {
	return gin.H{"orderId": o.id, "total": o.total, "createdAt": o.createdAt}
}

// orderDocument renders an order the way the history routes do: "_id"
// for the order, "productId" on each line.
func orderDocument(o *orderRecord) gin.H {
	lines := make([]gin.H, 0, len(o.lines))
	for _, l := range o.lines {
		lines = append(lines, gin.H{
			"productId": l.ID,
			"name":      l.Name,
			"unitPrice": l.UnitPrice,
			"quantity":  l.Quantity,
		})
	}
	return gin.H{
		"_id":       o.id,
		"lines":     lines,
		"total":     o.total,
		"status":    o.status,
		"createdAt": o.createdAt,
	}
}

func (s *Server) listMyOrders(c *gin.Context) {
	u := s.currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := []gin.H{}
	for _, o := range s.orders {
		if u != nil && o.userID == u.profile.ID {
			docs = append(docs, orderDocument(o))
		}
	}
	ok(c, http.StatusOK, "ok", docs)
}

func (s *Server) listAllOrders(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := []gin.H{}
	for _, o := range s.orders {
		docs = append(docs, orderDocument(o))
	}
	ok(c, http.StatusOK, "ok", docs)
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	id := c.Param("id")
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Status == "" {
		fail(c, http.StatusBadRequest, "malformed status update")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.id == id {
			o.status = body.Status
			ok(c, http.StatusOK, "order updated", gin.H{})
			return
		}
	}
	fail(c, http.StatusNotFound, "no such order")
}

func (s *Server) deleteOrder(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, o := range s.orders {
		if o.id == id {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			delete(s.byRequestID, o.clientRequestID)
			ok(c, http.StatusOK, "order deleted", gin.H{})
			return
		}
	}
	fail(c, http.StatusNotFound, "no such order")
}

// ============================================================================
// Admin: products and users
// ============================================================================

func (s *Server) createProduct(c *gin.Context) {
	var in gin.H
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "malformed product")
		return
	}
	in["id"] = "p-" + uuid.NewString()[:8]

	s.mu.Lock()
	s.products = append(s.products, in)
	s.mu.Unlock()
	ok(c, http.StatusCreated, "product created", in)
}

func (s *Server) updateProduct(c *gin.Context) {
	id := c.Param("id")
	var in gin.H
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "malformed product")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, record := range s.products {
		if recordID(record) == id {
			in["id"] = id
			s.products[i] = in
			ok(c, http.StatusOK, "product updated", in)
			return
		}
	}
	fail(c, http.StatusNotFound, "no such product")
}

func (s *Server) deleteProduct(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, record := range s.products {
		if recordID(record) == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			ok(c, http.StatusOK, "product deleted", gin.H{})
			return
		}
	}
	fail(c, http.StatusNotFound, "no such product")
}

func (s *Server) listUsers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := []gin.H{}
	for _, u := range s.users {
		docs = append(docs, gin.H{
			"_id":       u.profile.ID,
			"firstName": u.profile.FirstName,
			"lastName":  u.profile.LastName,
			"email":     u.profile.Email,
			"role":      u.profile.Role,
		})
	}
	ok(c, http.StatusOK, "ok", docs)
}

func (s *Server) updateUser(c *gin.Context) {
	id := c.Param("id")
	var body struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "malformed user update")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.profile.ID == id {
			u.profile.Role = body.Role
			ok(c, http.StatusOK, "user updated", gin.H{})
			return
		}
	}
	fail(c, http.StatusNotFound, "no such user")
}

func (s *Server) deleteUser(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, u := range s.users {
		if u.profile.ID == id {
			delete(s.users, email)
			ok(c, http.StatusOK, "user deleted", gin.H{})
			return
		}
	}
	fail(c, http.StatusNotFound, "no such user")
}
