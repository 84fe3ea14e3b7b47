// Package fakeapi is an in-process stand-in for the EscuelaJS store API used
// by tests. It keeps users, tokens, categories and products in memory and
// records every call it receives.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/storeadmin/internal/client/models"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

var signingKey = []byte("fakeapi-signing-key")

// Call is one request seen by the server.
type Call struct {
	Method        string
	Path          string
	Query         string
	Authorization string
}

func (c Call) String() string {
	return c.Method + " " + c.Path
}

type user struct {
	profile  models.UserProfile
	password string
}

type override struct {
	status int
	body   string
}

type Server struct {
	*httptest.Server

	// TokenTTL is the lifetime written into issued access tokens.
	TokenTTL time.Duration

	mu            sync.Mutex
	users         map[int64]*user
	nextUserID    int64
	tokens        map[string]int64
	categories    []models.Category
	products      []models.Product
	nextProductID int64
	calls         []Call
	overrides     map[string]override
}

// New starts a server and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		TokenTTL:      time.Hour,
		users:         make(map[int64]*user),
		nextUserID:    1,
		tokens:        make(map[string]int64),
		nextProductID: 1,
		overrides:     make(map[string]override),
		categories: []models.Category{
			{ID: 1, Name: "Clothes", Slug: "clothes"},
			{ID: 2, Name: "Electronics", Slug: "electronics"},
		},
	}

	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.applyOverrides)

	r.Post("/users/", s.createUser)
	r.Post("/auth/login", s.login)
	r.Get("/auth/profile", s.profile)
	r.Post("/auth/logout", s.logout)
	r.Get("/categories", s.listCategories)
	r.Get("/products", s.listProducts)
	r.Post("/products", s.createProduct)
	r.Put("/products/{id}", s.updateProduct)
	r.Delete("/products/{id}", s.deleteProduct)
	r.Post("/files/upload", s.upload)

	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) applyOverrides(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		o, ok := s.overrides[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(o.status)
		_, _ = io.WriteString(w, o.body)
	})
}

// Override makes method+path answer with status and a raw body.
func (s *Server) Override(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = override{status: status, body: body}
}

func (s *Server) ClearOverride(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, method+" "+path)
}

func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallNames returns "METHOD /path" for every recorded call.
func (s *Server) CallNames() []string {
	calls := s.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// SeedUser adds an account that can log in remotely.
func (s *Server) SeedUser(email, password, name, role string) models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, name, role, "")
}

// SeedProducts adds n products named "Product 1".."Product n" in category 1.
func (s *Server) SeedProducts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.addProductLocked(models.CreateProductPayload{
			Title:      fmt.Sprintf("Product %d", s.nextProductID),
			Price:      float64(10 + i),
			CategoryID: 1,
			Images:     []string{"https://img.example/p.png"},
		})
	}
}

// RevokeAll invalidates every issued token.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]int64)
}

func (s *Server) addUserLocked(email, password, name, role, avatar string) models.UserProfile {
	id := s.nextUserID
	s.nextUserID++
	p := models.UserProfile{ID: id, Email: email, Name: name, Role: role, Avatar: avatar}
	s.users[id] = &user{profile: p, password: password}
	return p
}

func (s *Server) addProductLocked(p models.CreateProductPayload) models.Product {
	var cat *models.Category
	for i := range s.categories {
		if s.categories[i].ID == p.CategoryID {
			c := s.categories[i]
			cat = &c
		}
	}
	now := time.Now().UTC()
	prod := models.Product{
		ID:          s.nextProductID,
		Title:       p.Title,
		Slug:        strings.ToLower(strings.ReplaceAll(p.Title, " ", "-")),
		Price:       p.Price,
		Description: p.Description,
		Category:    cat,
		Images:      p.Images,
		CreationAt:  &now,
		UpdatedAt:   &now,
	}
	s.nextProductID++
	// newest first, like the live API
	s.products = append([]models.Product{prod}, s.products...)
	return prod
}

func (s *Server) issueTokenLocked(userID int64) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.TokenTTL)),
		ID:        strconv.Itoa(len(s.tokens) + 1),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		return "", err
	}
	s.tokens[token] = userID
	return token, nil
}

func (s *Server) userFromBearer(r *http.Request) (*user, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	u, ok := s.users[id]
	return u, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message any) {
	writeJSON(w, status, map[string]any{
		"message":    message,
		"error":      http.StatusText(status),
		"statusCode": status,
	})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var p models.CreateUserPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	var problems []string
	if !strings.Contains(p.Email, "@") {
		problems = append(problems, "email must be an email")
	}
	if p.Password == "" {
		problems = append(problems, "password should not be empty")
	}
	if len(problems) > 0 {
		writeError(w, http.StatusBadRequest, problems)
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if strings.EqualFold(u.profile.Email, p.Email) {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, "email already registered")
			return
		}
	}
	profile := s.addUserLocked(p.Email, p.Password, p.Name, "customer", p.Avatar)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds models.LoginCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.profile.Email == creds.Email && u.password == creds.Password {
			access, err := s.issueTokenLocked(id)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusCreated, models.AuthTokens{AccessToken: access, RefreshToken: "refresh-" + access[len(access)-8:]})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Unauthorized")
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	u, ok := s.userFromBearer(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, u.profile)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.userFromBearer(r); !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, true)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]models.Category(nil), s.categories...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	title := strings.ToLower(q.Get("title"))

	s.mu.Lock()
	var filtered []models.Product
	for _, p := range s.products {
		if title == "" || strings.Contains(strings.ToLower(p.Title), title) {
			filtered = append(filtered, p)
		}
	}
	s.mu.Unlock()

	if q.Has("offset") || q.Has("limit") {
		offset, _ := strconv.Atoi(q.Get("offset"))
		limit, err := strconv.Atoi(q.Get("limit"))
		if err != nil || limit <= 0 {
			limit = len(filtered)
		}
		if offset > len(filtered) {
			offset = len(filtered)
		}
		end := min(offset+limit, len(filtered))
		filtered = filtered[offset:end]
	}

	if filtered == nil {
		filtered = []models.Product{}
	}
	writeJSON(w, http.StatusOK, filtered)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var p models.CreateProductPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if p.Title == "" {
		writeError(w, http.StatusBadRequest, []string{"title should not be empty"})
		return
	}

	s.mu.Lock()
	prod := s.addProductLocked(p)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, prod)
}

func (s *Server) productIndexLocked(r *http.Request) (int, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, false
	}
	for i := range s.products {
		if s.products[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var p models.UpdateProductPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.productIndexLocked(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Could not find any entity of type \"Product\"")
		return
	}

	prod := &s.products[i]
	if p.Title != nil {
		prod.Title = *p.Title
	}
	if p.Price != nil {
		prod.Price = *p.Price
	}
	if p.Description != nil {
		prod.Description = *p.Description
	}
	if len(p.Images) > 0 {
		prod.Images = p.Images
	}
	writeJSON(w, http.StatusOK, *prod)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.productIndexLocked(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Could not find any entity of type \"Product\"")
		return
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	writeJSON(w, http.StatusOK, true)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	_, _ = io.Copy(io.Discard, file)

	writeJSON(w, http.StatusCreated, models.UploadedFile{
		OriginalName: header.Filename,
		Filename:     "up-" + header.Filename,
		Location:     s.URL + "/files/up-" + header.Filename,
	})
}
