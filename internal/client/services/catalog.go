package services

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/storeadmin/internal/client/api"
	"github.com/dmitrijs2005/storeadmin/internal/client/models"
	"github.com/dmitrijs2005/storeadmin/internal/logging"
)

const (
	DefaultImageURL   = "https://images.pexels.com/photos/7156889/pexels-photo-7156889.jpeg?auto=compress&cs=tinysrgb&w=800"
	DefaultCategoryID = 1
	DefaultPageSize   = 8
)

var ErrUploadMissingURL = errors.New("image upload failed: missing URL")

// CatalogAPI is the part of the store API the catalog talks to.
type CatalogAPI interface {
	Categories(ctx context.Context) ([]models.Category, error)
	Products(ctx context.Context, q api.ProductQuery) ([]models.Product, error)
	CreateProduct(ctx context.Context, payload models.CreateProductPayload) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, payload models.UpdateProductPayload) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	UploadFile(ctx context.Context, filename string, content io.Reader) (*models.UploadedFile, error)
}

// CatalogError carries the user-facing message of a failed catalog
// operation.
type CatalogError struct {
	Message string
	Err     error
}

func (e *CatalogError) Error() string { return e.Message }
func (e *CatalogError) Unwrap() error { return e.Err }

type Pagination struct {
	CurrentPage int
	PageSize    int
	Total       int
}

// Range is the 1-based span of products on the current page; zero when the
// page is empty.
type Range struct {
	Start int
	End   int
}

// FetchOptions tune FetchProducts. A nil Search keeps the current query.
type FetchOptions struct {
	Force       bool
	ReloadTotal bool
	Search      *string
}

// CatalogState is a copy of the catalog at one moment.
type CatalogState struct {
	Categories      []models.Category
	Products        []models.Product
	Pagination      Pagination
	Search          string
	Hydrated        bool
	CategoryError   string
	ProductError    string
	CreationError   string
	CreationSuccess string
}

// Catalog caches one page of products plus the category list.
type Catalog struct {
	api CatalogAPI
	log logging.Logger

	mu                sync.Mutex
	categories        []models.Category
	products          []models.Product
	page              Pagination
	search            string
	hydrated          bool
	totalLoadedFor    *string
	loadingCategories bool
	loadingProducts   bool
	creating          bool
	updating          map[int64]bool
	deleting          map[int64]bool
	categoryErr       string
	productErr        string
	creationErr       string
	creationOK        string
}

func NewCatalog(catalogAPI CatalogAPI, pageSize int, log logging.Logger) *Catalog {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Catalog{
		api:      catalogAPI,
		log:      log.With("component", "catalog"),
		page:     Pagination{CurrentPage: 1, PageSize: pageSize},
		updating: make(map[int64]bool),
		deleting: make(map[int64]bool),
	}
}

func (c *Catalog) State() CatalogState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CatalogState{
		Categories:      slices.Clone(c.categories),
		Products:        slices.Clone(c.products),
		Pagination:      c.page,
		Search:          c.search,
		Hydrated:        c.hydrated,
		CategoryError:   c.categoryErr,
		ProductError:    c.productErr,
		CreationError:   c.creationErr,
		CreationSuccess: c.creationOK,
	}
}

func (c *Catalog) totalPagesLocked() int {
	if c.page.PageSize <= 0 {
		return 1
	}
	return max(1, (c.page.Total+c.page.PageSize-1)/c.page.PageSize)
}

func (c *Catalog) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPagesLocked()
}

func (c *Catalog) HasPreviousPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.CurrentPage > 1
}

func (c *Catalog) HasNextPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.CurrentPage < c.totalPagesLocked()
}

func (c *Catalog) ShowingRange() Range {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.products) == 0 {
		return Range{}
	}
	start := (c.page.CurrentPage-1)*c.page.PageSize + 1
	return Range{Start: start, End: start + len(c.products) - 1}
}

func (c *Catalog) LoadingProducts() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadingProducts
}

func (c *Catalog) Creating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creating
}

func (c *Catalog) IsUpdating(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updating[id]
}

func (c *Catalog) IsDeleting(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleting[id]
}

func (c *Catalog) ClearCreationStatus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creationErr = ""
	c.creationOK = ""
}

// FetchCategories loads the category list. A call made while another is in
// flight returns immediately.
func (c *Catalog) FetchCategories(ctx context.Context) error {
	c.mu.Lock()
	if c.loadingCategories {
		c.mu.Unlock()
		return nil
	}
	c.loadingCategories = true
	c.categoryErr = ""
	c.mu.Unlock()

	cats, err := c.api.Categories(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadingCategories = false
	if err != nil {
		c.categoryErr = api.MessageOf(err, "Unable to load categories.")
		return &CatalogError{Message: c.categoryErr, Err: err}
	}
	c.categories = cats
	return nil
}

// FetchProducts loads page (1-based) for the current search query. Unless
// forced, a call made while another fetch is in flight does nothing.
//
// The total is re-counted with an unpaged request on the first fetch, after
// the query changes, or when ReloadTotal is set. Otherwise it is estimated
// from the page just loaded.
func (c *Catalog) FetchProducts(ctx context.Context, page int, opts FetchOptions) error {
	c.mu.Lock()
	if c.loadingProducts && !opts.Force {
		c.mu.Unlock()
		c.log.Debug(ctx, "product fetch already running, skipped", "page", page)
		return nil
	}
	if opts.Search != nil {
		trimmed := strings.TrimSpace(*opts.Search)
		if trimmed != c.search {
			c.totalLoadedFor = nil
		}
		c.search = trimmed
	}
	c.loadingProducts = true
	c.productErr = ""

	offset := max((page-1)*c.page.PageSize, 0)
	query := api.ProductQuery{Paged: true, Offset: offset, Limit: c.page.PageSize, Title: c.search}
	search := c.search
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loadingProducts = false
		c.mu.Unlock()
	}()

	data, err := c.api.Products(ctx, query)
	if err != nil {
		c.mu.Lock()
		c.productErr = api.MessageOf(err, "Unable to load products.")
		if !c.hydrated {
			c.products = nil
		}
		msg := c.productErr
		c.mu.Unlock()
		return &CatalogError{Message: msg, Err: err}
	}

	c.mu.Lock()
	c.products = data
	c.page.CurrentPage = page
	refresh := opts.ReloadTotal || !c.hydrated || c.totalLoadedFor == nil || *c.totalLoadedFor != search
	switch {
	case refresh:
	case len(data) < c.page.PageSize:
		c.page.Total = offset + len(data)
	case c.page.Total < offset+len(data):
		c.page.Total = offset + len(data)
	}
	c.mu.Unlock()

	if refresh {
		total := c.countProducts(ctx, search)
		c.mu.Lock()
		c.page.Total = total
		c.totalLoadedFor = &search
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.hydrated = true
	c.mu.Unlock()
	return nil
}

// countProducts fetches the unpaged list to learn its length. On failure the
// previous total is kept.
func (c *Catalog) countProducts(ctx context.Context, search string) int {
	all, err := c.api.Products(ctx, api.ProductQuery{Title: search})
	if err != nil {
		c.log.Warn(ctx, "unable to resolve total products for query", "query", search, "err", err)
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.page.Total
	}
	return len(all)
}

// SetPageSize changes the page size and reloads the first page.
func (c *Catalog) SetPageSize(ctx context.Context, size int) error {
	c.mu.Lock()
	if size <= 0 || size == c.page.PageSize {
		c.mu.Unlock()
		return nil
	}
	c.page.PageSize = size
	c.page.CurrentPage = 1
	c.mu.Unlock()

	return c.FetchProducts(ctx, 1, FetchOptions{Force: true, ReloadTotal: true})
}

// GoToPage loads page, clamped to [1, TotalPages].
func (c *Catalog) GoToPage(ctx context.Context, page int) error {
	target := min(max(page, 1), c.TotalPages())
	return c.FetchProducts(ctx, target, FetchOptions{Force: true})
}

// CreateProduct creates a product, reloads the first page and makes sure the
// new product is shown there.
func (c *Catalog) CreateProduct(ctx context.Context, payload models.CreateProductPayload) (*models.Product, error) {
	c.mu.Lock()
	c.creating = true
	c.creationErr = ""
	c.creationOK = ""
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.creating = false
		c.mu.Unlock()
	}()

	images := payload.Images
	if len(images) == 0 {
		images = []string{DefaultImageURL}
	}
	body := payload
	body.Images = images
	if body.CategoryID == 0 {
		body.CategoryID = DefaultCategoryID
	}

	data, err := c.api.CreateProduct(ctx, body)
	if err == nil {
		c.mu.Lock()
		c.page.CurrentPage = 1
		c.totalLoadedFor = nil
		c.mu.Unlock()
		err = c.FetchProducts(ctx, 1, FetchOptions{Force: true, ReloadTotal: true})
	}
	if err != nil {
		msg := api.MessageOf(err, "Unable to create product.")
		var ce *CatalogError
		if errors.As(err, &ce) {
			msg = ce.Message
		}
		c.mu.Lock()
		c.creationErr = msg
		c.mu.Unlock()
		return nil, &CatalogError{Message: msg, Err: err}
	}

	created := *data
	created.Images = images

	c.mu.Lock()
	if i := slices.IndexFunc(c.products, func(p models.Product) bool { return p.ID == created.ID }); i >= 0 {
		c.products[i] = created
	} else if c.page.CurrentPage == 1 {
		c.products = append([]models.Product{created}, c.products...)
		if len(c.products) > c.page.PageSize {
			c.products = c.products[:c.page.PageSize]
		}
	}
	c.creationOK = "Product added successfully."
	c.mu.Unlock()

	c.log.Info(ctx, "product created", "id", created.ID)

	out := created
	return &out, nil
}

// UpdateProduct applies payload to product id. An empty image list means
// "keep the images".
func (c *Catalog) UpdateProduct(ctx context.Context, id int64, payload models.UpdateProductPayload) (*models.Product, error) {
	c.mu.Lock()
	c.updating[id] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.updating, id)
		c.mu.Unlock()
	}()

	if payload.Images != nil && len(payload.Images) == 0 {
		payload.Images = nil
	}

	data, err := c.api.UpdateProduct(ctx, id, payload)
	if err != nil {
		return nil, &CatalogError{Message: api.MessageOf(err, "Unable to update product."), Err: err}
	}

	c.mu.Lock()
	if i := slices.IndexFunc(c.products, func(p models.Product) bool { return p.ID == id }); i >= 0 {
		c.products[i] = *data
	}
	c.mu.Unlock()

	out := *data
	return &out, nil
}

// DeleteProduct removes product id. When that empties a page other than the
// first, the previous page is loaded.
func (c *Catalog) DeleteProduct(ctx context.Context, id int64) error {
	c.mu.Lock()
	c.deleting[id] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.deleting, id)
		c.mu.Unlock()
	}()

	if err := c.api.DeleteProduct(ctx, id); err != nil {
		return &CatalogError{Message: api.MessageOf(err, "Unable to delete product."), Err: err}
	}

	c.mu.Lock()
	c.products = slices.DeleteFunc(c.products, func(p models.Product) bool { return p.ID == id })
	c.page.Total = max(c.page.Total-1, 0)
	c.totalLoadedFor = nil
	stepBack := len(c.products) == 0 && c.page.CurrentPage > 1
	prev := c.page.CurrentPage - 1
	c.mu.Unlock()

	if stepBack {
		if err := c.GoToPage(ctx, prev); err != nil {
			return &CatalogError{Message: api.MessageOf(err, "Unable to delete product."), Err: err}
		}
	}
	return nil
}

// UploadImage uploads an image and returns its public URL.
func (c *Catalog) UploadImage(ctx context.Context, filename string, content io.Reader) (string, error) {
	up, err := c.api.UploadFile(ctx, filename, content)
	if err != nil {
		return "", err
	}
	if up.Location != "" {
		return up.Location, nil
	}
	if up.URL != "" {
		return up.URL, nil
	}
	return "", ErrUploadMissingURL
}
