package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/dmitrijs2005/storeadmin/internal/client/models"
)

// ProductQuery filters GET /products. Without Paged the whole (optionally
// title-filtered) list is returned.
type ProductQuery struct {
	Paged  bool
	Offset int
	Limit  int
	Title  string
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Paged {
		v.Set("offset", strconv.Itoa(q.Offset))
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Title != "" {
		v.Set("title", q.Title)
	}
	return v
}

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.doJSON(ctx, http.MethodGet, "/categories", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Products(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	var out []models.Product
	if err := c.doJSON(ctx, http.MethodGet, "/products", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProduct(ctx context.Context, payload models.CreateProductPayload) (*models.Product, error) {
	var out models.Product
	if err := c.doJSON(ctx, http.MethodPost, "/products", nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, payload models.UpdateProductPayload) (*models.Product, error) {
	var out models.Product
	path := "/products/" + strconv.FormatInt(id, 10)
	if err := c.doJSON(ctx, http.MethodPut, path, nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/products/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// UploadFile sends content as multipart field "file" to POST /files/upload.
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader) (*models.UploadedFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}

	var out models.UploadedFile
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/files/upload",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
