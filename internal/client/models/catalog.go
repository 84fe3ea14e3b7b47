package models

import "time"

type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug,omitempty"`
	Image string `json:"image,omitempty"`
}

type Product struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug,omitempty"`
	Price       float64    `json:"price"`
	Description string     `json:"description"`
	Category    *Category  `json:"category,omitempty"`
	Images      []string   `json:"images"`
	CreationAt  *time.Time `json:"creationAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

type CreateProductPayload struct {
	Title       string   `json:"title"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	CategoryID  int64    `json:"categoryId"`
	Images      []string `json:"images"`
}

// UpdateProductPayload carries only the fields being changed.
type UpdateProductPayload struct {
	Title       *string  `json:"title,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Description *string  `json:"description,omitempty"`
	CategoryID  *int64   `json:"categoryId,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// UploadedFile is the response of POST /files/upload.
type UploadedFile struct {
	OriginalName string `json:"originalname,omitempty"`
	Filename     string `json:"filename,omitempty"`
	Location     string `json:"location,omitempty"`
	URL          string `json:"url,omitempty"`
}
