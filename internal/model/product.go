package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UploadsPath is the URL path segment under which product images are served.
const UploadsPath = "/uploads/"

// MaxPrice is the largest price the decimal(10,2) column can hold.
var MaxPrice = decimal.RequireFromString("99999999.99")

// Product represents a catalog item.
type Product struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string          `json:"name" gorm:"size:100;not null"`
	Description string          `json:"description" gorm:"type:text;not null"`
	Image       string          `json:"image" gorm:"size:255;not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	CreatedAt   time.Time       `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProductView is a product as returned by the API, with its derived image URL.
type ProductView struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	ImageURL    string          `json:"imageUrl"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// View renders the product with an image URL resolved against baseURL.
func (p *Product) View(baseURL string) *ProductView {
	return &ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		ImageURL:    ImageURL(baseURL, p.Image),
		Price:       p.Price,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ProductUpdate holds the fields of a partial product update. Nil means unchanged.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Image       *string
}

// Columns returns the column/value pairs to write.
func (u ProductUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 4)
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.Price != nil {
		cols["price"] = *u.Price
	}
	if u.Image != nil {
		cols["image"] = *u.Image
	}
	return cols
}

// IsAbsoluteURL reports whether the stored image reference is already a full URL.
func IsAbsoluteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// ImageURL derives the public URL of a stored image.
// Absolute URLs pass through unchanged and an empty reference stays empty.
func ImageURL(baseURL, filename string) string {
	if filename == "" {
		return ""
	}
	if IsAbsoluteURL(filename) {
		return filename
	}
	return strings.TrimRight(baseURL, "/") + UploadsPath + filename
}
