package handlers

import (
	"errors"
	"net/http"

	"github.com/svckit/svckit/internal/core"
	apperrors "github.com/svckit/svckit/internal/errors"
	"github.com/svckit/svckit/internal/store"
)

// Products implements the product CRUD endpoints.
type Products struct {
	store *store.Store
}

// NewProducts creates the product handler set.
func NewProducts(s *store.Store) *Products {
	return &Products{store: s}
}

// CreateProductRequest is the POST /product payload.
type CreateProductRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Description string `json:"description" validate:"omitempty,max=1024"`
	PriceCents  int64  `json:"price_cents" validate:"gte=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
	Category    string `json:"category" validate:"omitempty,max=64"`
}

// UpdateProductRequest is the PUT /product/{id} payload. Absent fields are
// left unchanged; pointers distinguish "not sent" from zero values so stock
// and price can legitimately be set to 0.
type UpdateProductRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description" validate:"omitempty,max=1024"`
	PriceCents  *int64  `json:"price_cents" validate:"omitempty,gte=0"`
	Stock       *int    `json:"stock" validate:"omitempty,gte=0"`
	Category    *string `json:"category" validate:"omitempty,max=64"`
}

// ProductListResponse wraps a product page.
type ProductListResponse struct {
	Items []core.Product `json:"items"`
	Page  core.Page      `json:"page"`
}

func (h *Products) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	product, err := h.store.CreateProduct(r.Context(), core.Product{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		Category:    req.Category,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *Products) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, apperrors.NewNotFound("Product not found"))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Products) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	category := r.URL.Query().Get("category")

	products, total, err := h.store.ListProducts(r.Context(), page, pageSize, category)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductListResponse{
		Items: products,
		Page:  core.Page{Page: page, PageSize: pageSize, Total: total},
	})
}

func (h *Products) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req UpdateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	product, err := h.store.UpdateProduct(r.Context(), id,
		req.Name, req.Description, req.Category, req.PriceCents, req.Stock)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, apperrors.NewNotFound("Product not found"))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Products) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, apperrors.NewNotFound("Product not found"))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}
