package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/pagination"
	"storefront/internal/service"
)

const imageField = "image"

// ImageUploader stores uploaded product images.
type ImageUploader interface {
	Save(ctx context.Context, fh *multipart.FileHeader) (string, error)
	Remove(filename string) error
	TranslateError(err error) error
	BodyLimit() echo.MiddlewareFunc
}

// ProductHandler handles product catalog endpoints.
type ProductHandler struct {
	productService service.ProductService
	images         ImageUploader
	logger         *logrus.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(productService service.ProductService, images ImageUploader, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		images:         images,
		logger:         logger,
	}
}

// CreateProductRequest represents the text fields of a product creation form.
type CreateProductRequest struct {
	Name        string `form:"name" validate:"required,min=3,max=100"`
	Description string `form:"description" validate:"required,min=10"`
	Price       string `form:"price" validate:"required"`
}

// UpdateProductRequest represents the text fields of a product update form.
// Fields left out or sent empty are unchanged.
type UpdateProductRequest struct {
	Name        *string `form:"name" validate:"omitempty,min=3,max=100"`
	Description *string `form:"description" validate:"omitempty,min=10"`
	Price       *string `form:"price"`
}

// ListProducts godoc
// @Summary List products
// @Tags products
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} ListResponse{data=[]model.ProductView}
// @Failure 500 {object} errors.ErrorResponse
// @Router /products [get]
func (h *ProductHandler) ListProducts(c echo.Context) error {
	params := pagination.Parse(c.QueryParam("page"), c.QueryParam("limit"))

	page, err := h.productService.List(c.Request().Context(), params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ListResponse{
		Status:  statusSuccess,
		Message: "Success",
		Data:    page.Data,
		Meta:    page.Meta,
	})
}

// GetProduct godoc
// @Summary Get a product
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} Response{data=model.ProductView}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /products/{id} [get]
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}

	product, err := h.productService.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return success(c, http.StatusOK, "", product)
}

// CreateProduct godoc
// @Summary Create a product
// @Tags products
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param name formData string true "Name"
// @Param description formData string true "Description"
// @Param price formData number true "Price"
// @Param image formData file true "Product image (jpeg, jpg, png)"
// @Success 201 {object} Response{data=model.ProductView}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /products [post]
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	form, err := h.formParams(c)
	if err != nil {
		return err
	}

	req := CreateProductRequest{
		Name:        strings.TrimSpace(form.Get("name")),
		Description: strings.TrimSpace(form.Get("description")),
		Price:       strings.TrimSpace(form.Get("price")),
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		return err
	}

	image, err := h.saveImage(c)
	if err != nil {
		return err
	}

	product, err := h.productService.Create(c.Request().Context(), service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Image:       image,
	})
	if err != nil {
		h.discard(image)
		return err
	}

	return success(c, http.StatusCreated, "Product created successfully", product)
}

// UpdateProduct godoc
// @Summary Update a product
// @Tags products
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param name formData string false "Name"
// @Param description formData string false "Description"
// @Param price formData number false "Price"
// @Param image formData file false "Replacement image (jpeg, jpg, png)"
// @Success 200 {object} Response{data=model.ProductView}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /products/{id} [put]
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}

	form, err := h.formParams(c)
	if err != nil {
		return err
	}

	req := UpdateProductRequest{
		Name:        optionalValue(form, "name"),
		Description: optionalValue(form, "description"),
		Price:       optionalValue(form, "price"),
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	update := model.ProductUpdate{Name: req.Name, Description: req.Description}
	if req.Price != nil {
		price, err := parsePrice(*req.Price)
		if err != nil {
			return err
		}
		update.Price = &price
	}

	image, err := h.saveImage(c)
	if err != nil {
		return err
	}
	if image != "" {
		update.Image = &image
	}

	product, err := h.productService.Update(c.Request().Context(), id, update)
	if err != nil {
		h.discard(image)
		return err
	}

	return success(c, http.StatusOK, "Product updated successfully", product)
}

// DeleteProduct godoc
// @Summary Delete a product
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 200 {object} Response
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}

	deleted, err := h.productService.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.ErrProductNotFound
	}

	return success(c, http.StatusOK, "Product deleted successfully", nil)
}

func productID(c echo.Context) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Param("id"))
	if raw == "" || raw == "undefined" {
		return uuid.Nil, apperrors.Validation("Product ID is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.Validation("Invalid product ID")
	}
	return id, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperrors.Validation(`"price" must be a number`)
	}
	if price.IsNegative() {
		return decimal.Zero, apperrors.Validation(`"price" must be greater than or equal to 0`)
	}
	if price.GreaterThan(model.MaxPrice) {
		return decimal.Zero, apperrors.Validation(`"price" must be less than or equal to ` + model.MaxPrice.StringFixed(2))
	}
	return price, nil
}

func optionalValue(form map[string][]string, key string) *string {
	values, ok := form[key]
	if !ok || len(values) == 0 {
		return nil
	}
	value := strings.TrimSpace(values[0])
	if value == "" {
		return nil
	}
	return &value
}

// LimitBody caps product form bodies. Oversized bodies get the image size error.
func (h *ProductHandler) LimitBody() echo.MiddlewareFunc {
	return h.images.BodyLimit()
}

// formParams parses the form body. Oversized bodies become the upload size error.
func (h *ProductHandler) formParams(c echo.Context) (formValues, error) {
	form, err := c.FormParams()
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(h.images.TranslateError(err), &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Validation("Invalid request body")
	}
	return formValues(form), nil
}

// saveImage stores the optional image part and returns its filename, or "" when absent.
func (h *ProductHandler) saveImage(c echo.Context) (string, error) {
	fh, err := c.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", h.images.TranslateError(err)
	}

	filename, err := h.images.Save(c.Request().Context(), fh)
	if err != nil {
		return "", h.images.TranslateError(err)
	}
	return filename, nil
}

// discard removes an image stored for a request that did not complete.
func (h *ProductHandler) discard(filename string) {
	if filename == "" {
		return
	}
	if err := h.images.Remove(filename); err != nil {
		h.logger.WithError(err).WithField("image", filename).Warn("remove orphaned upload")
	}
}

type formValues map[string][]string

func (f formValues) Get(key string) string {
	if values := f[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}
