package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"storefront/internal/cache"
	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/pagination"
	"storefront/internal/repository"
)

const (
	productCacheTTL    = 5 * time.Minute
	productCachePrefix = "product:"
)

// ImageStore removes stored product images.
type ImageStore interface {
	Remove(filename string) error
}

// ProductInput carries the fields of a new product.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
}

// ProductService manages the product catalog.
type ProductService interface {
	List(ctx context.Context, params pagination.Params) (*pagination.Page[*model.ProductView], error)
	Get(ctx context.Context, id uuid.UUID) (*model.ProductView, error)
	Create(ctx context.Context, input ProductInput) (*model.ProductView, error)
	Update(ctx context.Context, id uuid.UUID, update model.ProductUpdate) (*model.ProductView, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type productService struct {
	productRepo repository.ProductRepository
	cache       *cache.Client
	images      ImageStore
	baseURL     string
	logger      *logrus.Logger
}

// NewProductService creates a new product service. A nil cache disables read caching.
func NewProductService(
	productRepo repository.ProductRepository,
	cache *cache.Client,
	images ImageStore,
	baseURL string,
	logger *logrus.Logger,
) ProductService {
	return &productService{
		productRepo: productRepo,
		cache:       cache,
		images:      images,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// List returns one page of products with its metadata. Rows and total are read concurrently.
func (s *productService) List(ctx context.Context, params pagination.Params) (*pagination.Page[*model.ProductView], error) {
	params = pagination.New(params.Page, params.Limit)

	var (
		products []model.Product
		total    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.productRepo.List(gctx, params.Offset(), params.Limit)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		total, err = s.productRepo.Count(gctx)
		if err != nil {
			return fmt.Errorf("count products: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.WithError(err).Error("list products")
		return nil, err
	}

	views := make([]*model.ProductView, 0, len(products))
	for i := range products {
		views = append(views, products[i].View(s.baseURL))
	}

	return &pagination.Page[*model.ProductView]{
		Data: views,
		Meta: pagination.NewMeta(params, total),
	}, nil
}

// Get returns a single product, served from cache when possible.
func (s *productService) Get(ctx context.Context, id uuid.UUID) (*model.ProductView, error) {
	var cached model.Product
	if s.cache.GetJSON(ctx, productCacheKey(id), &cached) {
		return cached.View(s.baseURL), nil
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		s.logger.WithError(err).WithField("product_id", id).Error("get product")
		return nil, fmt.Errorf("find product: %w", err)
	}

	_ = s.cache.SetJSON(ctx, productCacheKey(id), product, productCacheTTL)
	return product.View(s.baseURL), nil
}

// Create stores a new product. The image must already be stored.
func (s *productService) Create(ctx context.Context, input ProductInput) (*model.ProductView, error) {
	if input.Image == "" {
		return nil, apperrors.ErrProductImageRequired
	}
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.Validation("All fields are required")
	}
	if err := checkPrice(input.Price); err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price.Round(2),
		Image:       input.Image,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logger.WithError(err).Error("create product")
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.actorLogger(ctx).WithField("product_id", product.ID).Info("product created")
	return product.View(s.baseURL), nil
}

// Update applies a partial change. An unknown id yields ErrProductNotFound without any write.
// A replaced image file is removed after the change commits.
func (s *productService) Update(ctx context.Context, id uuid.UUID, update model.ProductUpdate) (*model.ProductView, error) {
	if update.Price != nil {
		if err := checkPrice(*update.Price); err != nil {
			return nil, err
		}
		rounded := update.Price.Round(2)
		update.Price = &rounded
	}

	var (
		updated  *model.Product
		oldImage string
	)
	err := s.productRepo.WithTransaction(ctx, func(ctx context.Context, repo repository.ProductRepository) error {
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if update.Image != nil && *update.Image != current.Image {
			oldImage = current.Image
		}

		if err := repo.Update(ctx, id, update.Columns()); err != nil {
			return err
		}

		updated, err = repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		s.logger.WithError(err).WithField("product_id", id).Error("update product")
		return nil, fmt.Errorf("update product: %w", err)
	}

	_ = s.cache.Delete(ctx, productCacheKey(id))
	s.removeImage(oldImage)

	s.actorLogger(ctx).WithField("product_id", id).Info("product updated")
	return updated.View(s.baseURL), nil
}

// Delete hard-deletes a product. It returns false, not an error, when the id does not exist.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var (
		deleted bool
		image   string
	)
	err := s.productRepo.WithTransaction(ctx, func(ctx context.Context, repo repository.ProductRepository) error {
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		image = current.Image

		deleted, err = repo.Delete(ctx, id)
		return err
	})
	if err != nil {
		s.logger.WithError(err).WithField("product_id", id).Error("delete product")
		return false, fmt.Errorf("delete product: %w", err)
	}
	if !deleted {
		return false, nil
	}

	_ = s.cache.Delete(ctx, productCacheKey(id))
	s.removeImage(image)

	s.actorLogger(ctx).WithField("product_id", id).Info("product deleted")
	return true, nil
}

// removeImage deletes an image file that no product references anymore. Failures are logged.
func (s *productService) removeImage(filename string) {
	if filename == "" || s.images == nil {
		return
	}
	if err := s.images.Remove(filename); err != nil {
		s.logger.WithError(err).WithField("image", filename).Warn("remove product image")
	}
}

// actorLogger tags catalog writes with the caller that made them.
func (s *productService) actorLogger(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(s.logger)
	if identity, ok := model.IdentityFromContext(ctx); ok {
		entry = entry.WithField("actor_id", identity.ID)
	}
	return entry
}

func checkPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return apperrors.ErrInvalidPrice
	}
	if price.GreaterThan(model.MaxPrice) {
		return apperrors.ErrPriceTooLarge
	}
	return nil
}

func productCacheKey(id uuid.UUID) string {
	return productCachePrefix + id.String()
}
