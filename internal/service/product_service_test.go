package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront/internal/cache"
	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/pagination"
)

const testBaseURL = "http://localhost:5000"

func newProductService(repo *MockProductRepository, images *MockImageStore) ProductService {
	log, _ := test.NewNullLogger()
	return NewProductService(repo, cache.New("", "", 0), images, testBaseURL, log)
}

func makeProducts(n int) []model.Product {
	products := make([]model.Product, n)
	for i := range products {
		products[i] = model.Product{
			ID:          uuid.New(),
			Name:        fmt.Sprintf("Product %d", i+1),
			Description: "Product used in service tests",
			Image:       fmt.Sprintf("image-%d.png", i+1),
			Price:       decimal.NewFromInt(10),
		}
	}
	return products
}

func TestProductService_ListPagination(t *testing.T) {
	all := makeProducts(25)

	tests := []struct {
		name         string
		params       pagination.Params
		offset       int
		rows         []model.Product
		expectedLen  int
		expectedMeta pagination.Meta
	}{
		{
			name:         "first page",
			params:       pagination.Params{Page: 1, Limit: 10},
			offset:       0,
			rows:         all[0:10],
			expectedLen:  10,
			expectedMeta: pagination.Meta{Total: 25, Page: 1, Limit: 10, TotalPages: 3, HasNext: true, HasPrevious: false},
		},
		{
			name:         "last page",
			params:       pagination.Params{Page: 3, Limit: 10},
			offset:       20,
			rows:         all[20:25],
			expectedLen:  5,
			expectedMeta: pagination.Meta{Total: 25, Page: 3, Limit: 10, TotalPages: 3, HasNext: false, HasPrevious: true},
		},
		{
			name:         "defaults",
			params:       pagination.Params{},
			offset:       0,
			rows:         all[0:10],
			expectedLen:  10,
			expectedMeta: pagination.Meta{Total: 25, Page: 1, Limit: 10, TotalPages: 3, HasNext: true, HasPrevious: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockProductRepository)
			repo.On("List", mock.Anything, tt.offset, 10).Return(tt.rows, nil)
			repo.On("Count", mock.Anything).Return(int64(25), nil)
			svc := newProductService(repo, new(MockImageStore))

			page, err := svc.List(context.Background(), tt.params)
			require.NoError(t, err)

			assert.Len(t, page.Data, tt.expectedLen)
			assert.Equal(t, tt.expectedMeta, page.Meta)
			assert.Equal(t, testBaseURL+"/uploads/"+tt.rows[0].Image, page.Data[0].ImageURL)
			repo.AssertExpectations(t)
		})
	}
}

func TestProductService_ListRepositoryError(t *testing.T) {
	repo := new(MockProductRepository)
	dbErr := errors.New("connection reset")
	repo.On("List", mock.Anything, 0, 10).Return(nil, dbErr)
	repo.On("Count", mock.Anything).Return(int64(0), nil).Maybe()
	svc := newProductService(repo, new(MockImageStore))

	page, err := svc.List(context.Background(), pagination.New(1, 10))
	assert.Nil(t, page)
	assert.ErrorIs(t, err, dbErr)
}

func TestProductService_Get(t *testing.T) {
	product := makeProducts(1)[0]
	product.Image = "https://cdn.example.com/p.png"
	missing := uuid.New()

	repo := new(MockProductRepository)
	repo.On("FindByID", mock.Anything, product.ID).Return(&product, nil)
	repo.On("FindByID", mock.Anything, missing).Return(nil, gorm.ErrRecordNotFound)
	svc := newProductService(repo, new(MockImageStore))

	view, err := svc.Get(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/p.png", view.ImageURL)

	_, err = svc.Get(context.Background(), missing)
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestProductService_Create(t *testing.T) {
	repo := new(MockProductRepository)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*model.Product")).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Product).ID = uuid.New()
	}).Return(nil)
	svc := newProductService(repo, new(MockImageStore))

	view, err := svc.Create(context.Background(), ProductInput{
		Name:        "Desk lamp",
		Description: "A lamp for the desk",
		Price:       decimal.RequireFromString("19.999"),
		Image:       "image-1-abc.png",
	})
	require.NoError(t, err)

	assert.Equal(t, "Desk lamp", view.Name)
	assert.Equal(t, "20", view.Price.String())
	assert.Equal(t, testBaseURL+"/uploads/image-1-abc.png", view.ImageURL)
}

func TestProductService_CreateValidation(t *testing.T) {
	valid := ProductInput{Name: "Desk lamp", Description: "A lamp for the desk", Price: decimal.NewFromInt(5), Image: "a.png"}

	noImage := valid
	noImage.Image = ""
	negative := valid
	negative.Price = decimal.NewFromInt(-1)
	noName := valid
	noName.Name = " "
	tooExpensive := valid
	tooExpensive.Price = decimal.RequireFromString("100000000")

	tests := []struct {
		name     string
		input    ProductInput
		expected string
	}{
		{"image required", noImage, "Product image is required"},
		{"negative price", negative, "Price must be greater than or equal to 0"},
		{"blank name", noName, "All fields are required"},
		{"price above column range", tooExpensive, "Price must be less than or equal to 99999999.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockProductRepository)
			svc := newProductService(repo, new(MockImageStore))

			_, err := svc.Create(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.expected, err.Error())
			assert.True(t, apperrors.Is(err, apperrors.KindValidation))
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestProductService_Update(t *testing.T) {
	product := makeProducts(1)[0]
	newName := "Renamed"
	newImage := "image-2-def.png"

	renamed := product
	renamed.Name = newName
	renamed.Image = newImage

	repo := new(MockProductRepository)
	images := new(MockImageStore)
	repo.On("FindByID", mock.Anything, product.ID).Return(&product, nil).Once()
	repo.On("Update", mock.Anything, product.ID, map[string]interface{}{"name": newName, "image": newImage}).Return(nil)
	repo.On("FindByID", mock.Anything, product.ID).Return(&renamed, nil).Once()
	images.On("Remove", product.Image).Return(nil)
	svc := newProductService(repo, images)

	view, err := svc.Update(context.Background(), product.ID, model.ProductUpdate{Name: &newName, Image: &newImage})
	require.NoError(t, err)

	assert.Equal(t, newName, view.Name)
	assert.Equal(t, testBaseURL+"/uploads/"+newImage, view.ImageURL)
	repo.AssertExpectations(t)
	images.AssertExpectations(t)
}

func TestProductService_UpdateUnknownIDWritesNothing(t *testing.T) {
	id := uuid.New()
	name := "Renamed"
	repo := new(MockProductRepository)
	images := new(MockImageStore)
	repo.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)
	svc := newProductService(repo, images)

	view, err := svc.Update(context.Background(), id, model.ProductUpdate{Name: &name})

	assert.Nil(t, view)
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	images.AssertNotCalled(t, "Remove", mock.Anything)
}

func TestProductService_UpdateInvalidPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		expected error
	}{
		{"negative", "-5", apperrors.ErrInvalidPrice},
		{"above column range", "100000000", apperrors.ErrPriceTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockProductRepository)
			svc := newProductService(repo, new(MockImageStore))
			price := decimal.RequireFromString(tt.price)

			_, err := svc.Update(context.Background(), uuid.New(), model.ProductUpdate{Price: &price})
			assert.ErrorIs(t, err, tt.expected)
			repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		})
	}
}

func TestProductService_CreateLogsActor(t *testing.T) {
	repo := new(MockProductRepository)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*model.Product")).Return(nil)
	log, hook := test.NewNullLogger()
	svc := NewProductService(repo, cache.New("", "", 0), new(MockImageStore), testBaseURL, log)

	admin := &model.Identity{ID: uuid.New(), Role: model.RoleAdmin}
	ctx := model.WithIdentity(context.Background(), admin)
	_, err := svc.Create(ctx, ProductInput{
		Name:        "Desk lamp",
		Description: "A lamp for the desk",
		Price:       decimal.NewFromInt(5),
		Image:       "a.png",
	})
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "product created", entry.Message)
	assert.Equal(t, admin.ID, entry.Data["actor_id"])
}

func TestProductService_Delete(t *testing.T) {
	product := makeProducts(1)[0]

	t.Run("existing product", func(t *testing.T) {
		repo := new(MockProductRepository)
		images := new(MockImageStore)
		repo.On("FindByID", mock.Anything, product.ID).Return(&product, nil)
		repo.On("Delete", mock.Anything, product.ID).Return(true, nil)
		images.On("Remove", product.Image).Return(errors.New("permission denied"))
		svc := newProductService(repo, images)

		deleted, err := svc.Delete(context.Background(), product.ID)
		require.NoError(t, err, "image cleanup failures are only logged")
		assert.True(t, deleted)
		images.AssertExpectations(t)
	})

	t.Run("unknown id", func(t *testing.T) {
		id := uuid.New()
		repo := new(MockProductRepository)
		images := new(MockImageStore)
		repo.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)
		svc := newProductService(repo, images)

		deleted, err := svc.Delete(context.Background(), id)
		assert.NoError(t, err)
		assert.False(t, deleted)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		images.AssertNotCalled(t, "Remove", mock.Anything)
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := new(MockProductRepository)
		dbErr := errors.New("connection reset")
		repo.On("FindByID", mock.Anything, product.ID).Return(&product, nil)
		repo.On("Delete", mock.Anything, product.ID).Return(false, dbErr)
		svc := newProductService(repo, new(MockImageStore))

		deleted, err := svc.Delete(context.Background(), product.ID)
		assert.False(t, deleted)
		assert.ErrorIs(t, err, dbErr)
	})
}
