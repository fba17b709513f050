package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
)

// ProductRepository defines the read surface for the catalog.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindManyByID(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, activeOnly bool) ([]models.Product, error)
	ListReviews(ctx context.Context, productID uuid.UUID, limit int) ([]models.Review, error)
	FindReview(ctx context.Context, id uuid.UUID) (*models.Review, error)
	CreateReview(ctx context.Context, review *models.Review) (*models.Review, error)
}

// Repository exposes catalog reads over gorm.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads one product document.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindManyByID loads a batch of products; missing ids are skipped.
func (r *Repository) FindManyByID(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListBySeller returns a seller's products, newest first.
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, activeOnly bool) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []models.Product
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListReviews returns a product's reviews, newest first.
func (r *Repository) ListReviews(ctx context.Context, productID uuid.UUID, limit int) ([]models.Review, error) {
	query := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Review
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindReview loads one review.
func (r *Repository) FindReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// CreateReview inserts a review.
func (r *Repository) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}
