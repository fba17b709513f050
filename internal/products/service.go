package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
)

// translateCallable turns a review body into the requested language.
const translateCallable = "translateReview"

type caller interface {
	Call(ctx context.Context, name string, payload any, out any) error
}

// TranslatedReview pairs a review with its translated body.
type TranslatedReview struct {
	Review     models.Review `json:"review"`
	Translated string        `json:"translated"`
	Language   string        `json:"language"`
}

// ReviewInput carries a new review submission.
type ReviewInput struct {
	Rating   int
	Body     string
	Language string
}

// Service exposes catalog point reads and review operations.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListSellerProducts(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error)
	ListReviews(ctx context.Context, productID uuid.UUID, limit int) ([]models.Review, error)
	AddReview(ctx context.Context, profileID, productID uuid.UUID, input ReviewInput) (*models.Review, error)
	TranslateReview(ctx context.Context, reviewID uuid.UUID, targetLanguage string) (*TranslatedReview, error)
}

type service struct {
	repo   ProductRepository
	caller caller
	logg   *logger.Logger
}

// NewService wires the catalog service.
func NewService(repo ProductRepository, c caller, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if c == nil {
		return nil, fmt.Errorf("callable client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, caller: c, logg: logg}, nil
}

// GetProduct performs a point read of one listing.
func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	return product, nil
}

// GetProducts batch-reads listings; absent ids are simply omitted.
func (s *service) GetProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	return s.repo.FindManyByID(ctx, ids)
}

// ListSellerProducts returns a seller's active listings.
func (s *service) ListSellerProducts(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	return s.repo.ListBySeller(ctx, sellerID, true)
}

// ListReviews returns a product's most recent reviews.
func (s *service) ListReviews(ctx context.Context, productID uuid.UUID, limit int) ([]models.Review, error) {
	return s.repo.ListReviews(ctx, productID, limit)
}

// AddReview validates and stores a review against an existing product.
func (s *service) AddReview(ctx context.Context, profileID, productID uuid.UUID, input ReviewInput) (*models.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if strings.TrimSpace(input.Body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review body is required")
	}
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	language := strings.TrimSpace(input.Language)
	if language == "" {
		language = "en"
	}
	return s.repo.CreateReview(ctx, &models.Review{
		ProductID: productID,
		ProfileID: profileID,
		Rating:    input.Rating,
		Body:      input.Body,
		Language:  language,
	})
}

// TranslateReview returns the review body in the target language. A
// review already in that language skips the gateway round trip.
func (s *service) TranslateReview(ctx context.Context, reviewID uuid.UUID, targetLanguage string) (*TranslatedReview, error) {
	targetLanguage = strings.ToLower(strings.TrimSpace(targetLanguage))
	if targetLanguage == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target language is required")
	}

	review, err := s.repo.FindReview(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, err
	}

	if strings.EqualFold(review.Language, targetLanguage) {
		return &TranslatedReview{Review: *review, Translated: review.Body, Language: targetLanguage}, nil
	}

	var resp struct {
		Text string `json:"text"`
	}
	err = s.caller.Call(ctx, translateCallable, map[string]string{
		"text":   review.Body,
		"source": review.Language,
		"target": targetLanguage,
	}, &resp)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "review translation failed")
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "translator returned an empty body")
	}
	return &TranslatedReview{Review: *review, Translated: resp.Text, Language: targetLanguage}, nil
}
