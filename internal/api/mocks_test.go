package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/bookshelf-api/internal/domain"
	"github.com/phrazzld/bookshelf-api/internal/service"
	"github.com/phrazzld/bookshelf-api/internal/service/auth"
	"github.com/stretchr/testify/mock"
)

type mockBookService struct {
	mock.Mock
}

var _ service.BookService = (*mockBookService)(nil)

func bookOrNil(v interface{}) *domain.Book {
	if v == nil {
		return nil
	}
	return v.(*domain.Book)
}

func (m *mockBookService) Create(
	ctx context.Context,
	actor uuid.UUID,
	details domain.BookDetails,
	image *service.ImageUpload,
) (*domain.Book, error) {
	args := m.Called(ctx, actor, details, image)
	return bookOrNil(args.Get(0)), args.Error(1)
}

func (m *mockBookService) Get(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	args := m.Called(ctx, id)
	return bookOrNil(args.Get(0)), args.Error(1)
}

func (m *mockBookService) List(ctx context.Context) ([]*domain.Book, error) {
	args := m.Called(ctx)
	books, _ := args.Get(0).([]*domain.Book)
	return books, args.Error(1)
}

func (m *mockBookService) BestRated(ctx context.Context) ([]*domain.Book, error) {
	args := m.Called(ctx)
	books, _ := args.Get(0).([]*domain.Book)
	return books, args.Error(1)
}

func (m *mockBookService) Update(
	ctx context.Context,
	actor, id uuid.UUID,
	details domain.BookDetails,
	image *service.ImageUpload,
) (*domain.Book, error) {
	args := m.Called(ctx, actor, id, details, image)
	return bookOrNil(args.Get(0)), args.Error(1)
}

func (m *mockBookService) Delete(ctx context.Context, actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *mockBookService) Rate(ctx context.Context, actor, id uuid.UUID, grade int) (*domain.Book, error) {
	args := m.Called(ctx, actor, id, grade)
	return bookOrNil(args.Get(0)), args.Error(1)
}

type mockUserService struct {
	mock.Mock
}

var _ service.UserService = (*mockUserService)(nil)

func (m *mockUserService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserService) Authenticate(
	ctx context.Context,
	email, password string,
) (*domain.User, *auth.TokenPair, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*domain.User)
	pair, _ := args.Get(1).(*auth.TokenPair)
	return user, pair, args.Error(2)
}

func (m *mockUserService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	pair, _ := args.Get(0).(*auth.TokenPair)
	return pair, args.Error(1)
}
