package rating_test

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/bookshelf-api/internal/domain"
	"github.com/phrazzld/bookshelf-api/internal/domain/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBook() *domain.Book {
	return &domain.Book{ID: uuid.New(), Ratings: []domain.Rating{}}
}

// TestApplyScenarios walks one book through a first rating, a second user's
// rating and a resubmission.
func TestApplyScenarios(t *testing.T) {
	book := newBook()
	u1, u2 := uuid.New(), uuid.New()

	require.NoError(t, rating.Apply(book, u1, 4))
	assert.Equal(t, []domain.Rating{{UserID: u1, Grade: 4}}, book.Ratings)
	assert.Equal(t, 4.0, book.AverageRating)

	require.NoError(t, rating.Apply(book, u2, 2))
	assert.Equal(t, []domain.Rating{{UserID: u1, Grade: 4}, {UserID: u2, Grade: 2}}, book.Ratings)
	assert.Equal(t, 3.0, book.AverageRating)

	require.NoError(t, rating.Apply(book, u1, 5))
	assert.Equal(t, []domain.Rating{{UserID: u1, Grade: 5}, {UserID: u2, Grade: 2}}, book.Ratings)
	assert.Equal(t, 3.5, book.AverageRating)
}

func TestApplyIsIdempotent(t *testing.T) {
	book := newBook()
	u1, u2 := uuid.New(), uuid.New()
	require.NoError(t, rating.Apply(book, u2, 1))
	require.NoError(t, rating.Apply(book, u1, 3))

	before := append([]domain.Rating(nil), book.Ratings...)
	avg := book.AverageRating

	require.NoError(t, rating.Apply(book, u1, 3))

	assert.Equal(t, before, book.Ratings)
	assert.Equal(t, avg, book.AverageRating)
}

func TestApplyErrorsLeaveBookUntouched(t *testing.T) {
	u1 := uuid.New()

	tests := []struct {
		name    string
		actor   uuid.UUID
		grade   int
		wantErr error
	}{
		{"missing actor", uuid.Nil, 3, domain.ErrUnauthenticated},
		{"grade below range", u1, -1, domain.ErrInvalidGrade},
		{"grade above range", u1, 6, domain.ErrInvalidGrade},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := newBook()
			require.NoError(t, rating.Apply(book, uuid.New(), 2))
			before := append([]domain.Rating(nil), book.Ratings...)
			updatedAt := book.UpdatedAt

			err := rating.Apply(book, tt.actor, tt.grade)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, book.Ratings)
			assert.Equal(t, 2.0, book.AverageRating)
			assert.Equal(t, updatedAt, book.UpdatedAt)
		})
	}

	t.Run("nil book", func(t *testing.T) {
		assert.ErrorIs(t, rating.Apply(nil, u1, 3), domain.ErrBookNotFound)
	})
}

func TestApplyBoundaryGrades(t *testing.T) {
	book := newBook()
	require.NoError(t, rating.Apply(book, uuid.New(), domain.MinGrade))
	require.NoError(t, rating.Apply(book, uuid.New(), domain.MaxGrade))
	assert.Equal(t, 2.5, book.AverageRating)
}

// TestApplyRandomSequences checks that after any submission order the book
// holds one entry per user with their latest grade and a matching average.
func TestApplyRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	users := make([]uuid.UUID, 7)
	for i := range users {
		users[i] = uuid.New()
	}

	for run := 0; run < 50; run++ {
		book := newBook()
		latest := map[uuid.UUID]int{}

		for step := 0; step < 40; step++ {
			u := users[rng.Intn(len(users))]
			g := rng.Intn(domain.MaxGrade + 1)
			require.NoError(t, rating.Apply(book, u, g))
			latest[u] = g
		}

		require.Len(t, book.Ratings, len(latest))
		seen := map[uuid.UUID]bool{}
		sum := 0
		for _, r := range book.Ratings {
			assert.False(t, seen[r.UserID], "duplicate entry for %s", r.UserID)
			seen[r.UserID] = true
			assert.Equal(t, latest[r.UserID], r.Grade)
			sum += r.Grade
		}
		assert.InDelta(t, float64(sum)/float64(len(latest)), book.AverageRating, 1e-9)
	}
}

func TestAverage(t *testing.T) {
	assert.Zero(t, rating.Average(nil))
	assert.Zero(t, rating.Average([]domain.Rating{}))
	assert.Equal(t, 0.0, rating.Average([]domain.Rating{{Grade: 0}}))
	assert.InDelta(t, 10.0/3.0, rating.Average([]domain.Rating{{Grade: 5}, {Grade: 4}, {Grade: 1}}), 1e-9)
}

func TestRecompute(t *testing.T) {
	book := &domain.Book{Ratings: []domain.Rating{{Grade: 2}, {Grade: 3}}, AverageRating: 99}
	rating.Recompute(book)
	assert.Equal(t, 2.5, book.AverageRating)
}

func TestGradeOf(t *testing.T) {
	book := newBook()
	u1 := uuid.New()
	require.NoError(t, rating.Apply(book, u1, 4))

	g, ok := rating.GradeOf(book, u1)
	assert.True(t, ok)
	assert.Equal(t, 4, g)

	_, ok = rating.GradeOf(book, uuid.New())
	assert.False(t, ok)

	_, ok = rating.GradeOf(nil, u1)
	assert.False(t, ok)
}
