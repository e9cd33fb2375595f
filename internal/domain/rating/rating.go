// Package rating maintains the per-user ratings of a book and the average
// derived from them.
package rating

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bookshelf-api/internal/domain"
)

// Apply records actor's grade on book and recomputes the average.
//
// An existing entry for actor is overwritten in place, so resubmitting never
// adds a second entry. All inputs are checked before book is touched: on error
// the book is left exactly as it was.
func Apply(book *domain.Book, actor uuid.UUID, grade int) error {
	if book == nil {
		return domain.ErrBookNotFound
	}
	if actor == uuid.Nil {
		return domain.ErrUnauthenticated
	}
	if err := ValidateGrade(grade); err != nil {
		return err
	}

	updated := false
	for i := range book.Ratings {
		if book.Ratings[i].UserID == actor {
			book.Ratings[i].Grade = grade
			updated = true
			break
		}
	}
	if !updated {
		book.Ratings = append(book.Ratings, domain.Rating{UserID: actor, Grade: grade})
	}

	Recompute(book)
	book.UpdatedAt = time.Now().UTC()
	return nil
}

// ValidateGrade reports domain.ErrInvalidGrade for grades outside
// [domain.MinGrade, domain.MaxGrade].
func ValidateGrade(grade int) error {
	if grade < domain.MinGrade || grade > domain.MaxGrade {
		return domain.ErrInvalidGrade
	}
	return nil
}

// Recompute sets book.AverageRating from scratch.
func Recompute(book *domain.Book) {
	book.AverageRating = Average(book.Ratings)
}

// Average returns the arithmetic mean of the grades, or 0 for no ratings.
// It always sums the full set; the average is never adjusted incrementally.
func Average(ratings []domain.Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Grade
	}
	return float64(sum) / float64(len(ratings))
}

// GradeOf returns the grade actor gave book, if any.
func GradeOf(book *domain.Book, actor uuid.UUID) (int, bool) {
	if book == nil {
		return 0, false
	}
	for _, r := range book.Ratings {
		if r.UserID == actor {
			return r.Grade, true
		}
	}
	return 0, false
}
