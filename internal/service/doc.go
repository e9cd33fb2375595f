// Package service implements the bookshelf use cases on top of the store
// interfaces.
//
// BookService covers the catalogue: creating a book with its cover image,
// owner-only updates and deletes, listing, the best-rated query and rating.
// Every read-modify-write of a book goes through a version-checked store
// update; a store.ErrVersionConflict reloads the book and tries again with
// exponential backoff until the retry budget is spent, after which callers
// see ErrRatingConflict or ErrBookConflict. Non-owners get
// domain.ErrUnauthorized from the ownership check before anything is written.
//
// UserService registers accounts inside a transaction, checks credentials
// with the configured password verifier and issues access/refresh token pairs
// through auth.JWTService.
//
// Expected failures are returned as sentinels (see errors.go) so the API layer
// can map them with errors.Is. Anything else is wrapped in BookServiceError or
// UserServiceError with the failing operation attached.
package service
