// Package domain contains the core business entities, value objects, and
// domain errors of the book catalog. It is independent of any specific
// infrastructure or delivery mechanism.
//
// The rating aggregate lives in the rating subpackage and the owner check in
// the ownership subpackage; both operate on the Book defined here.
package domain
