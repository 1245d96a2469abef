// Package tokenize derives content-addressed node keys. Two nodes built from
// the same callable and the same argument structure receive the same key,
// which is what lets independently built graph fragments share work when
// they are merged.
package tokenize
