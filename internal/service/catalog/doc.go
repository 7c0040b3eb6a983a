// Package catalog exposes TIDAL entities through a session that memoizes
// every track, album, playlist and artist it loads.
//
// Concurrent lookups of the same entity share one API request, and repeated
// lookups return the same record. Collections are walked page by page through
// iterators, and the records found in pages are seeded into the session so
// later lookups by ID do not refetch them. The package also finds TIDAL links
// in free text and formats display titles the way the catalog presents them.
package catalog
