// Package textutil provides the text helpers used to index the catalogue.
//
// GroupName buckets titles by their first letter after folding accents and
// compatibility forms, so "Élan" and "elan" share the "E" group while titles
// starting with digits or punctuation fall into "#".
package textutil
