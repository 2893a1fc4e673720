// Package ir provides the canonical value encoding used for structural
// identity of formula trees and function catalogs.
//
// ir imports nothing internal. Fingerprints are domain-separated SHA-256
// hashes over RFC 8785 style canonical JSON, so equal structures hash equal
// regardless of map iteration order or Unicode normalization form.
package ir
