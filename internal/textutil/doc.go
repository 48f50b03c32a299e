// Package textutil provides small text helpers shared by the pipeline and the
// artifact writer: word counting for credit accounting and filename
// sanitization.
package textutil
