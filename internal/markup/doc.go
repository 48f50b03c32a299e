// Package markup separates HTML-like tags from the human-readable text around
// them so only the text is translated.
//
// Split is lossless: Join(Split(s)) == s for every input, including
// malformed markup.
package markup
