// Package language normalizes the target and source language codes accepted
// by the CLI and the HTTP API.
//
// Codes are parsed as BCP 47 tags with golang.org/x/text/language, so "HI",
// "hin" and "hindi" all become "hi". Display names come from
// golang.org/x/text/language/display.
package language
