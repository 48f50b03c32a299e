// Package testsupport holds builders shared by package tests: isolated
// configs, opened stores, catalog fixtures, and a scripted translator.
package testsupport
