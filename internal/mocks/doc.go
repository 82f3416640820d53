// Package mocks provides hand-written test doubles for the store interfaces.
// Each mock records its calls and lets a test override behavior per method
// through an Fn field, falling back to canned return values.
package mocks
