/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sanitize_test.go
Description: Tests for the identifier sanitizer. Covers reserved-word escaping,
digit-leading names, invalid characters, and idempotence on valid identifiers.
*/

package idl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeReservedWords(t *testing.T) {
	assert.Equal(t, "required_", EscapeReserved("required"))
	assert.Equal(t, "Enum_", EscapeReserved("Enum"))
	assert.Equal(t, "void_", EscapeReserved("void"))
	assert.Equal(t, "async_", EscapeReserved("async"))
}

func TestEscapeEmptyName(t *testing.T) {
	assert.Equal(t, "unknown", EscapeReserved(""))
}

func TestEscapeDigitLeadingName(t *testing.T) {
	assert.Equal(t, "n_1value", EscapeReserved("1value"))
	assert.Equal(t, "n_007", EscapeReserved("007"))
}

func TestEscapeInvalidCharacters(t *testing.T) {
	assert.Equal(t, "foo_bar", EscapeReserved("foo-bar"))
	assert.Equal(t, "a_b_c", EscapeReserved("a.b.c"))
}

func TestEscapeValidNameUnchanged(t *testing.T) {
	assert.Equal(t, "SendMessageRequest", EscapeReserved("SendMessageRequest"))
	assert.Equal(t, "_internal", EscapeReserved("_internal"))

	// Idempotent on its own output
	once := EscapeReserved("foo-bar")
	assert.Equal(t, once, EscapeReserved(once))
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, IsValidIdentifier("Message"))
	assert.True(t, IsValidIdentifier("_f0"))
	assert.False(t, IsValidIdentifier("1Message"))
	assert.False(t, IsValidIdentifier("a b"))
	assert.False(t, IsValidIdentifier(""))
}
