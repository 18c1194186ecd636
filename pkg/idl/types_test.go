/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types_test.go
Description: Tests for the wire-type table and the service method merge policy.
The merge must only ever upgrade default signatures, never downgrade recovered ones.
*/

package idl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForCode(t *testing.T) {
	assert.Equal(t, KindBool, KindForCode(2))
	assert.Equal(t, KindI64, KindForCode(10))
	assert.Equal(t, KindString, KindForCode(11))
	assert.Equal(t, KindList, KindForCode(15))
	// Unknown codes fall back to i32
	assert.Equal(t, KindI32, KindForCode(99))
}

func TestLookupKind(t *testing.T) {
	k, ok := LookupKind(13)
	assert.True(t, ok)
	assert.Equal(t, KindMap, k)

	_, ok = LookupKind(0)
	assert.False(t, ok)
}

func TestIsContainer(t *testing.T) {
	assert.True(t, KindList.IsContainer())
	assert.True(t, KindSet.IsContainer())
	assert.True(t, KindMap.IsContainer())
	assert.False(t, KindI32.IsContainer())
	assert.False(t, KindStruct.IsContainer())
}

func TestAddMethodUpgradesDefaults(t *testing.T) {
	svc := &Service{Name: "TalkService"}
	svc.AddMethod("sendMessage", "binary", "void", nil)
	require.Len(t, svc.Methods, 1)

	svc.AddMethod("sendMessage", "SendMessageRequest", "SendMessageResponse", []string{"TalkException"})
	require.Len(t, svc.Methods, 1)

	m := svc.Methods[0]
	assert.Equal(t, "SendMessageRequest", m.ArgType)
	assert.Equal(t, "SendMessageResponse", m.RetType)
	assert.Equal(t, []string{"TalkException"}, m.Exceptions)
}

func TestAddMethodNeverDowngrades(t *testing.T) {
	svc := &Service{Name: "TalkService"}
	svc.AddMethod("getProfile", "GetProfileRequest", "GetProfileResponse", []string{"TalkException"})

	// A weaker sighting must not erase the recovered signature
	svc.AddMethod("getProfile", "binary", "void", nil)
	svc.AddMethod("getProfile", "Other", "OtherResponse", []string{"OtherException"})

	require.Len(t, svc.Methods, 1)
	m := svc.Methods[0]
	assert.Equal(t, "GetProfileRequest", m.ArgType)
	assert.Equal(t, "GetProfileResponse", m.RetType)
	assert.Equal(t, []string{"TalkException"}, m.Exceptions)
}

func TestAddMethodDistinctNames(t *testing.T) {
	svc := &Service{Name: "TalkService"}
	svc.AddMethod("sendMessage", "binary", "void", nil)
	svc.AddMethod("getProfile", "binary", "void", nil)
	assert.Len(t, svc.Methods, 2)
}
