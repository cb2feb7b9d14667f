package gsm7_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alertarea/alertarea/pkg/gsm7"
)

func TestCompatible(t *testing.T) {
	assert.True(t, gsm7.Compatible("Severe flooding expected. Move to higher ground."))
	assert.True(t, gsm7.Compatible("Cost: £5 @ 10%"))
	assert.True(t, gsm7.Compatible("brackets [w] {x} and € signs"))
	assert.True(t, gsm7.Compatible(""))

	// smart quotes and dashes are not in the alphabet
	assert.False(t, gsm7.Compatible("don’t"))
	assert.False(t, gsm7.Compatible("wait — now"))
	// neither is Welsh ŵ
	assert.False(t, gsm7.Compatible("dŵr"))
}

func TestLength(t *testing.T) {
	assert.Equal(t, 0, gsm7.Length(""))
	assert.Equal(t, 5, gsm7.Length("hello"))

	// each extension character costs two septets
	assert.Equal(t, 2, gsm7.Length("€"))
	assert.Equal(t, 4, gsm7.Length("[]"))
	assert.Equal(t, 7, gsm7.Length("a{b}c"))
}

func TestIsBasic(t *testing.T) {
	assert.True(t, gsm7.IsBasic('A'))
	assert.True(t, gsm7.IsBasic('@'))
	assert.True(t, gsm7.IsBasic('\n'))
	assert.False(t, gsm7.IsBasic('{'))
	assert.False(t, gsm7.IsBasic('€'))

	assert.True(t, gsm7.IsExtended('{'))
	assert.True(t, gsm7.IsExtended('€'))
	assert.False(t, gsm7.IsExtended('A'))
}
