package gatt

import (
	"testing"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"
)

func TestProperties_String(t *testing.T) {
	assert.Equal(t, "none", Properties(0).String())
	assert.Equal(t, "read,notify", (PropRead | PropNotify).String())
	assert.Equal(t, "write-without-response,write", (PropWrite | PropWriteNoResponse).String(),
		"names MUST follow bit order")
}

func TestParseProperties(t *testing.T) {
	assert.Equal(t, PropRead|PropWrite|PropNotify, ParseProperties("read, WRITE,notify"))
	assert.Equal(t, PropIndicate, ParseProperties("indicate,bogus"), "unknown names MUST be ignored")
	assert.Equal(t, Properties(0), ParseProperties(""))

	all := Properties(0xFF)
	assert.Equal(t, all, ParseProperties(all.String()), "every flag MUST survive a text round trip")
}

func TestProperties_BLE(t *testing.T) {
	for bit := 0; bit < 8; bit++ {
		p := Properties(1 << bit)
		assert.Equal(t, p, PropertiesFromBLE(p.BLE()), "flag %s MUST survive go-ble conversion", p)
	}
	assert.Equal(t, ble.CharRead|ble.CharNotify, (PropRead | PropNotify).BLE())
}

func TestNativeCharacteristic_Properties(t *testing.T) {
	nc := NativeCharacteristic{IsReadable: true, IsIndicatable: true, HasExtendedProperties: true}
	assert.Equal(t, PropRead|PropIndicate|PropExtendedProperties, nc.Properties())

	var rebuilt NativeCharacteristic
	rebuilt.SetProperties(nc.Properties())
	assert.Equal(t, nc, rebuilt, "booleans MUST be rebuilt from the flags value")
}

func TestValueFraming(t *testing.T) {
	payload := EncodeValue([]byte{0xDE, 0xAD})
	assert.Equal(t, []byte{0x02, 0x00, 0x00, 0x00, 0xDE, 0xAD}, payload,
		"payload MUST carry a 4-byte little-endian length prefix")

	value, err := DecodeValue(payload)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD}, value)

	assert.Equal(t, []byte{0, 0, 0, 0}, EncodeValue(nil), "empty value MUST still carry a prefix")

	_, err = DecodeValue([]byte{0x01})
	assert.Error(t, err, "truncated header MUST be rejected")
	_, err = DecodeValue([]byte{0x05, 0, 0, 0, 0x01})
	assert.Error(t, err, "length mismatch MUST be rejected")
}

func TestErrorMatching(t *testing.T) {
	err := newError(CharacteristicReadError, "read characteristic", ErrMoreData)

	assert.ErrorIs(t, err, ErrCharacteristicRead, "errors MUST match sentinels by code")
	assert.NotErrorIs(t, err, ErrCharacteristicWrite)
	assert.ErrorIs(t, err, ErrMoreData, "cause MUST stay reachable")
	assert.Equal(t, "read characteristic: characteristic read error: more data", err.Error())

	assert.Equal(t, CharacteristicReadError, CodeOf(err))
	assert.Equal(t, NoError, CodeOf(nil))
	assert.Equal(t, UnknownError, CodeOf(ErrNotFound))
}
