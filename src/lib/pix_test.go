package lib

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmvField(t *testing.T) {
	assert.Equal(t, "000201", emvField("00", "01"))
	assert.Equal(t, "5802BR", emvField("58", "BR"))
	assert.Equal(t, "0014br.gov.bcb.pix", emvField("00", "br.gov.bcb.pix"))
}

func TestCRC16CCITT(t *testing.T) {
	// CRC-16/CCITT-FALSE check value
	assert.Equal(t, uint16(0x29B1), CRC16CCITT([]byte("123456789")))
	assert.Equal(t, uint16(0xFFFF), CRC16CCITT(nil))
}

func TestPixPayload(t *testing.T) {
	charge := &PixCharge{
		Key:          "someone@example.com",
		MerchantName: "Rifa da Comunidade",
		MerchantCity: "CAMPINAS",
		Amount:       25.5,
		TxID:         "RIFA42",
	}
	payload := PixPayload(charge)

	assert.True(t, strings.HasPrefix(payload, "000201"))
	assert.Contains(t, payload, "br.gov.bcb.pix")
	assert.Contains(t, payload, "someone@example.com")
	assert.Contains(t, payload, "5303986")
	assert.Contains(t, payload, "540525.50")
	assert.Contains(t, payload, "5802BR")
	assert.Contains(t, payload, "RIFA42")

	// trailer is 6304 plus the CRC of everything before it
	idx := strings.LastIndex(payload, "6304")
	assert.Equal(t, len(payload)-8, idx)
	crc := CRC16CCITT([]byte(payload[:idx+4]))
	assert.Equal(t, fmt.Sprintf("%04X", crc), payload[idx+4:])
}

func TestPixPayloadDefaults(t *testing.T) {
	charge := &PixCharge{
		Key:          "11987654321",
		MerchantName: "A merchant name that is far too long for the field",
	}
	payload := PixPayload(charge)

	// no amount field for a zero-amount charge
	assert.NotContains(t, payload, "5405")
	assert.Contains(t, payload, "SAO PAULO")
	// name is truncated to 25 characters
	assert.Contains(t, payload, "5925A merchant name that is f")
}
