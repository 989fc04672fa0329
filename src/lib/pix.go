package lib

import (
	"fmt"
	"strings"

	"github.com/yeqown/go-qrcode"
)

// PixCharge holds the fields that go into a static PIX BR Code payload.
type PixCharge struct {
	Key          string
	MerchantName string
	MerchantCity string
	Amount       float64
	TxID         string
}

func emvField(id string, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

// PixPayload builds the EMV BR Code string for a static PIX charge.
// Field ids follow the Banco Central BR Code specification; the payload
// ends with the CRC16 of everything before it (including the "6304" tag).
func PixPayload(c *PixCharge) string {
	name := c.MerchantName
	if len(name) > 25 {
		name = name[:25]
	}
	city := c.MerchantCity
	if city == "" {
		city = "SAO PAULO"
	}
	if len(city) > 15 {
		city = city[:15]
	}
	txid := c.TxID
	if txid == "" {
		txid = "***"
	}
	if len(txid) > 25 {
		txid = txid[:25]
	}

	var b strings.Builder
	b.WriteString(emvField("00", "01"))
	merchantAccount := emvField("00", "br.gov.bcb.pix") + emvField("01", c.Key)
	b.WriteString(emvField("26", merchantAccount))
	b.WriteString(emvField("52", "0000"))
	b.WriteString(emvField("53", "986"))
	if c.Amount > 0 {
		b.WriteString(emvField("54", fmt.Sprintf("%.2f", c.Amount)))
	}
	b.WriteString(emvField("58", "BR"))
	b.WriteString(emvField("59", name))
	b.WriteString(emvField("60", city))
	b.WriteString(emvField("62", emvField("05", txid)))
	b.WriteString("6304")

	payload := b.String()
	return fmt.Sprintf("%s%04X", payload, CRC16CCITT([]byte(payload)))
}

// CRC16CCITT computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF) as
// required by the BR Code trailer.
func CRC16CCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, d := range data {
		crc ^= uint16(d) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// PixQRCode renders the charge payload as a QR code image at the given
// file path.
func PixQRCode(c *PixCharge, filepath string) error {
	payload := PixPayload(c)
	qrc, err := qrcode.New(payload)
	if err != nil {
		return err
	}
	return qrc.Save(filepath)
}
