package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"(11) 98765-4321", "11987654321"},
		{"+55 11 98765-4321", "11987654321"},
		{"5511987654321", "11987654321"},
		{"11987654321", "11987654321"},
		{"1134567890", "1134567890"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizePhone(c.in), "input: %s", c.in)
	}
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "(11) 98765-4321", FormatPhone("5511987654321"))
	assert.Equal(t, "(11) 3456-7890", FormatPhone("1134567890"))
	assert.Equal(t, "123", FormatPhone("123"))
}

func TestValidCPF(t *testing.T) {
	assert.True(t, ValidCPF("529.982.247-25"))
	assert.True(t, ValidCPF("52998224725"))
	assert.False(t, ValidCPF("529.982.247-24"))
	assert.False(t, ValidCPF("111.111.111-11"))
	assert.False(t, ValidCPF("1234567890"))
	assert.False(t, ValidCPF(""))
}
