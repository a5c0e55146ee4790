package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ipv4 masks last octet", "203.0.113.57", "203.0.113.0"},
		{"ipv4-mapped ipv6 treated as ipv4", "::ffff:198.51.100.7", "198.51.100.0"},
		{"ipv6 keeps /48", "2001:db8:abcd:12::1", "2001:db8:abcd::"},
		{"empty stays empty", "", ""},
		{"garbage is replaced", "not-an-ip", "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnonymizeIP(tt.in))
		})
	}
}
