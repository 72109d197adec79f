package common

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var hexAddressRe = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")

// NormalizeAddress canonicalizes a hex address to lowercase. All address
// comparisons in the pipeline go through this single normalization step.
func NormalizeAddress(addr string) string {
	return strings.ToLower(addr)
}

func IsSameHexAddress(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}

func ChecksumAddress(addr string) string {
	address := common.HexToAddress(addr)

	return address.Hex()
}

// ValidateAddress rejects anything that is not a 20 byte hex address.
func ValidateAddress(addr string) error {
	if !hexAddressRe.MatchString(addr) {
		return errors.New("bad address: " + addr)
	}

	return nil
}
