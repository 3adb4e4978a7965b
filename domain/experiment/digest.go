package experiment

import (
	"strconv"
	"strings"

	"binstudy/domain/core"
)

// EncodeDigest hashes a canonical assignment encoding into the verification
// digest. The cleartext is the first-study index as a decimal digit, the
// group letter of every study in study-index order, then the challenge-order
// digit of every slot in slot order.
//
// Example: second study first, group A in study 0 and B in study 1,
// challenge order 2 -> 0 -> 1 encodes as md5("1AB201").
//
// The scheme is deliberately one-way: there is no decode. Externally
// re-entered digests are accepted by rainbow-table membership only.
func EncodeDigest(firstStudy int, groupLetters string, orderDigits string) core.Digest {
	var cleartext strings.Builder
	cleartext.WriteString(strconv.Itoa(firstStudy))
	cleartext.WriteString(groupLetters)
	cleartext.WriteString(orderDigits)
	return core.NewDigest([]byte(cleartext.String()))
}

// orderDigits renders a challenge permutation as the digit string the codec
// consumes. Slots are single decimal digits; Params.Validate bounds the
// challenge count so this never truncates.
func orderDigits(order []int) string {
	var b strings.Builder
	for _, slot := range order {
		b.WriteString(strconv.Itoa(slot))
	}
	return b.String()
}
