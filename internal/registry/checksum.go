package registry

import "strings"

// CheckRegistrationChecksum applies the registration-number sanity heuristic.
//
// This is NOT the statutory check-digit algorithm for corporate registration
// numbers. It only rejects two obviously fabricated shapes:
//   - every digit identical (1111111111)
//   - each digit one greater than the previous (0123456789), where the last
//     digit may also be 0 after 9 (1234567890)
//
// Hyphens are ignored. Every other digit string passes.
func CheckRegistrationChecksum(number string) Result {
	digits := strings.ReplaceAll(number, "-", "")
	if len(digits) < 2 {
		return pass()
	}
	if allSame(digits) {
		return fail(KindChecksum, FieldRegistrationNumber, "유효하지 않은 법인등록번호입니다. (모든 자리가 동일한 숫자)")
	}
	if ascending(digits) {
		return fail(KindChecksum, FieldRegistrationNumber, "유효하지 않은 법인등록번호입니다. (연속된 숫자)")
	}
	return pass()
}

func allSame(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

func ascending(digits string) bool {
	last := len(digits) - 1
	for i := 1; i <= last; i++ {
		prev, cur := digits[i-1], digits[i]
		if !isDigit(prev) || !isDigit(cur) {
			return false
		}
		if cur == prev+1 {
			continue
		}
		if i == last && prev == '9' && cur == '0' {
			continue
		}
		return false
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
