package authflow

// OTPLength is the exact number of digits an OTP code carries.
const OTPLength = 6

// NormalizeOTP mirrors the OTP input behavior: non-digit characters are
// stripped and the result is capped at OTPLength digits, so no sequence
// of keystrokes can produce anything else.
func NormalizeOTP(raw string) string {
	out := make([]byte, 0, OTPLength)
	for i := 0; i < len(raw) && len(out) < OTPLength; i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			out = append(out, raw[i])
		}
	}
	return string(out)
}
