package processor

import "strings"

// codeTokenLength matches the fixed length of provisioned codes
const codeTokenLength = 11

// ExtractCodeFromQRText recovers the code token from a scanned QR payload.
// Payloads look like "https://redeem.example.com/c-BNTYX7K2M9QPW": the code
// is the trailing dash-separated segment, of which the last 11 characters
// are the token.
func ExtractCodeFromQRText(qrText string) string {
	parts := strings.Split(qrText, "-")
	token := strings.TrimSpace(parts[len(parts)-1])
	if len(token) > codeTokenLength {
		token = token[len(token)-codeTokenLength:]
	}
	return token
}
