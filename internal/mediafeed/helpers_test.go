package mediafeed

import "encoding/base64"

func base64Of(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}
