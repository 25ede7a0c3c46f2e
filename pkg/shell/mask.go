package shell

import (
	"regexp"
	"strings"
)

// sensitiveTokens are the keys whose following value gets masked before a
// command's stderr is logged.
var sensitiveTokens = []string{
	"api_key", "apikey", "api-key", "token", "password", "secret", "Bearer", "Basic",
}

var maskPattern = regexp.MustCompile(`(?i)(` + strings.Join(sensitiveTokens, "|") + `)(\s*[:=]?\s*)(\S+)`)

// MaskSensitive replaces the value following any sensitive token
// (api_key, token, password, secret, Bearer, Basic, ...) with asterisks,
// up to the next whitespace or end of string. Case-insensitive.
func MaskSensitive(s string) string {
	return maskPattern.ReplaceAllStringFunc(s, func(match string) string {
		loc := maskPattern.FindStringSubmatchIndex(match)
		if loc == nil {
			return match
		}
		// loc indices: [0,1]=full, [2,3]=token, [4,5]=separator, [6,7]=value.
		keyAndSep := match[:loc[6]]
		value := match[loc[6]:loc[7]]
		return keyAndSep + maskString(value)
	})
}

func maskString(s string) string {
	out := make([]byte, len(s))
	for i := range out {
		out[i] = '*'
	}
	return string(out)
}
