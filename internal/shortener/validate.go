package shortener

import "regexp"

var urlPattern = regexp.MustCompile(`(?i)^(?:http|ftp)s?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+(?:[A-Z]{2,6}\.?|[A-Z0-9-]{2,}\.?)|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

var customCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{4,20}$`)

// ValidateURL reports whether s is an absolute http(s) or ftp(s) URL with a
// domain, localhost or dotted IPv4 host.
func ValidateURL(s string) bool {
	return s != "" && urlPattern.MatchString(s)
}

// ValidateCustomCode reports whether code may be requested as a short code.
func ValidateCustomCode(code string) bool {
	return customCodePattern.MatchString(code)
}
