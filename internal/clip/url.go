package clip

import "regexp"

var videoIDPattern = regexp.MustCompile(`v=([^&#]*)`)

// ParseVideoID extracts the value of the first "v=" parameter, up to the next
// '&', '#' or end of string. Short links and other URL shapes are not handled.
func ParseVideoID(url string) (string, bool) {
	m := videoIDPattern.FindStringSubmatch(url)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// WatchURL is the canonical watch page for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
