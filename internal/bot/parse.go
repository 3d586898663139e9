package bot

import "strings"

// aspectRatios the image model accepts as a leading prompt token.
var aspectRatios = map[string]struct{}{
	"1:1":  {},
	"3:4":  {},
	"4:3":  {},
	"9:16": {},
	"16:9": {},
}

// promptFromText strips a leading command token ("/chat", "/img@botname")
// and returns the remainder trimmed. Text without a command passes through.
func promptFromText(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") {
		if idx := strings.IndexAny(text, " \t\n"); idx > 0 {
			text = text[idx+1:]
		} else {
			text = ""
		}
	}
	return strings.TrimSpace(text)
}

// splitAspectRatio pops a leading "W:H" token off the prompt when it names a
// supported ratio. Returns the remaining prompt and the ratio ("" when the
// prompt carries none).
func splitAspectRatio(prompt string) (string, string) {
	fields := strings.Fields(prompt)
	if len(fields) == 0 {
		return "", ""
	}
	if _, ok := aspectRatios[fields[0]]; !ok {
		return prompt, ""
	}
	return strings.Join(fields[1:], " "), fields[0]
}
