package portfolio

import "strings"

// SkillSeparator joins skills for display in the input field.
const SkillSeparator = ", "

// ParseSkills splits raw on commas, trims each segment and drops the
// empty ones. The result is never nil.
func ParseSkills(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// JoinSkills is the display form of a skill list.
func JoinSkills(skills []string) string {
	return strings.Join(ParseSkills(strings.Join(skills, ",")), SkillSeparator)
}
