package interview

import "strings"

// Roles is the catalog of supported target roles.
var Roles = []string{
	"Software Engineer",
	"ML Engineer",
	"Data Analyst",
	"Frontend Developer",
	"Backend Developer",
	"Full Stack Developer",
	"DevOps Engineer",
	"Product Manager",
	"Data Scientist",
	"Cloud Architect",
}

// requiredSkills drives the readiness skill bonus. Roles missing here get defaultSkillBonus.
var requiredSkills = map[string][]string{
	"Software Engineer":  {"python", "java", "javascript", "git", "api", "database"},
	"ML Engineer":        {"python", "tensorflow", "pytorch", "machine learning", "deep learning", "data"},
	"Data Analyst":       {"sql", "python", "excel", "tableau", "power bi", "statistics"},
	"Frontend Developer": {"javascript", "react", "html", "css", "typescript"},
	"Backend Developer":  {"python", "java", "nodejs", "database", "api", "microservices"},
}

const defaultSkillBonus = 5.0

// RequiredSkills returns the fixed skill list for role, or nil when the role has none.
// The role is matched against the catalog ignoring case, like KnownRole.
func RequiredSkills(role string) []string {
	role = strings.TrimSpace(role)
	if skills, ok := requiredSkills[role]; ok {
		return skills
	}
	for name, skills := range requiredSkills {
		if strings.EqualFold(name, role) {
			return skills
		}
	}
	return nil
}

// KnownRole reports whether role is in the catalog, ignoring case.
func KnownRole(role string) bool {
	for _, r := range Roles {
		if strings.EqualFold(r, strings.TrimSpace(role)) {
			return true
		}
	}
	return false
}
